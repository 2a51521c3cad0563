package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yi-nology/mediaedge/biz/dal/model"
)

// DerivativeDAO wraps the ledger of written derivatives.
type DerivativeDAO struct{}

func NewDerivativeDAO() *DerivativeDAO { return &DerivativeDAO{} }

// Migrate creates or updates the derivative table.
func (dao *DerivativeDAO) Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&model.Derivative{})
}

// Upsert inserts a derivative row or refreshes the row with the same derivative_key.
func (dao *DerivativeDAO) Upsert(ctx context.Context, db *gorm.DB, entity *model.Derivative) error {
	if entity == nil {
		return errors.New("derivative must not be nil")
	}
	if entity.DerivativeKey == "" {
		return errors.New("derivative_key is required")
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "derivative_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"original_key", "operations", "content_type", "size", "updated_at"}),
		}).
		Create(entity).Error
}

// GetByKey fetches a single derivative by derivative_key.
func (dao *DerivativeDAO) GetByKey(ctx context.Context, db *gorm.DB, derivativeKey string) (*model.Derivative, error) {
	var entity model.Derivative
	if err := db.WithContext(ctx).
		Where("derivative_key = ?", derivativeKey).
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListByOriginal returns every derivative of an original, oldest first.
func (dao *DerivativeDAO) ListByOriginal(ctx context.Context, db *gorm.DB, originalKey string) ([]model.Derivative, error) {
	var entities []model.Derivative
	if err := db.WithContext(ctx).
		Where("original_key = ?", originalKey).
		Order("created_at ASC, id ASC").
		Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// DeleteByKeys removes the rows with the given derivative keys.
func (dao *DerivativeDAO) DeleteByKeys(ctx context.Context, db *gorm.DB, derivativeKeys []string) (int64, error) {
	if len(derivativeKeys) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).
		Where("derivative_key IN ?", derivativeKeys).
		Delete(&model.Derivative{})
	return result.RowsAffected, result.Error
}
