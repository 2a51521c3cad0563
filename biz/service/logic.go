package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/yi-nology/mediaedge/biz/dal/db"
	"github.com/yi-nology/mediaedge/biz/dal/model"
)

// Logic is the gorm-backed Ledger.
type Logic struct {
	db            *gorm.DB
	derivativeDAO *db.DerivativeDAO
}

func NewLogic(dbConn *gorm.DB) *Logic {
	return &Logic{
		db:            dbConn,
		derivativeDAO: db.NewDerivativeDAO(),
	}
}

// Migrate creates the ledger tables.
func (l *Logic) Migrate(ctx context.Context) error {
	return l.derivativeDAO.Migrate(ctx, l.db)
}

func (l *Logic) RecordDerivative(ctx context.Context, d *model.Derivative) error {
	return l.derivativeDAO.Upsert(ctx, l.db, d)
}

func (l *Logic) ListDerivatives(ctx context.Context, originalKey string) ([]model.Derivative, error) {
	return l.derivativeDAO.ListByOriginal(ctx, l.db, originalKey)
}

func (l *Logic) ForgetDerivatives(ctx context.Context, derivativeKeys []string) (int64, error) {
	return l.derivativeDAO.DeleteByKeys(ctx, l.db, derivativeKeys)
}
