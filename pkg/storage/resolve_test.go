package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yi-nology/mediaedge/pkg/storage"
	"github.com/yi-nology/mediaedge/pkg/storage/local"
)

// failingStore fails every read of one key with a non-not-found error.
type failingStore struct {
	storage.Storage
	failKey string
	reads   []string
}

var errBackend = errors.New("backend unavailable")

func (f *failingStore) GetObject(ctx context.Context, key string) (*storage.Object, error) {
	f.reads = append(f.reads, key)
	if key == f.failKey {
		return nil, errBackend
	}
	return f.Storage.GetObject(ctx, key)
}

type subject struct{ user, path string }

var layouts = []storage.KeyFunc[subject]{
	func(s subject) string { return "users/" + s.user + "/files/" + s.path },
	func(s subject) string { return "files/" + s.user + "/" + s.path },
	func(s subject) string { return s.user + "/" + s.path },
}

func newStore(t *testing.T, keys ...string) *failingStore {
	t.Helper()
	s, err := local.New(t.TempDir())
	require.NoError(t, err)
	for _, key := range keys {
		require.NoError(t, s.PutObject(context.Background(), key, strings.NewReader(key), int64(len(key)),
			storage.ObjectMeta{ContentType: "text/plain"}))
	}
	return &failingStore{Storage: s}
}

func TestResolveReturnsFirstHit(t *testing.T) {
	store := newStore(t, "files/u1/doc.pdf", "u1/doc.pdf")

	obj, key, err := storage.Resolve(context.Background(), store, subject{"u1", "doc.pdf"}, layouts...)
	require.NoError(t, err)
	defer obj.Body.Close()

	require.Equal(t, "files/u1/doc.pdf", key)
	body, _ := io.ReadAll(obj.Body)
	require.Equal(t, "files/u1/doc.pdf", string(body))
	require.Equal(t, []string{"users/u1/files/doc.pdf", "files/u1/doc.pdf"}, store.reads)
}

func TestResolveExhaustedIsNotFound(t *testing.T) {
	store := newStore(t)

	_, _, err := storage.Resolve(context.Background(), store, subject{"u1", "doc.pdf"}, layouts...)
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
	require.Len(t, store.reads, 3)
}

func TestResolveStopsOnStorageError(t *testing.T) {
	store := newStore(t, "u1/doc.pdf")
	store.failKey = "files/u1/doc.pdf"

	_, key, err := storage.Resolve(context.Background(), store, subject{"u1", "doc.pdf"}, layouts...)
	require.ErrorIs(t, err, errBackend)
	require.NotErrorIs(t, err, storage.ErrObjectNotFound)
	require.Equal(t, "files/u1/doc.pdf", key)
	require.Equal(t, []string{"users/u1/files/doc.pdf", "files/u1/doc.pdf"}, store.reads)
}

func TestConfigEnabled(t *testing.T) {
	require.False(t, storage.Config{Type: storage.TypeNone}.Enabled())
	require.False(t, storage.Config{Type: storage.TypeS3}.Enabled())
	require.True(t, storage.Config{Type: storage.TypeS3, S3: storage.S3Config{Bucket: "b"}}.Enabled())
	require.False(t, storage.Config{Type: storage.TypeMinIO}.Enabled())
	require.True(t, storage.Config{Type: storage.TypeLocal}.Enabled())
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := storage.New(storage.Config{Type: "ftp"})
	require.Error(t, err)
}
