package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemb-pms/pms-backend/internal/catalog/domain"
	"github.com/wemb-pms/pms-backend/internal/catalog/repository"
	estdomain "github.com/wemb-pms/pms-backend/internal/estimation/domain"
)

type fakeStore struct {
	cat      domain.Catalog
	err      error
	loads    int
	upserted *domain.Catalog
}

func (f *fakeStore) Load(context.Context) (domain.Catalog, error) {
	f.loads++
	return f.cat, f.err
}

func (f *fakeStore) Upsert(_ context.Context, c domain.Catalog) error {
	f.upserted = &c
	return f.err
}

func newTestService(t *testing.T, store *fakeStore) (*CatalogService, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCatalogService(store, repository.NewCache(client, time.Minute), nil), mr
}

func TestCatalogService_CacheAside(t *testing.T) {
	store := &fakeStore{cat: domain.Catalog{
		Modeling3DWeights: []estdomain.WeightEntry{{ID: 9, Content: "custom", Weight: 2}},
	}}
	svc, mr := newTestService(t, store)
	ctx := context.Background()

	c, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.loads)
	assert.Equal(t, int64(9), c.Modeling3DWeights[0].ID)
	assert.Len(t, c.DevelopmentItems, 25, "empty tables fall back to the seed")

	_, err = svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.loads, "second read is served from redis")

	mr.FastForward(2 * time.Minute)
	_, err = svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)
}

func TestCatalogService_Kind(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{})
	ctx := context.Background()

	v, err := svc.Kind(ctx, domain.KindPIDWeights)
	require.NoError(t, err)
	assert.Len(t, v, 3)

	_, err = svc.Kind(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
}

func TestCatalogService_StoreError(t *testing.T) {
	boom := errors.New("db down")
	svc, _ := newTestService(t, &fakeStore{err: boom})

	_, err := svc.Catalog(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCatalogService_SeedInvalidatesCache(t *testing.T) {
	store := &fakeStore{}
	svc, mr := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "test")
	require.NoError(t, err)
	assert.True(t, mr.Exists("md:catalog:development-items"))

	require.NoError(t, svc.Seed(ctx))
	require.NotNil(t, store.upserted)
	assert.Len(t, store.upserted.DifficultyItems, 40)
	assert.False(t, mr.Exists("md:catalog:development-items"))
}

func TestCatalogService_WithoutStoreUsesSeed(t *testing.T) {
	svc := NewCatalogService(nil, nil, nil)
	c, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, c.Modeling3DRates, 12)
}

func TestCatalogService_LocalCopy(t *testing.T) {
	store := &fakeStore{}
	svc := NewCatalogService(store, nil, nil)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.KeepLocalCopy(time.Minute)
	ctx := context.Background()

	_, err := svc.Catalog(ctx)
	require.NoError(t, err)
	_, err = svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.loads, "second read is served from memory")

	svc.Forget()
	_, err = svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)

	now = now.Add(2 * time.Minute)
	_, err = svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, store.loads, "expired copy is reloaded")
}
