package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/internal/catalog/domain"
	"github.com/wemb-pms/pms-backend/internal/catalog/repository"
	"github.com/wemb-pms/pms-backend/internal/catalog/seed"
)

// Store is the persistent catalog.
type Store interface {
	Load(ctx context.Context) (domain.Catalog, error)
	Upsert(ctx context.Context, c domain.Catalog) error
}

// Cache is the shared catalog cache.
type Cache interface {
	Get(ctx context.Context) (domain.Catalog, error)
	Set(ctx context.Context, c domain.Catalog) error
	Invalidate(ctx context.Context) error
	PublishRefresh(ctx context.Context, ev repository.RefreshEvent) error
}

// CatalogService serves the M/D catalog cache-aside. Empty tables fall back
// to the built-in seed so estimations can always be opened.
type CatalogService struct {
	store Store
	cache Cache
	log   *zap.Logger
	now   func() time.Time

	mu       sync.RWMutex
	localTTL time.Duration
	local    *domain.Catalog
	localAt  time.Time
}

// NewCatalogService wires the service. cache may be nil.
func NewCatalogService(store Store, cache Cache, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{store: store, cache: cache, log: log, now: time.Now}
}

// KeepLocalCopy makes the service hold the last catalog in process memory for
// up to ttl. Forget drops it early.
func (s *CatalogService) KeepLocalCopy(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localTTL = ttl
	s.local = nil
}

// Forget drops the in-process copy, typically after another instance
// announced a refresh.
func (s *CatalogService) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = nil
}

func (s *CatalogService) localCopy() (domain.Catalog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.local == nil || s.now().Sub(s.localAt) >= s.localTTL {
		return domain.Catalog{}, false
	}
	return *s.local, true
}

func (s *CatalogService) remember(c domain.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.localTTL <= 0 {
		return
	}
	s.local = &c
	s.localAt = s.now()
}

// Catalog returns the current catalog.
func (s *CatalogService) Catalog(ctx context.Context) (domain.Catalog, error) {
	if c, ok := s.localCopy(); ok {
		return c, nil
	}
	if s.cache != nil {
		c, err := s.cache.Get(ctx)
		if err == nil {
			s.remember(c)
			return c, nil
		}
		if !errors.Is(err, domain.ErrCatalogNotFound) {
			s.log.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	c, err := s.load(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, c); err != nil {
			s.log.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	s.remember(c)
	return c, nil
}

// Kind returns one catalog list by its endpoint name.
func (s *CatalogService) Kind(ctx context.Context, kind string) (any, error) {
	c, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	switch kind {
	case domain.KindDevelopmentItems:
		return c.DevelopmentItems, nil
	case domain.KindModeling3DRates:
		return c.Modeling3DRates, nil
	case domain.KindPIDRates:
		return c.PIDRates, nil
	case domain.KindModeling3DWeights:
		return c.Modeling3DWeights, nil
	case domain.KindPIDWeights:
		return c.PIDWeights, nil
	case domain.KindDifficultyItems:
		return c.DifficultyItems, nil
	case domain.KindFieldDifficultyItems:
		return c.FieldDifficultyItems, nil
	}
	return nil, domain.ErrUnknownKind
}

// Refresh reloads from the store, rewrites the cache and announces it.
func (s *CatalogService) Refresh(ctx context.Context, source string) (domain.Catalog, error) {
	c, err := s.load(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}
	s.Forget()
	if s.cache == nil {
		return c, nil
	}
	if err := s.cache.Set(ctx, c); err != nil {
		return domain.Catalog{}, err
	}
	ev := repository.RefreshEvent{Source: source, Kinds: domain.Kinds, RefreshedAt: s.now()}
	if err := s.cache.PublishRefresh(ctx, ev); err != nil {
		s.log.Warn("catalog refresh event not published", zap.Error(err))
	}
	s.log.Info("catalog refreshed",
		zap.String("source", source),
		zap.Int("development_items", len(c.DevelopmentItems)),
		zap.Int("difficulty_items", len(c.DifficultyItems)),
	)
	return c, nil
}

// Seed writes the built-in catalog to the store and drops the cache.
func (s *CatalogService) Seed(ctx context.Context) error {
	c, err := seed.Load()
	if err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, c); err != nil {
		return err
	}
	s.Forget()
	if s.cache != nil {
		return s.cache.Invalidate(ctx)
	}
	return nil
}

func (s *CatalogService) load(ctx context.Context) (domain.Catalog, error) {
	defaults, err := seed.Load()
	if err != nil {
		return domain.Catalog{}, err
	}
	if s.store == nil {
		return defaults, nil
	}

	c, err := s.store.Load(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}

	if len(c.DevelopmentItems) == 0 {
		c.DevelopmentItems = defaults.DevelopmentItems
	}
	if len(c.Modeling3DRates) == 0 {
		c.Modeling3DRates = defaults.Modeling3DRates
	}
	if len(c.PIDRates) == 0 {
		c.PIDRates = defaults.PIDRates
	}
	if len(c.Modeling3DWeights) == 0 {
		c.Modeling3DWeights = defaults.Modeling3DWeights
	}
	if len(c.PIDWeights) == 0 {
		c.PIDWeights = defaults.PIDWeights
	}
	if len(c.DifficultyItems) == 0 {
		c.DifficultyItems = defaults.DifficultyItems
	}
	if len(c.FieldDifficultyItems) == 0 {
		c.FieldDifficultyItems = defaults.FieldDifficultyItems
	}
	return c, nil
}
