package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wemb-pms/pms-backend/internal/catalog/domain"
)

const (
	catalogKeyPrefix    = "md:catalog:"       // Key per catalog kind: md:catalog:{kind}
	catalogEventChannel = "md:catalog:events" // Pub/Sub channel for refresh events
	defaultCatalogTTL   = 6 * time.Hour       // TTL for cached catalog data
)

// RefreshEvent is published after the cache has been rewritten.
type RefreshEvent struct {
	Source      string    `json:"source"`
	Kinds       []string  `json:"kinds"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Cache stores the catalog in Redis, one JSON value per kind.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a Cache. A non-positive ttl uses the default.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached catalog. A missing kind is a cache miss.
func (c *Cache) Get(ctx context.Context) (domain.Catalog, error) {
	keys := make([]string, len(domain.Kinds))
	for i, k := range domain.Kinds {
		keys[i] = c.key(k)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("failed to get catalog: %w", err)
	}

	var cat domain.Catalog
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return domain.Catalog{}, domain.ErrCatalogNotFound
		}
		target, err := kindTarget(&cat, domain.Kinds[i])
		if err != nil {
			return domain.Catalog{}, err
		}
		if err := json.Unmarshal([]byte(s), target); err != nil {
			return domain.Catalog{}, fmt.Errorf("failed to unmarshal %s: %w", domain.Kinds[i], err)
		}
	}
	return cat, nil
}

// Set writes every kind atomically.
func (c *Cache) Set(ctx context.Context, cat domain.Catalog) error {
	pipe := c.client.TxPipeline()
	for _, k := range domain.Kinds {
		target, err := kindTarget(&cat, k)
		if err != nil {
			return err
		}
		data, err := json.Marshal(target)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", k, err)
		}
		pipe.Set(ctx, c.key(k), data, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}
	return nil
}

// Invalidate drops every cached kind.
func (c *Cache) Invalidate(ctx context.Context) error {
	keys := make([]string, len(domain.Kinds))
	for i, k := range domain.Kinds {
		keys[i] = c.key(k)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog: %w", err)
	}
	return nil
}

// PublishRefresh announces a refresh to subscribers.
func (c *Cache) PublishRefresh(ctx context.Context, ev RefreshEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, catalogEventChannel, data).Err()
}

// Subscribe listens for refresh events.
func (c *Cache) Subscribe(ctx context.Context) *redis.PubSub {
	return c.client.Subscribe(ctx, catalogEventChannel)
}

func (c *Cache) key(kind string) string {
	return catalogKeyPrefix + kind
}

func kindTarget(cat *domain.Catalog, kind string) (any, error) {
	switch kind {
	case domain.KindDevelopmentItems:
		return &cat.DevelopmentItems, nil
	case domain.KindModeling3DRates:
		return &cat.Modeling3DRates, nil
	case domain.KindPIDRates:
		return &cat.PIDRates, nil
	case domain.KindModeling3DWeights:
		return &cat.Modeling3DWeights, nil
	case domain.KindPIDWeights:
		return &cat.PIDWeights, nil
	case domain.KindDifficultyItems:
		return &cat.DifficultyItems, nil
	case domain.KindFieldDifficultyItems:
		return &cat.FieldDifficultyItems, nil
	}
	return nil, domain.ErrUnknownKind
}
