package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/zatekoja/druglabels/backend/internal/domain/providers"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
)

// Namespace prefixes a cache key with the purpose of the cached value.
type Namespace string

const (
	NamespaceEnhancedContent  Namespace = "enhanced_content"
	NamespaceSEOMetadata      Namespace = "seo_metadata"
	NamespaceDrugSummary      Namespace = "drug_summary"
	NamespaceEnhancedSections Namespace = "enhanced_sections"
)

// Cache TTLs (in seconds)
const (
	enhancedContentTTL = 3600  // 1 hour for the assembled object
	generationTTL      = 86400 // 24 hours for individual generations
)

// Key returns the cache key of id in this namespace.
func (n Namespace) Key(id string) string {
	return string(n) + ":" + id
}

// TTL returns the expiration in seconds for entries of this namespace.
func (n Namespace) TTL() int {
	if n == NamespaceEnhancedContent {
		return enhancedContentTTL
	}
	return generationTTL
}

// ContentCache stores JSON values under namespaced keys. Backend failures
// and a nil backend read as misses and writes become no-ops, so callers
// never see a cache error.
type ContentCache struct {
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewContentCache creates a content cache over provider. provider may be nil.
func NewContentCache(provider providers.CacheProvider, metrics *observability.Metrics) *ContentCache {
	return &ContentCache{cache: provider, metrics: metrics}
}

// Load decodes the cached value of id into dst and reports whether it was found.
func (c *ContentCache) Load(ctx context.Context, ns Namespace, id string, dst any) bool {
	if c == nil || c.cache == nil {
		return false
	}
	key := ns.Key(id)

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.RecordCacheError(ctx, c.metrics, string(ns), "get")
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("cache_key", key).
				Msg("cache read failed, treating as miss")
		}
		observability.RecordCacheMiss(ctx, c.metrics, string(ns))
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		observability.RecordCacheMiss(ctx, c.metrics, string(ns))
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("cache_key", key).
			Msg("failed to unmarshal cached value, treating as miss")
		return false
	}

	observability.RecordCacheHit(ctx, c.metrics, string(ns))
	return true
}

// Store writes value under id with the namespace TTL.
func (c *ContentCache) Store(ctx context.Context, ns Namespace, id string, value any) {
	if c == nil || c.cache == nil {
		return
	}
	key := ns.Key(id)

	data, err := json.Marshal(value)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("cache_key", key).Msg("failed to marshal cache value")
		return
	}
	if err := c.cache.Set(ctx, key, data, ns.TTL()); err != nil {
		observability.RecordCacheError(ctx, c.metrics, string(ns), "set")
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("cache_key", key).
			Msg("cache write failed")
	}
}
