package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/zatekoja/druglabels/backend/internal/domain/providers"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
)

// ResponseCache caches successful GET responses of a route for a fixed TTL.
// Cache failures fall through to the handler.
type ResponseCache struct {
	cache      providers.CacheProvider
	ttlSeconds int
}

// NewResponseCache creates a response cache. A nil cache disables it.
func NewResponseCache(cache providers.CacheProvider, ttlSeconds int) *ResponseCache {
	return &ResponseCache{cache: cache, ttlSeconds: ttlSeconds}
}

// Wrap returns next with response caching applied
func (m *ResponseCache) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m == nil || m.cache == nil || r.Method != http.MethodGet {
			next(w, r)
			return
		}

		logger := observability.LoggerFromContext(r.Context())
		cacheKey := responseCacheKey(r)

		cached, err := m.cache.Get(r.Context(), cacheKey)
		if err == nil {
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
		if !errors.Is(err, providers.ErrCacheMiss) {
			logger.Warn().Err(err).Str("cache_key", cacheKey).Msg("response cache read failed")
		}

		w.Header().Set("X-Cache", "MISS")
		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next(recorder, r)

		if recorder.statusCode != http.StatusOK || recorder.body.Len() == 0 {
			return
		}
		if err := m.cache.Set(r.Context(), cacheKey, recorder.body.Bytes(), m.ttlSeconds); err != nil {
			logger.Warn().Err(err).Str("cache_key", cacheKey).Msg("response cache write failed")
		}
	}
}

// responseCacheKey hashes the path and the canonically ordered query
func responseCacheKey(r *http.Request) string {
	key := r.URL.Path
	if query := r.URL.Query(); len(query) > 0 {
		key += "?" + query.Encode()
	}
	hash := sha256.Sum256([]byte(key))
	return "http_response:" + hex.EncodeToString(hash[:])
}

// responseRecorder captures the response while writing it through
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
