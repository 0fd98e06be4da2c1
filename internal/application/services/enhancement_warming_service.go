package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
)

// RecordLister lists every drug label in the catalog
type RecordLister interface {
	All() []*entities.DrugRecord
}

// WarmingStats summarizes one warming pass
type WarmingStats struct {
	Total     int           `json:"total"`
	Cached    int           `json:"cached"`
	Generated int           `json:"generated"`
	Fallback  int           `json:"fallback"`
	Duration  time.Duration `json:"duration"`
}

// EnhancementWarmingService pre-generates enhanced content so first requests hit the cache
type EnhancementWarmingService struct {
	catalog     RecordLister
	enhancement *EnhancementService
}

// NewEnhancementWarmingService creates a new enhancement warming service
func NewEnhancementWarmingService(catalog RecordLister, enhancement *EnhancementService) *EnhancementWarmingService {
	return &EnhancementWarmingService{
		catalog:     catalog,
		enhancement: enhancement,
	}
}

// WarmAll enhances every record in catalog order, one at a time. It stops
// early when ctx is cancelled.
func (s *EnhancementWarmingService) WarmAll(ctx context.Context) (WarmingStats, error) {
	start := time.Now()
	records := s.catalog.All()
	stats := WarmingStats{Total: len(records)}

	log.Info().Int("records", len(records)).Msg("Starting enhancement warming")
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		_, source := s.enhancement.Enhance(ctx, record)
		switch source {
		case SourceCache:
			stats.Cached++
		case SourceGenerated:
			stats.Generated++
		default:
			stats.Fallback++
		}
	}
	stats.Duration = time.Since(start)

	log.Info().
		Int("cached", stats.Cached).
		Int("generated", stats.Generated).
		Int("fallback", stats.Fallback).
		Dur("duration", stats.Duration).
		Msg("Enhancement warming completed")
	return stats, nil
}

// StartPeriodicWarming runs WarmAll now and then every interval until ctx is cancelled.
// A non-positive interval warms once.
func (s *EnhancementWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	go func() {
		if _, err := s.WarmAll(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial enhancement warming stopped")
		}
		if interval <= 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping enhancement warming service")
				return
			case <-ticker.C:
				if _, err := s.WarmAll(ctx); err != nil {
					log.Warn().Err(err).Msg("Periodic enhancement warming stopped")
				}
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("Started enhancement warming")
}
