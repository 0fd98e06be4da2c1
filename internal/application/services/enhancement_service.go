package services

import (
	"context"
	"time"

	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/domain/repositories"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/druglabels/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Outcome tags the result of resolving a drug to enhanced content.
type Outcome int

const (
	OutcomeFound Outcome = iota + 1
	OutcomeNotFound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Source tells where returned enhanced content came from.
type Source string

const (
	SourceCache     Source = "cache"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// ContentResult is the tagged result of a lookup. Content is set when Outcome
// is OutcomeFound; Err is set otherwise.
type ContentResult struct {
	Outcome Outcome
	Content *entities.EnhancedContent
	Source  Source
	Err     error
}

// EnhancementService produces enhanced content for drug labels.
//
// A request first reads enhanced_content:<id>. On a miss the SEO metadata,
// summary and section batch are produced concurrently, each first read from its
// own namespace, and the assembled object is cached. Any generation failure
// returns template content with the same shape, which is never cached.
// Concurrent misses for one record are not coalesced; the last write wins.
type EnhancementService struct {
	lookup  repositories.DrugLookupRepository
	gateway ContentGenerator
	cache   *ContentCache
	metrics *observability.Metrics
	now     func() time.Time
}

// NewEnhancementService creates a new enhancement service
func NewEnhancementService(
	lookup repositories.DrugLookupRepository,
	gateway ContentGenerator,
	cache *ContentCache,
	metrics *observability.Metrics,
) *EnhancementService {
	return &EnhancementService{
		lookup:  lookup,
		gateway: gateway,
		cache:   cache,
		metrics: metrics,
		now:     time.Now,
	}
}

// BasicContent returns the unenhanced content of record without external calls.
func (s *EnhancementService) BasicContent(record *entities.DrugRecord) *entities.BasicContent {
	return BuildBasicContent(record, s.now().UTC())
}

// GetEnhancedContent returns enhanced content for record. It never fails.
func (s *EnhancementService) GetEnhancedContent(ctx context.Context, record *entities.DrugRecord) *entities.EnhancedContent {
	content, _ := s.Enhance(ctx, record)
	return content
}

// Enhance returns enhanced content for record and where it came from.
func (s *EnhancementService) Enhance(ctx context.Context, record *entities.DrugRecord) (*entities.EnhancedContent, Source) {
	ctx, span := observability.StartSpan(ctx, "EnhancementService.Enhance")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("drug.id", record.ID))

	var cached entities.EnhancedContent
	if s.cache.Load(ctx, NamespaceEnhancedContent, record.ID, &cached) {
		if isComplete(record, &cached) {
			observability.SetSpanAttributes(span, attribute.String("enhancement.source", string(SourceCache)))
			return &cached, SourceCache
		}
		observability.LoggerFromContext(ctx).Warn().
			Str("drug_id", record.ID).
			Msg("cached enhanced content is incomplete, regenerating")
	}

	basic := s.BasicContent(record)
	if s.gateway == nil || !s.gateway.Enabled() {
		observability.RecordFallback(ctx, s.metrics, "disabled")
		observability.SetSpanAttributes(span, attribute.String("enhancement.source", string(SourceFallback)))
		return fallbackContent(record, basic), SourceFallback
	}

	var (
		seo      entities.SEOMetadata
		summary  string
		enhanced map[entities.FieldKey]string
	)
	contents := sectionContents(basic.Sections)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.cache.Load(gctx, NamespaceSEOMetadata, record.ID, &seo) && seo.Title != "" && seo.Description != "" {
			return nil
		}
		var err error
		seo, err = s.gateway.GenerateTitleAndDescription(gctx, record)
		return err
	})
	g.Go(func() error {
		if s.cache.Load(gctx, NamespaceDrugSummary, record.ID, &summary) && summary != "" {
			return nil
		}
		var err error
		summary, err = s.gateway.GenerateSummary(gctx, record)
		return err
	})
	g.Go(func() error {
		if s.cache.Load(gctx, NamespaceEnhancedSections, record.ID, &enhanced) && len(enhanced) > 0 {
			return nil
		}
		var err error
		enhanced, err = s.gateway.GenerateSectionBatch(gctx, record, contents)
		return err
	})

	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		observability.RecordFallback(ctx, s.metrics, "generation_failed")
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("drug_id", record.ID).
			Msg("enhancement generation failed, serving fallback content")
		observability.SetSpanAttributes(span, attribute.String("enhancement.source", string(SourceFallback)))
		return fallbackContent(record, basic), SourceFallback
	}

	content := &entities.EnhancedContent{
		BasicContent:    *basic,
		SEOTitle:        seo.Title,
		MetaDescription: seo.Description,
		EnhancedSummary: summary,
	}
	content.Sections = applyEnhancements(basic.Sections, enhanced)
	fillMissing(record, content)

	s.cache.Store(ctx, NamespaceEnhancedContent, record.ID, content)
	observability.SetSpanAttributes(span, attribute.String("enhancement.source", string(SourceGenerated)))
	return content, SourceGenerated
}

// ResolveEnhancedContent looks a drug up by name and returns its enhanced content.
func (s *EnhancementService) ResolveEnhancedContent(ctx context.Context, drugName, genericName string) ContentResult {
	record, err := s.lookup.GetByNames(ctx, drugName, genericName)
	return s.resolve(ctx, record, err)
}

// ResolveByID looks a drug up by set id and returns its enhanced content.
func (s *EnhancementService) ResolveByID(ctx context.Context, id string) ContentResult {
	record, err := s.lookup.GetByID(ctx, id)
	return s.resolve(ctx, record, err)
}

func (s *EnhancementService) resolve(ctx context.Context, record *entities.DrugRecord, err error) ContentResult {
	if err != nil {
		if apperrors.IsNotFound(err) {
			return ContentResult{Outcome: OutcomeNotFound, Err: err}
		}
		return ContentResult{Outcome: OutcomeFailed, Err: err}
	}
	content, source := s.Enhance(ctx, record)
	return ContentResult{Outcome: OutcomeFound, Content: content, Source: source}
}

// fallbackContent builds template content with unenhanced sections.
func fallbackContent(record *entities.DrugRecord, basic *entities.BasicContent) *entities.EnhancedContent {
	seo := FallbackSEOMetadata(record)
	return &entities.EnhancedContent{
		BasicContent:    *basic,
		SEOTitle:        seo.Title,
		MetaDescription: seo.Description,
		EnhancedSummary: FallbackSummary(record),
	}
}

// isComplete reports whether a cached entry belongs to record and carries every
// top-level field. Entries written by an older schema fail this check.
func isComplete(record *entities.DrugRecord, content *entities.EnhancedContent) bool {
	return content.ID == record.ID &&
		content.DrugName != "" &&
		content.Sections != nil &&
		content.SEOTitle != "" &&
		content.MetaDescription != "" &&
		content.EnhancedSummary != ""
}

// fillMissing replaces empty top-level strings with template values.
func fillMissing(record *entities.DrugRecord, content *entities.EnhancedContent) {
	if content.SEOTitle == "" || content.MetaDescription == "" {
		seo := FallbackSEOMetadata(record)
		if content.SEOTitle == "" {
			content.SEOTitle = seo.Title
		}
		if content.MetaDescription == "" {
			content.MetaDescription = seo.Description
		}
	}
	if content.EnhancedSummary == "" {
		content.EnhancedSummary = FallbackSummary(record)
	}
}
