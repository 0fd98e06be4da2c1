package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/domain/providers"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
	"github.com/zatekoja/druglabels/backend/pkg/config"
	"github.com/zatekoja/druglabels/backend/pkg/retry"
)

// Gateway operation names used in logs and metrics
const (
	opSEOMetadata  = "seo_metadata"
	opSummary      = "summary"
	opSectionBatch = "section_batch"
)

const (
	seoMaxTokens      = 300
	summaryMaxTokens  = 300
	sectionsMaxTokens = 4000
)

// ContentGenerator produces the AI parts of enhanced content.
// Implemented by ModelGateway.
type ContentGenerator interface {
	Enabled() bool
	GenerateTitleAndDescription(ctx context.Context, record *entities.DrugRecord) (entities.SEOMetadata, error)
	GenerateSummary(ctx context.Context, record *entities.DrugRecord) (string, error)
	GenerateSectionBatch(ctx context.Context, record *entities.DrugRecord, contents map[entities.FieldKey]string) (map[entities.FieldKey]string, error)
}

// ModelGateway issues generation requests to a text provider under a retry
// policy and writes every successful generation to its cache namespace.
// It never reads the cache.
type ModelGateway struct {
	generator providers.TextGenerator
	cache     *ContentCache
	policy    retry.Policy
	metrics   *observability.Metrics
}

var _ ContentGenerator = (*ModelGateway)(nil)

// NewModelGateway creates a gateway. A nil generator disables generation and
// every operation returns its fallback value.
func NewModelGateway(generator providers.TextGenerator, cache *ContentCache, policy retry.Policy, metrics *observability.Metrics) *ModelGateway {
	if policy.IsRateLimited == nil {
		policy.IsRateLimited = IsRateLimited
	}
	if policy.IsRetryable == nil {
		policy.IsRetryable = IsRetryableGenerationError
	}
	return &ModelGateway{
		generator: generator,
		cache:     cache,
		policy:    policy,
		metrics:   metrics,
	}
}

// GenerationPolicy builds the retry policy from configuration.
func GenerationPolicy(cfg config.GenerationConfig) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RateLimitBaseDelay > 0 {
		p.RateLimitBaseDelay = cfg.RateLimitBaseDelay
	}
	if cfg.TransientDelay > 0 {
		p.TransientDelay = cfg.TransientDelay
	}
	p.IsRateLimited = IsRateLimited
	p.IsRetryable = IsRetryableGenerationError
	return p
}

// IsRateLimited reports whether err is a provider rate-limit signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, providers.ErrRateLimited)
}

// IsRetryableGenerationError reports whether another attempt may succeed.
func IsRetryableGenerationError(err error) bool {
	return errors.Is(err, providers.ErrRateLimited) || errors.Is(err, providers.ErrGenerationUnavailable)
}

// Enabled reports whether a provider is configured.
func (g *ModelGateway) Enabled() bool {
	return g != nil && g.generator != nil
}

// generate runs one logical request under the retry policy.
func (g *ModelGateway) generate(ctx context.Context, op string, record *entities.DrugRecord, req providers.GenerationRequest) (string, error) {
	policy := g.policy
	logger := observability.LoggerFromContext(ctx)
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		observability.RecordGenerationRetry(ctx, g.metrics, op)
		logger.Warn().
			Err(err).
			Str("drug_id", record.ID).
			Str("operation", op).
			Str("provider", g.generator.Name()).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("generation attempt failed, retrying")
	}

	var text string
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		out, err := g.generator.Generate(ctx, req)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	observability.RecordGeneration(ctx, g.metrics, op, err)
	if err != nil {
		return "", fmt.Errorf("%s generation for drug %s failed: %w", op, record.ID, err)
	}
	return text, nil
}

// GenerateTitleAndDescription returns SEO metadata for record. An unparseable
// response yields the template metadata without error; exhausted retries
// return the error.
func (g *ModelGateway) GenerateTitleAndDescription(ctx context.Context, record *entities.DrugRecord) (entities.SEOMetadata, error) {
	if !g.Enabled() {
		return FallbackSEOMetadata(record), nil
	}

	text, err := g.generate(ctx, opSEOMetadata, record, providers.GenerationRequest{
		System:          seoSystemPrompt,
		Prompt:          buildSEOPrompt(record),
		SchemaName:      opSEOMetadata,
		Schema:          seoSchema(),
		MaxOutputTokens: seoMaxTokens,
		Temperature:     0.3,
	})
	if err != nil {
		return entities.SEOMetadata{}, err
	}

	var meta entities.SEOMetadata
	if err := json.Unmarshal([]byte(text), &meta); err != nil ||
		strings.TrimSpace(meta.Title) == "" || strings.TrimSpace(meta.Description) == "" {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("drug_id", record.ID).
			Str("operation", opSEOMetadata).
			Msg("unusable seo metadata response, using template")
		return FallbackSEOMetadata(record), nil
	}
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Description = strings.TrimSpace(meta.Description)

	g.cache.Store(ctx, NamespaceSEOMetadata, record.ID, meta)
	return meta, nil
}

// GenerateSummary returns a short overview of record. An empty response yields
// the template summary without error.
func (g *ModelGateway) GenerateSummary(ctx context.Context, record *entities.DrugRecord) (string, error) {
	if !g.Enabled() {
		return FallbackSummary(record), nil
	}

	text, err := g.generate(ctx, opSummary, record, providers.GenerationRequest{
		System:          summarySystemPrompt,
		Prompt:          buildSummaryPrompt(record),
		MaxOutputTokens: summaryMaxTokens,
		Temperature:     0.4,
	})
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(text)
	if summary == "" {
		observability.LoggerFromContext(ctx).Warn().
			Str("drug_id", record.ID).
			Str("operation", opSummary).
			Msg("empty summary response, using template")
		return FallbackSummary(record), nil
	}

	g.cache.Store(ctx, NamespaceDrugSummary, record.ID, summary)
	return summary, nil
}

// GenerateSectionBatch rewrites every non-empty section in one schema-constrained
// request. The result holds exactly the requested keys, or is empty when the
// response does not conform. Exhausted retries return an empty map and the error.
func (g *ModelGateway) GenerateSectionBatch(ctx context.Context, record *entities.DrugRecord, contents map[entities.FieldKey]string) (map[entities.FieldKey]string, error) {
	empty := map[entities.FieldKey]string{}
	keys := requestedKeys(contents)
	if !g.Enabled() || len(keys) == 0 {
		return empty, nil
	}

	schema := sectionBatchSchema(keys)
	text, err := g.generate(ctx, opSectionBatch, record, providers.GenerationRequest{
		System:          sectionSystemPrompt,
		Prompt:          buildSectionBatchPrompt(record, keys, contents),
		SchemaName:      "enhanced_sections",
		Schema:          schema,
		MaxOutputTokens: sectionsMaxTokens,
		Temperature:     0.3,
	})
	if err != nil {
		return empty, err
	}

	enhanced, err := parseSectionBatch(text, schema, keys)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("drug_id", record.ID).
			Str("operation", opSectionBatch).
			Int("requested", len(keys)).
			Msg("section batch response rejected, sections stay unenhanced")
		return empty, nil
	}

	g.cache.Store(ctx, NamespaceEnhancedSections, record.ID, enhanced)
	return enhanced, nil
}

// requestedKeys returns the keys with non-empty content in label table order.
func requestedKeys(contents map[entities.FieldKey]string) []entities.FieldKey {
	var keys []entities.FieldKey
	for _, f := range entities.LabelFields() {
		if strings.TrimSpace(contents[f.Key]) != "" {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// parseSectionBatch decodes text and validates it against schema.
func parseSectionBatch(text string, schema map[string]any, keys []entities.FieldKey) (map[entities.FieldKey]string, error) {
	var instance map[string]any
	if err := json.Unmarshal([]byte(text), &instance); err != nil {
		return nil, fmt.Errorf("section batch is not a JSON object: %w", err)
	}

	resolved, err := resolveSchema(schema)
	if err != nil {
		return nil, err
	}
	if err := resolved.Validate(instance); err != nil {
		return nil, fmt.Errorf("section batch does not match schema: %w", err)
	}

	out := make(map[entities.FieldKey]string, len(keys))
	for _, key := range keys {
		rewrite, _ := instance[string(key)].(string)
		rewrite = strings.TrimSpace(rewrite)
		if rewrite == "" {
			return nil, fmt.Errorf("section batch left %s empty", key)
		}
		out[key] = rewrite
	}
	return out, nil
}

func resolveSchema(raw map[string]any) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return schema.Resolve(nil)
}

// FallbackSEOMetadata returns the template title and description of record.
func FallbackSEOMetadata(record *entities.DrugRecord) entities.SEOMetadata {
	name := displayName(record)
	labeler := record.Labeler
	if labeler == "" {
		labeler = "its manufacturer"
	}
	return entities.SEOMetadata{
		Title:       name + " - Prescription Info",
		Description: fmt.Sprintf("Learn about %s by %s: indications, dosage, warnings, and prescribing information.", name, labeler),
	}
}

// FallbackSummary returns the template one-sentence summary of record.
func FallbackSummary(record *entities.DrugRecord) string {
	generic := record.GenericName
	if generic == "" {
		generic = record.DrugName
	}
	labeler := record.Labeler
	if labeler == "" {
		labeler = "an unlisted labeler"
	}
	return fmt.Sprintf("%s is a prescription medication containing %s, manufactured by %s.", record.DrugName, generic, labeler)
}

// displayName renders "Brand (generic)", or just the brand when the record has no generic name.
func displayName(record *entities.DrugRecord) string {
	if strings.TrimSpace(record.GenericName) == "" {
		return record.DrugName
	}
	return fmt.Sprintf("%s (%s)", record.DrugName, record.GenericName)
}
