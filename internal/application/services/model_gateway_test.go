package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/domain/providers"
	"github.com/zatekoja/druglabels/backend/pkg/config"
)

type gatewayFixture struct {
	gateway   *ModelGateway
	generator *fakeGenerator
	provider  *MockCacheProvider
	sleep     *recordingSleep
}

func newGatewayFixture() *gatewayFixture {
	f := &gatewayFixture{
		generator: newFakeGenerator(),
		provider:  NewMockCacheProvider(),
		sleep:     &recordingSleep{},
	}
	f.gateway = NewModelGateway(f.generator, NewContentCache(f.provider, nil), testPolicy(f.sleep), nil)
	return f
}

func TestModelGateway_DisabledReturnsFallbacks(t *testing.T) {
	ctx := context.Background()
	provider := NewMockCacheProvider()
	gateway := NewModelGateway(nil, NewContentCache(provider, nil), GenerationPolicy(config.GenerationConfig{}), nil)
	record := aspirinRecord()

	assert.False(t, gateway.Enabled())

	seo, err := gateway.GenerateTitleAndDescription(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin (acetylsalicylic-acid) - Prescription Info", seo.Title)
	assert.NotEmpty(t, seo.Description)

	summary, err := gateway.GenerateSummary(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin is a prescription medication containing acetylsalicylic-acid, manufactured by Test Pharma.", summary)

	sections, err := gateway.GenerateSectionBatch(ctx, record, map[entities.FieldKey]string{entities.FieldOverdosage: "x"})
	require.NoError(t, err)
	assert.Empty(t, sections)

	assert.False(t, provider.has("seo_metadata:123"))
	assert.False(t, provider.has("drug_summary:123"))
}

func TestModelGateway_SuccessWritesNamespaceKeys(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture()
	record := aspirinRecord()

	seo, err := f.gateway.GenerateTitleAndDescription(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, "Generated Title", seo.Title)
	assert.True(t, f.provider.has("seo_metadata:123"))
	assert.Equal(t, 86400, f.provider.ttl("seo_metadata:123"))

	summary, err := f.gateway.GenerateSummary(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, "Generated summary.", summary)
	assert.True(t, f.provider.has("drug_summary:123"))

	sections, err := f.gateway.GenerateSectionBatch(ctx, record, sectionContents(BuildSections(record)))
	require.NoError(t, err)
	assert.Equal(t, map[entities.FieldKey]string{
		entities.FieldIndicationsAndUsage:     "Plain indicationsAndUsage",
		entities.FieldDosageAndAdministration: "Plain dosageAndAdministration",
	}, sections)

	var cached map[entities.FieldKey]string
	require.NoError(t, json.Unmarshal(f.provider.raw("enhanced_sections:123"), &cached))
	assert.Equal(t, sections, cached)
}

func TestModelGateway_GatewayDoesNotReadCache(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture()
	record := aspirinRecord()

	_, err := f.gateway.GenerateSummary(ctx, record)
	require.NoError(t, err)
	_, err = f.gateway.GenerateSummary(ctx, record)
	require.NoError(t, err)

	assert.Equal(t, 2, f.generator.count(opSummary))
}

func TestModelGateway_RateLimitBackoff(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture()
	rateLimited := fmt.Errorf("%w: status 429", providers.ErrRateLimited)
	f.generator.failWith(opSummary, rateLimited, rateLimited)

	summary, err := f.gateway.GenerateSummary(ctx, aspirinRecord())
	require.NoError(t, err)
	assert.Equal(t, "Generated summary.", summary)

	assert.Equal(t, 3, f.generator.count(opSummary))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleep.recorded())
}

func TestModelGateway_TransientFixedDelay(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture()
	f.generator.failWith(opSEOMetadata, errProviderDown, errProviderDown)

	_, err := f.gateway.GenerateTitleAndDescription(ctx, aspirinRecord())
	require.NoError(t, err)

	assert.Equal(t, 3, f.generator.count(opSEOMetadata))
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, f.sleep.recorded())
}

func TestModelGateway_ExhaustedRetriesPropagate(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture()
	f.generator.failWith(opSectionBatch, errProviderDown, errProviderDown, errProviderDown)
	record := aspirinRecord()

	sections, err := f.gateway.GenerateSectionBatch(ctx, record, sectionContents(BuildSections(record)))
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrGenerationUnavailable)
	assert.NotNil(t, sections)
	assert.Empty(t, sections)
	assert.Equal(t, 3, f.generator.count(opSectionBatch))
	assert.False(t, f.provider.has("enhanced_sections:123"))

	f.generator.failWith(opSummary, errProviderDown, errProviderDown, errProviderDown)
	_, err = f.gateway.GenerateSummary(ctx, record)
	assert.ErrorIs(t, err, providers.ErrGenerationUnavailable)
}

func TestModelGateway_RejectedIsNotRetried(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture()
	f.generator.failWith(opSummary, fmt.Errorf("%w: status 401", providers.ErrGenerationRejected))

	_, err := f.gateway.GenerateSummary(ctx, aspirinRecord())
	assert.ErrorIs(t, err, providers.ErrGenerationRejected)
	assert.Equal(t, 1, f.generator.count(opSummary))
	assert.Empty(t, f.sleep.recorded())
}

func TestModelGateway_MalformedSEOUsesTemplateWithoutRetry(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture()
	f.generator.respond(opSEOMetadata, "Here is your title: Aspirin")

	seo, err := f.gateway.GenerateTitleAndDescription(ctx, aspirinRecord())
	require.NoError(t, err)
	assert.Equal(t, "Aspirin (acetylsalicylic-acid) - Prescription Info", seo.Title)
	assert.Equal(t, 1, f.generator.count(opSEOMetadata))
	assert.False(t, f.provider.has("seo_metadata:123"))
}

func TestModelGateway_EmptySummaryUsesTemplate(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture()
	f.generator.respond(opSummary, "   ")

	summary, err := f.gateway.GenerateSummary(ctx, aspirinRecord())
	require.NoError(t, err)
	assert.Equal(t, FallbackSummary(aspirinRecord()), summary)
	assert.False(t, f.provider.has("drug_summary:123"))
}

func TestModelGateway_SectionBatchRejectsNonConformingResponses(t *testing.T) {
	record := aspirinRecord()
	contents := sectionContents(BuildSections(record))

	tests := []struct {
		name     string
		response string
	}{
		{"not json", "sure, here you go"},
		{"missing key", `{"indicationsAndUsage": "For pain."}`},
		{"extra key", `{"indicationsAndUsage": "For pain.", "dosageAndAdministration": "Once daily.", "overdosage": "x"}`},
		{"wrong type", `{"indicationsAndUsage": "For pain.", "dosageAndAdministration": 325}`},
		{"empty value", `{"indicationsAndUsage": "For pain.", "dosageAndAdministration": " "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatewayFixture()
			f.generator.respond(opSectionBatch, tt.response)

			sections, err := f.gateway.GenerateSectionBatch(context.Background(), record, contents)
			require.NoError(t, err)
			assert.Empty(t, sections)
			assert.Equal(t, 1, f.generator.count(opSectionBatch))
			assert.False(t, f.provider.has("enhanced_sections:123"))
		})
	}
}

func TestModelGateway_SectionBatchSkipsEmptyContents(t *testing.T) {
	f := newGatewayFixture()

	sections, err := f.gateway.GenerateSectionBatch(context.Background(), aspirinRecord(), map[entities.FieldKey]string{
		entities.FieldOverdosage: "  ",
	})
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.Equal(t, 0, f.generator.total())
}

func TestSectionBatchSchema(t *testing.T) {
	schema := sectionBatchSchema([]entities.FieldKey{entities.FieldIndicationsAndUsage, entities.FieldOverdosage})

	assert.Equal(t, []string{"indicationsAndUsage", "overdosage"}, schema["required"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Len(t, schema["properties"], 2)
}

func TestGenerationPolicy_FromConfig(t *testing.T) {
	p := GenerationPolicy(config.GenerationConfig{
		MaxAttempts:        5,
		RateLimitBaseDelay: 2 * time.Second,
		TransientDelay:     time.Second,
	})

	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 8*time.Second, p.Delay(3, providers.ErrRateLimited))
	assert.Equal(t, time.Second, p.Delay(3, errProviderDown))
	assert.False(t, p.IsRetryable(providers.ErrGenerationRejected))
	assert.False(t, p.IsRetryable(context.Canceled))
}

func TestFallbackTemplates_SameBrandAndGeneric(t *testing.T) {
	record := &entities.DrugRecord{ID: "9", DrugName: "Ibuprofen", GenericName: "ibuprofen"}

	assert.Equal(t, "Ibuprofen (ibuprofen) - Prescription Info", FallbackSEOMetadata(record).Title)
	assert.Equal(t, "Ibuprofen is a prescription medication containing ibuprofen, manufactured by an unlisted labeler.", FallbackSummary(record))
}

func TestFallbackTemplates_NoGenericName(t *testing.T) {
	record := &entities.DrugRecord{ID: "10", DrugName: "Zyrtec", Labeler: "Acme"}

	assert.Equal(t, "Zyrtec - Prescription Info", FallbackSEOMetadata(record).Title)
	assert.Contains(t, FallbackSEOMetadata(record).Description, "Learn about Zyrtec by Acme")
}
