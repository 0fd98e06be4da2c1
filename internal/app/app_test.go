package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/druglabels/backend/internal/adapters/cache"
	"github.com/zatekoja/druglabels/backend/internal/application/services"
	"github.com/zatekoja/druglabels/backend/pkg/config"
)

const labelsJSON = `[
  {
    "id": "123",
    "drugName": "Aspirin",
    "genericName": "acetylsalicylic-acid",
    "labeler": "Test Pharma",
    "fields": {
      "indicationsAndUsage": "Pain relief",
      "dosageAndAdministration": "325mg daily"
    }
  }
]`

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, os.WriteFile(path, []byte(labelsJSON), 0o600))

	return &config.Config{
		Catalog:    config.CatalogConfig{Source: "file", FilePath: path},
		Cache:      config.CacheConfig{MemorySize: 64},
		Generation: config.GenerationConfig{Provider: ProviderNone},
		Tools:      config.ToolsConfig{ServerName: "test", ServerVersion: "0.0.1"},
	}
}

func TestNew_FileCatalogWithoutProvider(t *testing.T) {
	a, err := New(context.Background(), fileConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 1, a.Catalog.Len())
	assert.IsType(t, &cache.MemoryAdapter{}, a.Cache)

	result := a.Enhancement.ResolveEnhancedContent(context.Background(), "aspirin", "")
	require.Equal(t, services.OutcomeFound, result.Outcome)
	assert.Equal(t, services.SourceFallback, result.Source)
	assert.Equal(t, "Aspirin (acetylsalicylic-acid) - Prescription Info", result.Content.SEOTitle)
	require.Len(t, result.Content.Sections, 2)
	assert.Nil(t, result.Content.Sections[0].EnhancedContent)

	assert.Len(t, a.Tools.Tools(), 3)
}

func TestNew_MissingCredentialDisablesGeneration(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Generation.Provider = ProviderOpenAI

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	_, source := a.Enhancement.Enhance(context.Background(), a.Catalog.All()[0])
	assert.Equal(t, services.SourceFallback, source)
}

func TestNew_UnreadableCatalogAborts(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Catalog.FilePath = filepath.Join(t.TempDir(), "missing.json")

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_RedisUnreachableFallsBackToMemory(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &cache.MemoryAdapter{}, a.Cache)
}
