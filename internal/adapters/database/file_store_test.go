package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/druglabels/backend/pkg/errors"
)

func writeLabelFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFileStore_LoadAll(t *testing.T) {
	path := writeLabelFile(t, `[
		{"id": "123", "drugName": "Aspirin", "genericName": "acetylsalicylic-acid", "labeler": "Test Pharma",
		 "fields": {"indicationsAndUsage": "Pain relief", "boxedWarning": "dropped"}}
	]`)

	records, err := NewFileStore(path).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Pain relief", records[0].Field(entities.FieldIndicationsAndUsage))
	assert.NotContains(t, records[0].Fields, entities.FieldKey("boxedWarning"))
}

func TestFileStore_RejectsDuplicateIDs(t *testing.T) {
	path := writeLabelFile(t, `[{"id": "1", "drugName": "A"}, {"id": "1", "drugName": "B"}]`)

	_, err := NewFileStore(path).LoadAll(context.Background())
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestFileStore_RejectsMissingName(t *testing.T) {
	path := writeLabelFile(t, `[{"id": "1"}]`)

	_, err := NewFileStore(path).LoadAll(context.Background())
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestFileStore_MissingFile(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json")).LoadAll(context.Background())
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
}

func TestFileStore_InvalidJSON(t *testing.T) {
	path := writeLabelFile(t, `{"id": "1"}`)

	_, err := NewFileStore(path).LoadAll(context.Background())
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}
