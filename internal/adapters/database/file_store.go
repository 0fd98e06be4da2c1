package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/domain/repositories"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/druglabels/backend/pkg/errors"
)

// FileStore loads drug labels from a JSON export: an array of DrugRecord objects.
type FileStore struct {
	path string
}

// NewFileStore creates a store reading the JSON file at path
func NewFileStore(path string) repositories.DrugLabelStore {
	return &FileStore{path: path}
}

// LoadAll reads and validates every record in the file. Unknown field keys are dropped.
func (s *FileStore) LoadAll(ctx context.Context) ([]*entities.DrugRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to read drug label file %s", s.path), err)
	}
	return decodeRecords(ctx, data)
}

func decodeRecords(ctx context.Context, data []byte) ([]*entities.DrugRecord, error) {
	var records []*entities.DrugRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid drug label file: %v", err))
	}

	seen := make(map[string]bool, len(records))
	out := records[:0]
	for i, r := range records {
		if r == nil {
			continue
		}
		if r.ID == "" || r.DrugName == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("drug label at index %d is missing id or drugName", i))
		}
		if seen[r.ID] {
			return nil, apperrors.NewValidationError(fmt.Sprintf("duplicate drug label id %s", r.ID))
		}
		seen[r.ID] = true

		for key := range r.Fields {
			if !key.Valid() {
				observability.LoggerFromContext(ctx).Warn().Str("drug_id", r.ID).Str("field", string(key)).Msg("dropping unknown label field")
				delete(r.Fields, key)
			}
		}
		out = append(out, r)
	}
	return out, nil
}
