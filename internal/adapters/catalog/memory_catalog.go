package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/druglabels/backend/pkg/errors"
)

// MemoryCatalog serves lookups and searches over drug labels loaded once at startup.
// It is safe for concurrent use because it is never mutated after construction.
type MemoryCatalog struct {
	records []*entities.DrugRecord
	byID    map[string]*entities.DrugRecord
}

var (
	_ repositories.DrugLookupRepository = (*MemoryCatalog)(nil)
	_ repositories.DrugSearchRepository = (*MemoryCatalog)(nil)
)

// NewMemoryCatalog builds a catalog ordered by brand name, then id
func NewMemoryCatalog(records []*entities.DrugRecord) *MemoryCatalog {
	sorted := make([]*entities.DrugRecord, 0, len(records))
	byID := make(map[string]*entities.DrugRecord, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		sorted = append(sorted, r)
		byID[r.ID] = r
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := strings.ToLower(sorted[i].DrugName), strings.ToLower(sorted[j].DrugName)
		if a != b {
			return a < b
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &MemoryCatalog{records: sorted, byID: byID}
}

// Load reads every record from store into a new catalog
func Load(ctx context.Context, store repositories.DrugLabelStore) (*MemoryCatalog, error) {
	records, err := store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return NewMemoryCatalog(records), nil
}

// Len returns the number of records
func (c *MemoryCatalog) Len() int {
	return len(c.records)
}

// All returns the records in catalog order
func (c *MemoryCatalog) All() []*entities.DrugRecord {
	out := make([]*entities.DrugRecord, len(c.records))
	copy(out, c.records)
	return out
}

// GetByID retrieves a drug label by its set id
func (c *MemoryCatalog) GetByID(_ context.Context, id string) (*entities.DrugRecord, error) {
	if r, ok := c.byID[id]; ok {
		return r, nil
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("drug label with id %s not found", id))
}

// GetByNames resolves a drug label by brand name and optional generic name
func (c *MemoryCatalog) GetByNames(_ context.Context, drugName, genericName string) (*entities.DrugRecord, error) {
	brand := normalizeBrand(drugName)
	if brand == "" {
		return nil, apperrors.NewValidationError("drugName is required")
	}
	generic := strings.TrimSpace(genericName)

	for _, r := range c.records {
		if normalizeBrand(r.DrugName) != brand {
			continue
		}
		if generic != "" && !strings.EqualFold(strings.TrimSpace(r.GenericName), generic) {
			continue
		}
		return r, nil
	}

	if generic != "" {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("drug %s (%s) not found", drugName, genericName))
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("drug %s not found", drugName))
}

// Search filters by case-insensitive substring on brand or generic name (query) and labeler
func (c *MemoryCatalog) Search(_ context.Context, filter repositories.DrugSearchFilter) (*entities.SearchPage, error) {
	filter = filter.Normalize()
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	labeler := strings.ToLower(strings.TrimSpace(filter.Labeler))

	var matches []*entities.DrugRecord
	for _, r := range c.records {
		if query != "" &&
			!strings.Contains(strings.ToLower(r.DrugName), query) &&
			!strings.Contains(strings.ToLower(r.GenericName), query) {
			continue
		}
		if labeler != "" && !strings.Contains(strings.ToLower(r.Labeler), labeler) {
			continue
		}
		matches = append(matches, r)
	}

	total := len(matches)
	page := &entities.SearchPage{
		Drugs:      []entities.DrugSummary{},
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}

	start := (filter.Page - 1) * filter.Limit
	if start >= total {
		return page, nil
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	for _, r := range matches[start:end] {
		page.Drugs = append(page.Drugs, r.Summarize())
	}
	return page, nil
}

func normalizeBrand(name string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(strings.ToLower(name), "-", " ")), " ")
}
