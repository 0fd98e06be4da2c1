package repositories

import (
	"context"

	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
)

// DrugLabelStore loads the canonical drug labels at process start.
type DrugLabelStore interface {
	LoadAll(ctx context.Context) ([]*entities.DrugRecord, error)
}

// DrugLookupRepository resolves a single drug label.
type DrugLookupRepository interface {
	// GetByID retrieves a drug label by its set id
	GetByID(ctx context.Context, id string) (*entities.DrugRecord, error)

	// GetByNames matches the brand name case-insensitively with hyphens read as
	// spaces, and the generic name case-insensitively when given
	GetByNames(ctx context.Context, drugName, genericName string) (*entities.DrugRecord, error)
}

// DrugSearchRepository lists drug labels matching a filter.
type DrugSearchRepository interface {
	Search(ctx context.Context, filter DrugSearchFilter) (*entities.SearchPage, error)
}

// DrugSearchFilter defines filters for searching drug labels
type DrugSearchFilter struct {
	Query   string
	Labeler string
	Page    int
	Limit   int
}

// Search paging defaults
const (
	DefaultSearchPage  = 1
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Normalize applies paging defaults and bounds.
func (f DrugSearchFilter) Normalize() DrugSearchFilter {
	if f.Page < 1 {
		f.Page = DefaultSearchPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultSearchLimit
	}
	if f.Limit > MaxSearchLimit {
		f.Limit = MaxSearchLimit
	}
	return f
}
