package entities

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// DrugRecord is a canonical drug label as loaded from the record store.
// It is read-only once loaded.
type DrugRecord struct {
	ID          string              `json:"id"`
	DrugName    string              `json:"drugName"`
	GenericName string              `json:"genericName"`
	Labeler     string              `json:"labeler"`
	Fields      map[FieldKey]string `json:"fields"`
}

// Field returns the trimmed prose of key, or "" when absent.
func (r *DrugRecord) Field(key FieldKey) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return strings.TrimSpace(r.Fields[key])
}

// Section is one titled subdivision of a drug label.
type Section struct {
	ID              string   `json:"id"`
	Key             FieldKey `json:"key"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	EnhancedContent *string  `json:"enhancedContent,omitempty"`
	Order           int      `json:"order"`
	Category        string   `json:"category,omitempty"`
	IsImportant     bool     `json:"isImportant,omitempty"`
}

// IsEnhanced reports whether the section carries AI-rewritten prose.
func (s Section) IsEnhanced() bool {
	return s.EnhancedContent != nil && *s.EnhancedContent != ""
}

// BasicContent is the unenhanced, section-structured view of a drug label.
type BasicContent struct {
	ID          string    `json:"id"`
	DrugName    string    `json:"drugName"`
	GenericName string    `json:"genericName"`
	Labeler     string    `json:"labeler"`
	Slug        string    `json:"slug"`
	Sections    []Section `json:"sections"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// EnhancedContent is BasicContent plus SEO metadata and an AI summary.
type EnhancedContent struct {
	BasicContent
	SEOTitle        string `json:"seoTitle"`
	MetaDescription string `json:"metaDescription"`
	EnhancedSummary string `json:"enhancedSummary"`
}

// SEOMetadata is the generated page title and meta description for a drug.
type SEOMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DrugSummary is the list view of a drug label.
type DrugSummary struct {
	ID          string `json:"id"`
	DrugName    string `json:"drugName"`
	GenericName string `json:"genericName"`
	Labeler     string `json:"labeler"`
	Slug        string `json:"slug"`
}

// SearchPage is one page of drug search results.
type SearchPage struct {
	Drugs      []DrugSummary `json:"drugs"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

// Slugify joins parts into a lowercase, hyphenated URL slug. Non-ASCII
// letters are transliterated rather than dropped.
func Slugify(parts ...string) string {
	return slug.Make(strings.Join(parts, " "))
}

// RecordSlug returns the URL slug of a drug record.
func RecordSlug(r *DrugRecord) string {
	if r.GenericName == "" || strings.EqualFold(r.DrugName, r.GenericName) {
		return Slugify(r.DrugName)
	}
	return Slugify(r.DrugName, r.GenericName)
}

// Summarize returns the list view of r.
func (r *DrugRecord) Summarize() DrugSummary {
	return DrugSummary{
		ID:          r.ID,
		DrugName:    r.DrugName,
		GenericName: r.GenericName,
		Labeler:     r.Labeler,
		Slug:        RecordSlug(r),
	}
}
