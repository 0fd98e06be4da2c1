package services

import (
	"time"

	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
)

// BuildSections returns the record's non-empty label fields as sections in
// label table order, numbered from 1.
func BuildSections(record *entities.DrugRecord) []entities.Section {
	sections := make([]entities.Section, 0, len(record.Fields))
	order := 0
	for _, f := range entities.LabelFields() {
		content := record.Field(f.Key)
		if content == "" {
			continue
		}
		order++
		sections = append(sections, entities.Section{
			ID:          record.ID + "-" + string(f.Key),
			Key:         f.Key,
			Title:       f.Title,
			Content:     content,
			Order:       order,
			Category:    f.Category,
			IsImportant: f.Important,
		})
	}
	return sections
}

// BuildBasicContent returns the unenhanced view of record stamped with at.
func BuildBasicContent(record *entities.DrugRecord, at time.Time) *entities.BasicContent {
	return &entities.BasicContent{
		ID:          record.ID,
		DrugName:    record.DrugName,
		GenericName: record.GenericName,
		Labeler:     record.Labeler,
		Slug:        entities.RecordSlug(record),
		Sections:    BuildSections(record),
		LastUpdated: at,
	}
}

// sectionContents maps each section's key to its original prose.
func sectionContents(sections []entities.Section) map[entities.FieldKey]string {
	out := make(map[entities.FieldKey]string, len(sections))
	for _, s := range sections {
		out[s.Key] = s.Content
	}
	return out
}

// applyEnhancements returns a copy of sections with enhanced prose set where enhanced has it.
func applyEnhancements(sections []entities.Section, enhanced map[entities.FieldKey]string) []entities.Section {
	out := make([]entities.Section, len(sections))
	copy(out, sections)
	for i := range out {
		if text, ok := enhanced[out[i].Key]; ok && text != "" {
			t := text
			out[i].EnhancedContent = &t
		}
	}
	return out
}
