package services

import (
	"fmt"
	"strings"

	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
)

const seoSystemPrompt = `You write search-engine metadata for a prescription drug information website.
Return ONLY JSON with "title" (at most 60 characters, include the brand and generic name) and
"description" (at most 155 characters, factual, no promotional claims). Do not give medical advice.`

const summarySystemPrompt = `You write short, patient-friendly overviews of FDA drug labels.
Write two or three plain sentences describing what the medication is and what it is used for.
Use simple language, stay factual, and do not give medical advice or dosing instructions.`

const sectionSystemPrompt = `You rewrite sections of FDA drug labels for patients.
For each requested section key, return a clear, plain-language rewrite of the original text.
Keep every clinically important fact, warning and number. Do not add information that is not in
the original text. Return ONLY JSON with exactly the requested keys.`

func describeRecord(record *entities.DrugRecord) string {
	return fmt.Sprintf("Brand name: %s\nGeneric name: %s\nLabeler: %s\n",
		record.DrugName, record.GenericName, record.Labeler)
}

func buildSEOPrompt(record *entities.DrugRecord) string {
	var b strings.Builder
	b.WriteString(describeRecord(record))
	if indications := record.Field(entities.FieldIndicationsAndUsage); indications != "" {
		fmt.Fprintf(&b, "Indications and usage: %s\n", truncate(indications, 1200))
	}
	return b.String()
}

func buildSummaryPrompt(record *entities.DrugRecord) string {
	var b strings.Builder
	b.WriteString(describeRecord(record))
	for _, key := range []entities.FieldKey{
		entities.FieldIndicationsAndUsage,
		entities.FieldDescription,
		entities.FieldDosageFormsAndStrengths,
	} {
		if text := record.Field(key); text != "" {
			fmt.Fprintf(&b, "%s: %s\n", key.Title(), truncate(text, 1200))
		}
	}
	return b.String()
}

func buildSectionBatchPrompt(record *entities.DrugRecord, keys []entities.FieldKey, contents map[entities.FieldKey]string) string {
	var b strings.Builder
	b.WriteString(describeRecord(record))
	b.WriteString("\nSections to rewrite:\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "\n[%s] %s\n%s\n", key, key.Title(), truncate(contents[key], 4000))
	}
	return b.String()
}

func seoSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
		},
		"required":             []string{"title", "description"},
		"additionalProperties": false,
	}
}

// sectionBatchSchema requires every key in keys and nothing else.
func sectionBatchSchema(keys []entities.FieldKey) map[string]any {
	props := make(map[string]any, len(keys))
	required := make([]string, 0, len(keys))
	for _, key := range keys {
		props[string(key)] = map[string]any{
			"type":        "string",
			"description": "Patient-friendly rewrite of " + key.Title(),
		}
		required = append(required, string(key))
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
