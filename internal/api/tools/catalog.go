package tools

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names
const (
	ToolGetDrugByName       = "get_drug_by_name"
	ToolSearchDrugs         = "search_drugs"
	ToolGetEnhancedSections = "get_enhanced_sections"
)

func stringProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func numberProperty(description string, def int) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "number",
		Description: description,
		Default:     json.RawMessage(fmt.Sprintf("%d", def)),
	}
}

func drugNameSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"drugName":    stringProperty("Brand name of the drug, matched case-insensitively"),
			"genericName": stringProperty("Optional generic name to disambiguate brands"),
		},
		Required: []string{"drugName"},
	}
}

func searchSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query":   stringProperty("Substring of the brand or generic name"),
			"labeler": stringProperty("Substring of the labeler (manufacturer) name"),
			"page":    numberProperty("Page number, values below 1 mean the first page", 1),
			"limit":   numberProperty("Results per page, clamped to 1..100", 20),
		},
	}
}

// lenientTools always dispatch. Arguments that fail validation are coerced
// by the tool, which falls back to its defaults.
var lenientTools = map[string]bool{
	ToolSearchDrugs: true,
}

// catalog returns the fixed tool descriptors in the order tools/list reports them.
func catalog() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        ToolGetDrugByName,
			Description: "Look up a drug label by name and return its full content with SEO metadata and summary.",
			InputSchema: drugNameSchema(),
		},
		{
			Name:        ToolSearchDrugs,
			Description: "Search drug labels by name or labeler with pagination.",
			InputSchema: searchSchema(),
		},
		{
			Name:        ToolGetEnhancedSections,
			Description: "Return the label sections of a drug that have patient-friendly rewrites, alongside the original text.",
			InputSchema: drugNameSchema(),
		},
	}
}

// resolveSchemas resolves the input schema of every tool for argument validation.
func resolveSchemas(tools []*mcp.Tool) (map[string]*jsonschema.Resolved, error) {
	out := make(map[string]*jsonschema.Resolved, len(tools))
	for _, tool := range tools {
		schema, ok := tool.InputSchema.(*jsonschema.Schema)
		if !ok {
			return nil, fmt.Errorf("tool %s has no input schema", tool.Name)
		}
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve input schema of %s: %w", tool.Name, err)
		}
		out[tool.Name] = resolved
	}
	return out, nil
}
