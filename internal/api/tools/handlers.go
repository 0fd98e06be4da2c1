package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/zatekoja/druglabels/backend/internal/application/services"
	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/domain/repositories"
)

// EnhancedSection is one rewritten section as returned by get_enhanced_sections.
type EnhancedSection struct {
	Title           string `json:"title"`
	OriginalContent string `json:"originalContent"`
	EnhancedContent string `json:"enhancedContent"`
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	result := textResult(text)
	result.IsError = true
	return result
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Error: failed to encode result: %v", err))
	}
	return textResult(string(data))
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads a JSON number or a numeric string; anything else is 0.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

// resolve maps a lookup outcome to content, or to the error result to return.
func (a *Adapter) resolve(ctx context.Context, args map[string]any) (*entities.EnhancedContent, *mcp.CallToolResult) {
	drugName := stringArg(args, "drugName")
	genericName := stringArg(args, "genericName")

	res := a.resolver.ResolveEnhancedContent(ctx, drugName, genericName)
	switch res.Outcome {
	case services.OutcomeFound:
		return res.Content, nil
	case services.OutcomeNotFound:
		name := drugName
		if genericName != "" {
			name = fmt.Sprintf("%s (%s)", drugName, genericName)
		}
		return nil, errorResult("Drug not found: " + name)
	default:
		return nil, errorResult(fmt.Sprintf("Error: %v", res.Err))
	}
}

func (a *Adapter) getDrugByName(ctx context.Context, args map[string]any) *mcp.CallToolResult {
	content, failure := a.resolve(ctx, args)
	if failure != nil {
		return failure
	}
	return jsonResult(content)
}

func (a *Adapter) searchDrugs(ctx context.Context, args map[string]any) *mcp.CallToolResult {
	filter := repositories.DrugSearchFilter{
		Query:   stringArg(args, "query"),
		Labeler: stringArg(args, "labeler"),
		Page:    intArg(args, "page"),
		Limit:   intArg(args, "limit"),
	}.Normalize()

	page, err := a.search.Search(ctx, filter)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err))
	}
	return jsonResult(page)
}

func (a *Adapter) getEnhancedSections(ctx context.Context, args map[string]any) *mcp.CallToolResult {
	content, failure := a.resolve(ctx, args)
	if failure != nil {
		return failure
	}

	sections := make([]EnhancedSection, 0, len(content.Sections))
	for _, s := range content.Sections {
		if !s.IsEnhanced() {
			continue
		}
		sections = append(sections, EnhancedSection{
			Title:           s.Title,
			OriginalContent: s.Content,
			EnhancedContent: *s.EnhancedContent,
		})
	}
	return jsonResult(sections)
}
