package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/zatekoja/druglabels/backend/internal/application/services"
	"github.com/zatekoja/druglabels/backend/internal/domain/repositories"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
	"github.com/zatekoja/druglabels/backend/pkg/config"
)

// protocolVersion is the MCP revision reported by initialize.
const protocolVersion = "2025-06-18"

// EnhancedContentResolver resolves a drug by name to its enhanced content.
// Implemented by services.EnhancementService.
type EnhancedContentResolver interface {
	ResolveEnhancedContent(ctx context.Context, drugName, genericName string) services.ContentResult
}

// Adapter answers JSON-RPC tool requests. Tool failures become tool results
// with isError set; only protocol failures produce an envelope error.
type Adapter struct {
	resolver EnhancedContentResolver
	search   repositories.DrugSearchRepository
	info     mcp.Implementation
	tools    []*mcp.Tool
	schemas  map[string]*jsonschema.Resolved
}

// NewAdapter creates the tool adapter.
func NewAdapter(resolver EnhancedContentResolver, search repositories.DrugSearchRepository, cfg config.ToolsConfig) (*Adapter, error) {
	tools := catalog()
	schemas, err := resolveSchemas(tools)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		resolver: resolver,
		search:   search,
		info:     mcp.Implementation{Name: cfg.ServerName, Version: cfg.ServerVersion},
		tools:    tools,
		schemas:  schemas,
	}, nil
}

// Tools returns the tool catalog.
func (a *Adapter) Tools() []*mcp.Tool {
	return a.tools
}

// HandleMessage decodes one raw JSON-RPC message and handles it. A message
// that is not a valid request yields an internal error with a null id. The
// boolean is false for notifications, which get no reply.
func (a *Adapter) HandleMessage(ctx context.Context, data []byte) (Response, bool) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(nil, ErrCodeInternal, fmt.Sprintf("malformed request: %v", err)), true
	}
	resp := a.HandleRequest(ctx, req)
	return resp, hasID(req.ID) || !isNotification(req.Method)
}

// HandleRequest processes a request and returns exactly one response. A
// missing jsonrpc member is read as 2.0.
func (a *Adapter) HandleRequest(ctx context.Context, req Request) Response {
	if req.Method == "" {
		return errorResponse(req.ID, ErrCodeInternal, "malformed request: method is required")
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		return errorResponse(req.ID, ErrCodeInternal, fmt.Sprintf("malformed request: unsupported jsonrpc version %q", req.JSONRPC))
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, a.initializeResult())
	case "ping", "notifications/initialized":
		return resultResponse(req.ID, struct{}{})
	case "tools/list":
		return resultResponse(req.ID, &mcp.ListToolsResult{Tools: a.tools})
	case "tools/call":
		return a.handleToolsCall(ctx, req)
	default:
		return errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method %s not found", req.Method))
	}
}

func (a *Adapter) initializeResult() *mcp.InitializeResult {
	info := a.info
	return &mcp.InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{},
		},
		ServerInfo: &info,
	}
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (a *Adapter) handleToolsCall(ctx context.Context, req Request) Response {
	var params toolsCallParams
	if len(req.Params) == 0 {
		return errorResponse(req.ID, ErrCodeInternal, "malformed request: tools/call requires params")
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, ErrCodeInternal, fmt.Sprintf("malformed tools/call params: %v", err))
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	return resultResponse(req.ID, a.CallTool(ctx, params.Name, params.Arguments))
}

// CallTool runs the named tool. Every failure, including a panic, is
// returned as a result with IsError set.
func (a *Adapter) CallTool(ctx context.Context, name string, args map[string]any) (result *mcp.CallToolResult) {
	ctx, span := observability.StartSpan(ctx, "tools.CallTool")
	defer span.End()

	logger := observability.LoggerFromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("tool", name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("tool dispatch panicked")
			result = errorResult(fmt.Sprintf("Error: %v", r))
		}
	}()

	schema, ok := a.schemas[name]
	if !ok {
		return errorResult("Unknown tool: " + name)
	}
	if err := schema.Validate(args); err != nil {
		if !lenientTools[name] {
			return errorResult(fmt.Sprintf("Invalid arguments for %s: %v", name, err))
		}
		logger.Debug().Err(err).Str("tool", name).Msg("tool arguments do not match schema, applying defaults")
	}

	switch name {
	case ToolGetDrugByName:
		result = a.getDrugByName(ctx, args)
	case ToolSearchDrugs:
		result = a.searchDrugs(ctx, args)
	case ToolGetEnhancedSections:
		result = a.getEnhancedSections(ctx, args)
	default:
		result = errorResult("Unknown tool: " + name)
	}

	if result.IsError {
		logger.Info().Str("tool", name).Msg("tool call returned an error result")
	}
	return result
}
