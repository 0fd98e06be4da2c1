package tools

import (
	"bytes"
	"encoding/json"
	"strings"
)

// JSON-RPC 2.0 envelope version
const jsonRPCVersion = "2.0"

// JSON-RPC 2.0 error codes
const (
	ErrCodeMethodNotFound = -32601
	ErrCodeInternal       = -32603
)

// Request is an incoming JSON-RPC tool request. ID keeps the raw bytes of the
// request id so it is echoed exactly; it is absent for notifications.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response. ID is always present and is null when the
// request carried none.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

var nullID = json.RawMessage("null")

// responseID returns id, or null when the request carried none.
func responseID(id json.RawMessage) json.RawMessage {
	if !hasID(id) {
		return nullID
	}
	return id
}

// hasID reports whether id is present and not a literal null.
func hasID(id json.RawMessage) bool {
	trimmed := bytes.TrimSpace(id)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, nullID)
}

func resultResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: jsonRPCVersion, ID: responseID(id), Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) Response {
	return Response{
		JSONRPC: jsonRPCVersion,
		ID:      responseID(id),
		Error:   &RPCError{Code: code, Message: message},
	}
}

// isNotification reports whether method is a client notification that expects no reply.
func isNotification(method string) bool {
	return strings.HasPrefix(method, "notifications/")
}
