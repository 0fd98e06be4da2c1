package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxMessageSize bounds one JSON-RPC message.
const maxMessageSize = 4 << 20

// ServeStdio reads one JSON-RPC message per line from r and writes each
// response as a line to w. It blocks until r is exhausted or ctx is cancelled.
func ServeStdio(ctx context.Context, a *Adapter, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp, reply := a.HandleMessage(ctx, line)
		if !reply {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// ServeHTTP returns an http.Handler that accepts POSTed JSON-RPC bodies and
// writes JSON responses.
func ServeHTTP(a *Adapter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(req.Body, maxMessageSize))
		if err != nil {
			writeResponse(w, errorResponse(nil, ErrCodeInternal, fmt.Sprintf("failed to read request: %v", err)))
			return
		}

		resp, reply := a.HandleMessage(req.Context(), body)
		if !reply {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeResponse(w, resp)
	})
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
