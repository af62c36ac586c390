package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// streamEmitter flushes answer chunks to the client as SSE events. Headers
// are written lazily on the first chunk so an early failure can still become
// a proper error status.
type streamEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newStreamEmitter(w http.ResponseWriter) (*streamEmitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &streamEmitter{w: w, flusher: flusher}, nil
}

func (e *streamEmitter) Emit(ctx context.Context, chunk []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.started {
		e.w.Header().Set("Content-Type", "text/event-stream")
		e.w.Header().Set("Cache-Control", "no-cache")
		e.w.Header().Set("Connection", "keep-alive")
		e.w.WriteHeader(http.StatusOK)
		e.started = true
	}

	payload, err := json.Marshal(map[string]string{"delta": string(chunk)})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

func (e *streamEmitter) Close() {
	if !e.started {
		return
	}
	fmt.Fprint(e.w, "data: [DONE]\n\n")
	e.flusher.Flush()
}

// bufferEmitter accumulates the answer for the single-envelope variant.
type bufferEmitter struct {
	b strings.Builder
}

func (e *bufferEmitter) Emit(_ context.Context, chunk []byte) error {
	e.b.Write(chunk)
	return nil
}

func (e *bufferEmitter) String() string {
	return e.b.String()
}
