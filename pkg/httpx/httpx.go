// Package httpx defines a minimal transport-neutral handler shape so lean
// endpoints (like the health probe) can be written once and served over
// either net/http or fasthttp.
package httpx

import (
	"context"
	"io"
	"net/http"
)

// Request is the unified request representation used by handlers. Handlers
// should prefer Request.Ctx for cancellation and values.
type Request struct {
	Ctx        context.Context
	Method     string
	Path       string
	Header     http.Header
	Body       io.ReadCloser
	RemoteAddr string
	// Raw holds the underlying transport-specific request object
	// (*http.Request or *fasthttp.RequestCtx) for escape hatches.
	Raw interface{}
}

// ResponseWriter is the small subset of http.ResponseWriter semantics
// adapters must provide.
type ResponseWriter interface {
	Header() http.Header
	Write([]byte) (int, error)
	WriteHeader(status int)
}

// HandlerFunc is the application handler signature used across adapters.
type HandlerFunc func(w ResponseWriter, r *Request)
