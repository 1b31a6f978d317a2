// Package transport executes built requests.
//
// Transport is the contract the call orchestration depends on. HTTPTransport
// is the default implementation on net/http with optional retry, proxy and
// Redis response cache support.
package transport

import (
	"context"
	"net/http"
	"sync"

	"github.com/Sternrassler/apicore/pkg/request"
)

// Transport sends a request and returns the received response.
// Non-2xx statuses are responses, not errors.
type Transport interface {
	Execute(ctx context.Context, req *request.Request, opts EndpointOptions) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *request.Request, opts EndpointOptions) (*Response, error)

// Execute calls f.
func (f TransportFunc) Execute(ctx context.Context, req *request.Request, opts EndpointOptions) (*Response, error) {
	return f(ctx, req, opts)
}

// EndpointOptions are per-endpoint execution options.
type EndpointOptions struct {
	// BinaryResponse marks the body as opaque bytes.
	BinaryResponse bool

	// Retry enables retries of transient failures.
	Retry bool
}

// Response is a received response. It is not modified after Execute returns.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Request is the request that produced the response.
	Request *request.Request

	// FromCache is set when the body was served from the response cache.
	FromCache bool
}

// Text returns the body as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Callback observes requests before they are sent and responses after they
// are received.
type Callback interface {
	OnBeforeRequest(req *request.Request)
	OnAfterResponse(resp *Response)
}

// Recorder is a Callback that keeps the last request and response.
type Recorder struct {
	mu       sync.RWMutex
	request  *request.Request
	response *Response
}

// OnBeforeRequest records req.
func (r *Recorder) OnBeforeRequest(req *request.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.request = req
}

// OnAfterResponse records resp.
func (r *Recorder) OnAfterResponse(resp *Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.response = resp
}

// Request returns the last recorded request.
func (r *Recorder) Request() *request.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.request
}

// Response returns the last recorded response.
func (r *Recorder) Response() *Response {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.response
}
