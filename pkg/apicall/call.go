package apicall

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/apicore/pkg/logging"
	"github.com/Sternrassler/apicore/pkg/pagination"
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// APICall executes one endpoint call. Setters return the call for chaining;
// configure it fully before sharing it between goroutines.
type APICall struct {
	config     GlobalConfig
	builder    *request.Builder
	handler    *ResponseHandler
	options    transport.EndpointOptions
	strategies []pagination.Strategy
	logger     *logging.HTTPLogger
}

// New returns a call using cfg.
func New(cfg GlobalConfig) *APICall {
	return &APICall{
		config:  cfg,
		handler: NewResponseHandler(),
		logger:  logging.NewHTTPLogger("apicall", cfg.Logging),
	}
}

// Request sets the request builder.
func (c *APICall) Request(b *request.Builder) *APICall {
	c.builder = b
	return c
}

// Response sets the response handler.
func (c *APICall) Response(h *ResponseHandler) *APICall {
	c.handler = h
	return c
}

// PaginationStrategies sets the candidate strategies, in priority order.
func (c *APICall) PaginationStrategies(strategies ...pagination.Strategy) *APICall {
	c.strategies = strategies
	return c
}

// EndpointOptions sets the per-endpoint transport options.
func (c *APICall) EndpointOptions(opts transport.EndpointOptions) *APICall {
	c.options = opts
	return c
}

// RequestBuilder returns the request builder.
func (c *APICall) RequestBuilder() *request.Builder {
	return c.builder
}

// Strategies returns the configured strategies.
func (c *APICall) Strategies() []pagination.Strategy {
	return c.strategies
}

// Config returns the global configuration.
func (c *APICall) Config() GlobalConfig {
	return c.config
}

// CloneWith returns a copy of the call using b.
func (c *APICall) CloneWith(b *request.Builder) pagination.Caller {
	return c.clone(b)
}

func (c *APICall) clone(b *request.Builder) *APICall {
	clone := *c
	clone.builder = b
	clone.strategies = append([]pagination.Strategy(nil), c.strategies...)
	return &clone
}

// Execute runs the call and returns the handled result.
func (c *APICall) Execute(ctx context.Context) (any, error) {
	_, result, err := c.Do(ctx)
	return result, err
}

// Do runs the call and returns the raw response together with the handled
// result. The response is returned even when the handler reports an error.
func (c *APICall) Do(ctx context.Context) (*transport.Response, any, error) {
	if c.config.Transport == nil {
		return nil, nil, ErrNoTransport
	}
	if c.builder == nil {
		return nil, nil, ErrNoRequest
	}

	req, err := c.builder.Build(c.config.Environment)
	if err != nil {
		return nil, nil, err
	}

	c.logger.LogRequest(req)
	if c.config.Callback != nil {
		c.config.Callback.OnBeforeRequest(req)
	}

	start := time.Now()
	resp, err := c.config.Transport.Execute(ctx, req, c.options)
	duration := time.Since(start)
	RequestDuration.WithLabelValues(req.Method).Observe(duration.Seconds())
	if err != nil {
		RequestsTotal.WithLabelValues(req.Method, "error").Inc()
		return nil, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	RequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	handler := c.handler
	if handler == nil {
		handler = NewResponseHandler()
	}

	c.logger.LogResponse(resp, duration, c.options.BinaryResponse || handler.IsBinary())
	if c.config.Callback != nil {
		c.config.Callback.OnAfterResponse(resp)
	}

	result, err := handler.Handle(resp, c.config.GlobalErrors)
	return resp, result, err
}
