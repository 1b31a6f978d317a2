package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/apicore/pkg/cache"
	"github.com/Sternrassler/apicore/pkg/ratelimit"
	"github.com/Sternrassler/apicore/pkg/request"
)

// Config holds the HTTP transport configuration.
type Config struct {
	// HTTPClient overrides the client built from Timeout and Proxy.
	HTTPClient *http.Client

	// Timeout of a single attempt.
	Timeout time.Duration

	// UserAgent is set when the request carries none.
	UserAgent string

	// Proxy routes requests through an HTTP(S) proxy.
	Proxy *ProxySettings

	// Cache enables the Redis response cache for GET requests.
	Cache *cache.Manager

	// RateLimit gates requests on the budget reported in response headers.
	RateLimit *ratelimit.Tracker

	// RetryPolicy selects backoff per error class when EndpointOptions.Retry is set.
	RetryPolicy RetryPolicy
}

// DefaultConfig returns a default transport configuration without cache or proxy.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		UserAgent:   "apicore/1.0",
		RetryPolicy: RetryConfigForErrorClass,
	}
}

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	httpClient *http.Client
	cache      *cache.Manager
	limiter    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// NewHTTPTransport creates a transport from cfg.
func NewHTTPTransport(cfg Config) (*HTTPTransport, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if cfg.HTTPClient != nil && cfg.Proxy != nil {
		return nil, fmt.Errorf("proxy settings cannot be combined with a custom http client")
	}
	if cfg.Proxy != nil && strings.TrimSpace(cfg.Proxy.Address) == "" {
		return nil, fmt.Errorf("proxy address is required")
	}
	if cfg.RetryPolicy == nil {
		cfg.RetryPolicy = RetryConfigForErrorClass
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Proxy != nil {
			base.Proxy = cfg.Proxy.Func()
		}
		httpClient = &http.Client{Timeout: cfg.Timeout, Transport: base}
	}

	logger := log.With().Str("component", "transport").Logger()
	if cfg.Proxy != nil {
		logger.Debug().Stringer("proxy", cfg.Proxy).Msg("Using proxy")
	}

	return &HTTPTransport{
		httpClient: httpClient,
		cache:      cfg.Cache,
		limiter:    cfg.RateLimit,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Execute sends req. The cache is consulted for GET requests, retries are
// applied to network errors, 5xx and 429 when opts.Retry is set. A retryable
// status that persists is returned as a response, not an error.
func (t *HTTPTransport) Execute(ctx context.Context, req *request.Request, opts EndpointOptions) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	var (
		cacheKey cache.Key
		cached   *cache.Entry
	)
	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}

	if t.cacheable(req) {
		key, err := cache.KeyFromRequest(req)
		if err != nil {
			t.logger.Warn().Err(err).Msg("Cache key error")
		} else {
			cacheKey = key
			entry, err := t.cache.Get(ctx, key)
			if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
				t.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
			}
			if entry != nil && !entry.IsExpired() {
				t.logger.Debug().Str("key", key.String()).Msg("Serving response from cache")
				return entryResponse(req, entry), nil
			}
			if entry.CanRevalidate() {
				cached = entry
				conditional := &request.Request{Header: header}
				cache.AddConditionalHeaders(conditional, entry)
				t.logger.Debug().Str("key", key.String()).Str("etag", entry.ETag).Msg("Making conditional request")
			}
		}
	}

	if header.Get("User-Agent") == "" && t.config.UserAgent != "" {
		header.Set("User-Agent", t.config.UserAgent)
	}

	payload, err := encodePayload(req, header)
	if err != nil {
		return nil, err
	}

	host := requestHost(req.URL)

	var resp *Response
	send := func() error {
		if err := t.acquire(ctx, host); err != nil {
			return err
		}
		r, err := t.send(ctx, req, header, payload)
		if err != nil {
			transportErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			transportRequestsTotal.WithLabelValues(req.Method, "network_error").Inc()
			return err
		}
		resp = r
		t.recordBudget(ctx, host, r.Header)
		transportRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(r.StatusCode)).Inc()

		class := ClassifyStatus(r.StatusCode)
		if class != "" {
			transportErrorsTotal.WithLabelValues(string(class)).Inc()
		}
		if class.Retryable() {
			return &StatusError{StatusCode: r.StatusCode, ErrorClass: class, RetryAfter: retryAfter(r.Header, time.Now())}
		}
		return nil
	}

	if opts.Retry && payload.replayable() {
		err = retryWithBackoff(ctx, t.logger, t.config.RetryPolicy, send, classifyError)
	} else {
		err = send()
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && resp != nil {
		err = nil
	}
	if err != nil {
		t.logger.Error().Err(err).Str("url", req.URL).Msg("HTTP request failed")
		return nil, err
	}

	if cached != nil && resp.StatusCode == http.StatusNotModified {
		cache.NotModifiedResponses.Inc()
		t.logger.Debug().Str("key", cacheKey.String()).Msg("304 Not Modified - using cache")
		if fresh := cache.NewEntry(cached.StatusCode, resp.Header, nil, t.cache.DefaultTTL()); fresh != nil {
			if err := t.cache.Refresh(ctx, cacheKey, cached, fresh.Expires); err != nil {
				t.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
			}
		}
		return entryResponse(req, cached), nil
	}

	if t.cacheable(req) && cacheKey.Method != "" && resp.IsSuccess() {
		if entry := cache.NewEntry(resp.StatusCode, resp.Header, resp.Body, t.cache.DefaultTTL()); entry != nil {
			if err := t.cache.Set(ctx, cacheKey, entry); err != nil {
				t.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				t.logger.Debug().Str("key", cacheKey.String()).Dur("ttl", entry.TTL()).Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// acquire consults the rate limit tracker. Tracker failures other than a
// blocked budget do not stop the request.
func (t *HTTPTransport) acquire(ctx context.Context, host string) error {
	if t.limiter == nil || host == "" {
		return nil
	}
	err := t.limiter.Acquire(ctx, host)
	if err == nil || errors.Is(err, ratelimit.ErrBlocked) || ctx.Err() != nil {
		return err
	}
	t.logger.Warn().Err(err).Str("host", host).Msg("Rate limit check failed")
	return nil
}

func (t *HTTPTransport) recordBudget(ctx context.Context, host string, header http.Header) {
	if t.limiter == nil || host == "" {
		return
	}
	if err := t.limiter.UpdateFromHeaders(ctx, host, header); err != nil {
		t.logger.Warn().Err(err).Str("host", host).Msg("Failed to update rate limit state")
	}
}

func requestHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func (t *HTTPTransport) cacheable(req *request.Request) bool {
	return t.cache != nil && req.Method == http.MethodGet && req.BodyStream == nil
}

func (t *HTTPTransport) send(ctx context.Context, req *request.Request, header http.Header, p payload) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, p.reader())
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header = header.Clone()

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		Request:    req,
	}, nil
}

func classifyError(err error) ErrorClass {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.ErrorClass
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ratelimit.ErrBlocked) {
		return ""
	}
	return ErrorClassNetwork
}

func entryResponse(req *request.Request, entry *cache.Entry) *Response {
	return &Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Headers.Clone(),
		Body:       entry.Data,
		Request:    req,
		FromCache:  true,
	}
}

// payload is an encoded request body. Byte payloads can be replayed across
// retries, streams cannot.
type payload struct {
	data   []byte
	stream io.Reader
}

func (p payload) replayable() bool {
	return p.stream == nil
}

func (p payload) reader() io.Reader {
	if p.stream != nil {
		return p.stream
	}
	if p.data == nil {
		return nil
	}
	return bytes.NewReader(p.data)
}

// encodePayload serializes form, multipart or raw bodies and sets the
// matching Content-Type on header when it is not already set.
func encodePayload(req *request.Request, header http.Header) (payload, error) {
	switch {
	case len(req.Files) > 0:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for key, values := range req.Form {
			for _, v := range values {
				if err := w.WriteField(key, v); err != nil {
					return payload{}, fmt.Errorf("write multipart field: %w", err)
				}
			}
		}
		for _, f := range req.Files {
			if err := writePart(w, f); err != nil {
				return payload{}, err
			}
		}
		if err := w.Close(); err != nil {
			return payload{}, fmt.Errorf("close multipart writer: %w", err)
		}
		header.Set("Content-Type", w.FormDataContentType())
		return payload{data: buf.Bytes()}, nil
	case len(req.Form) > 0:
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		return payload{data: []byte(req.Form.Encode())}, nil
	case req.BodyStream != nil:
		return payload{stream: req.BodyStream}, nil
	case req.Body != nil:
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
		return payload{data: req.Body}, nil
	default:
		return payload{}, nil
	}
}

func writePart(w *multipart.Writer, f request.FilePart) error {
	h := make(textproto.MIMEHeader)
	disposition := fmt.Sprintf(`form-data; name=%q`, f.Field)
	if f.FileName != "" {
		disposition += fmt.Sprintf(`; filename=%q`, f.FileName)
	}
	h.Set("Content-Disposition", disposition)
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create multipart part %q: %w", f.Field, err)
	}
	if f.Reader == nil {
		return nil
	}
	if _, err := io.Copy(part, f.Reader); err != nil {
		return fmt.Errorf("write multipart part %q: %w", f.Field, err)
	}
	return nil
}
