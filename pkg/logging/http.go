package logging

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// Mask replaces the value of a sensitive header.
const Mask = "**Redacted**"

// DefaultMaskedHeaders are never logged in clear text.
var DefaultMaskedHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"Proxy-Authorization",
	"X-Api-Key",
}

// HTTPConfig controls request and response logging.
type HTTPConfig struct {
	// Level is the level of request and response lines (default: debug).
	Level LogLevel

	// IncludeHeaders adds the (masked) headers.
	IncludeHeaders bool

	// IncludeBody adds the raw body. Binary responses are never logged.
	IncludeBody bool

	// MaskedHeaders are masked in addition to DefaultMaskedHeaders.
	MaskedHeaders []string
}

// HTTPLogger writes one line per request and one per response.
type HTTPLogger struct {
	logger zerolog.Logger
	level  zerolog.Level
	cfg    HTTPConfig
	masked map[string]struct{}
}

// NewHTTPLogger creates a logger for the given component.
func NewHTTPLogger(component string, cfg HTTPConfig) *HTTPLogger {
	level := zerolog.DebugLevel
	if cfg.Level != "" {
		level = cfg.Level.Zerolog()
	}

	masked := make(map[string]struct{}, len(DefaultMaskedHeaders)+len(cfg.MaskedHeaders))
	for _, name := range DefaultMaskedHeaders {
		masked[http.CanonicalHeaderKey(name)] = struct{}{}
	}
	for _, name := range cfg.MaskedHeaders {
		masked[http.CanonicalHeaderKey(name)] = struct{}{}
	}

	return &HTTPLogger{
		logger: NewLogger(component),
		level:  level,
		cfg:    cfg,
		masked: masked,
	}
}

// LogRequest logs an outbound request.
func (l *HTTPLogger) LogRequest(req *request.Request) {
	if req == nil {
		return
	}
	event := l.logger.WithLevel(l.level).
		Str("method", req.Method).
		Str("url", req.URL)
	if ct := req.Header.Get("Content-Type"); ct != "" {
		event = event.Str("content_type", ct)
	}
	if l.cfg.IncludeHeaders {
		event = event.Interface("headers", l.MaskHeaders(req.Header))
	}
	if l.cfg.IncludeBody && len(req.Body) > 0 {
		event = event.Str("body", string(req.Body))
	}
	event.Msg("Request")
}

// LogResponse logs a received response.
func (l *HTTPLogger) LogResponse(resp *transport.Response, duration time.Duration, binary bool) {
	if resp == nil {
		return
	}
	event := l.logger.WithLevel(l.level).
		Int("status_code", resp.StatusCode).
		Bool("cache_hit", resp.FromCache).
		Int("content_length", len(resp.Body)).
		Dur("duration", duration)
	if class := transport.ClassifyStatus(resp.StatusCode); class != "" {
		event = event.Str("error_class", string(class))
	}
	if l.cfg.IncludeHeaders {
		event = event.Interface("headers", l.MaskHeaders(resp.Header))
	}
	if l.cfg.IncludeBody && !binary && len(resp.Body) > 0 {
		event = event.Str("body", resp.Text())
	}
	event.Msg("Response")
}

// MaskHeaders flattens h and replaces sensitive values with Mask.
func (l *HTTPLogger) MaskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		key := http.CanonicalHeaderKey(name)
		if _, ok := l.masked[key]; ok {
			out[key] = Mask
			continue
		}
		sorted := append([]string(nil), values...)
		sort.Strings(sorted)
		out[key] = strings.Join(sorted, ", ")
	}
	return out
}
