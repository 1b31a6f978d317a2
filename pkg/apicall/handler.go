package apicall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/spf13/cast"

	"github.com/Sternrassler/apicore/pkg/pointer"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// Deserializer converts a response body into a result.
type Deserializer func(body []byte) (any, error)

// JSON returns a deserializer decoding into a T. The result is a T value.
func JSON[T any]() Deserializer {
	return func(body []byte) (any, error) {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode %T: %w", v, err)
		}
		return v, nil
	}
}

// DynamicJSON decodes into maps, slices and json.Number values.
func DynamicJSON(body []byte) (any, error) {
	container, err := pointer.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return container.Data(), nil
}

// ErrorCase maps a matched status to an error.
type ErrorCase struct {
	// Message is used as is.
	Message string

	// Template overrides Message. Placeholders are {$statusCode},
	// {$response.body}, {$response.body#/pointer} and {$response.header.Name}.
	Template string

	// New builds the error. The default is an *APIError.
	New func(message string, resp *transport.Response) error
}

func (c ErrorCase) build(resp *transport.Response) error {
	message := c.Message
	if c.Template != "" {
		message = renderTemplate(c.Template, resp)
	}
	if c.New != nil {
		return c.New(message, resp)
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: transport.ClassifyStatus(resp.StatusCode),
		Message:    message,
		Response:   resp,
	}
}

var placeholder = regexp.MustCompile(`\{\$[^{}]+\}`)

func renderTemplate(tmpl string, resp *transport.Response) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		ptr := match[1 : len(match)-1]
		switch ptr {
		case "$statusCode":
			return strconv.Itoa(resp.StatusCode)
		case "$response.body":
			return resp.Text()
		}
		value, ok := pointer.ResolveFromResponse(ptr, resp.Body, resp.Header)
		if !ok {
			return ""
		}
		if s, err := cast.ToStringE(value); err == nil {
			return s
		}
		encoded, _ := json.Marshal(value)
		return string(encoded)
	})
}

// APIResponse wraps a result with the response metadata.
type APIResponse struct {
	StatusCode int
	Header     http.Header
	Text       string
	Body       any
}

// IsSuccess reports a 2xx status.
func (r *APIResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ResponseHandler validates and converts responses of one endpoint.
// Configure it before the call is shared.
type ResponseHandler struct {
	deserializer Deserializer
	localErrors  map[string]ErrorCase
	nullOn404    bool
	wrap         bool
	binary       bool
}

// NewResponseHandler returns a handler decoding JSON into dynamic values.
func NewResponseHandler() *ResponseHandler {
	return &ResponseHandler{
		deserializer: DynamicJSON,
		localErrors:  map[string]ErrorCase{},
	}
}

// Deserializer sets the body deserializer.
func (h *ResponseHandler) Deserializer(d Deserializer) *ResponseHandler {
	h.deserializer = d
	return h
}

// LocalError adds an error case for key: a status ("404"), a range ("5XX") or "default".
func (h *ResponseHandler) LocalError(key string, c ErrorCase) *ResponseHandler {
	h.localErrors[key] = c
	return h
}

// NullOn404 returns a nil result instead of an error for 404 responses.
func (h *ResponseHandler) NullOn404() *ResponseHandler {
	h.nullOn404 = true
	return h
}

// WrapAPIResponse returns results as *APIResponse.
func (h *ResponseHandler) WrapAPIResponse() *ResponseHandler {
	h.wrap = true
	return h
}

// Binary returns the raw body bytes as result.
func (h *ResponseHandler) Binary() *ResponseHandler {
	h.binary = true
	return h
}

// IsBinary reports whether the handler returns raw bytes.
func (h *ResponseHandler) IsBinary() bool {
	return h.binary
}

// Handle validates resp and converts its body. A blank body yields a nil result.
func (h *ResponseHandler) Handle(resp *transport.Response, globalErrors map[string]ErrorCase) (any, error) {
	if resp == nil {
		return nil, nil
	}
	if h.nullOn404 && resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := h.validate(resp, globalErrors); err != nil {
		return nil, err
	}

	var result any
	switch {
	case h.binary:
		result = resp.Body
	case len(bytes.TrimSpace(resp.Body)) == 0:
	default:
		deserialize := h.deserializer
		if deserialize == nil {
			deserialize = DynamicJSON
		}
		v, err := deserialize(resp.Body)
		if err != nil {
			return nil, err
		}
		result = v
	}

	if h.wrap {
		return &APIResponse{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Text:       resp.Text(),
			Body:       result,
		}, nil
	}
	return result, nil
}

// validate matches non-2xx statuses against local cases, then global ones.
// A local default only applies when no global case names the status.
func (h *ResponseHandler) validate(resp *transport.Response, globalErrors map[string]ErrorCase) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	status := strconv.Itoa(resp.StatusCode)
	statusRange := status[:1] + "XX"

	for _, key := range []string{status, statusRange} {
		if c, ok := h.localErrors[key]; ok {
			return c.build(resp)
		}
	}
	for _, key := range []string{status, statusRange} {
		if c, ok := globalErrors[key]; ok {
			return c.build(resp)
		}
	}
	if c, ok := h.localErrors["default"]; ok {
		return c.build(resp)
	}
	if c, ok := globalErrors["default"]; ok {
		return c.build(resp)
	}
	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: transport.ClassifyStatus(resp.StatusCode),
			Message:    http.StatusText(resp.StatusCode),
			Response:   resp,
		}
	}
	return nil
}
