package logging

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

func TestMaskHeaders(t *testing.T) {
	l := NewHTTPLogger("test", HTTPConfig{MaskedHeaders: []string{"x-session"}})

	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Cookie", "id=1")
	h.Set("X-Session", "s3cr3t")
	h.Add("Accept", "text/plain")
	h.Add("Accept", "application/json")

	got := l.MaskHeaders(h)

	for _, name := range []string{"Authorization", "Cookie", "X-Session"} {
		if got[name] != Mask {
			t.Errorf("Expected %s to be masked, got %q", name, got[name])
		}
	}
	if got["Accept"] != "application/json, text/plain" {
		t.Errorf("Expected joined Accept values, got %q", got["Accept"])
	}
}

func TestLogRequest(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelDebug, Output: buf})

	l := NewHTTPLogger("apicall", HTTPConfig{IncludeHeaders: true, IncludeBody: true})
	req := &request.Request{
		Method: http.MethodPost,
		URL:    "https://api.example.com/items",
		Header: http.Header{"Authorization": []string{"Bearer secret"}, "Content-Type": []string{"application/json"}},
		Body:   []byte(`{"name":"a"}`),
	}
	l.LogRequest(req)

	output := buf.String()
	for _, want := range []string{`"method":"POST"`, `"url":"https://api.example.com/items"`, Mask, `"component":"apicall"`, `{\"name\":\"a\"}`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got %q", want, output)
		}
	}
	if strings.Contains(output, "secret") {
		t.Errorf("Authorization leaked: %q", output)
	}
}

func TestLogResponse(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelDebug, Output: buf})

	l := NewHTTPLogger("apicall", HTTPConfig{IncludeBody: true})
	resp := &transport.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{},
		Body:       []byte("slow down"),
	}

	l.LogResponse(resp, 20*time.Millisecond, false)
	l.LogResponse(&transport.Response{StatusCode: http.StatusOK, Body: []byte("binary-bytes")}, time.Millisecond, true)

	output := buf.String()
	if !strings.Contains(output, `"status_code":429`) {
		t.Errorf("Expected status code, got %q", output)
	}
	if !strings.Contains(output, `"error_class":"rate_limit"`) {
		t.Errorf("Expected error class, got %q", output)
	}
	if !strings.Contains(output, "slow down") {
		t.Errorf("Expected body, got %q", output)
	}
	if strings.Contains(output, "binary-bytes") {
		t.Errorf("Binary body should not be logged: %q", output)
	}
}

func TestHTTPLoggerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	NewHTTPLogger("quiet", HTTPConfig{}).LogRequest(&request.Request{Method: "GET", URL: "/a", Header: http.Header{}})
	if buf.Len() != 0 {
		t.Errorf("Expected debug request line to be filtered, got %q", buf.String())
	}

	NewHTTPLogger("loud", HTTPConfig{Level: LevelInfo}).LogRequest(&request.Request{Method: "GET", URL: "/b", Header: http.Header{}})
	if !strings.Contains(buf.String(), `"url":"/b"`) {
		t.Errorf("Expected info request line, got %q", buf.String())
	}
}
