// Package testutil provides a mock paged transactions API for tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// DefaultPageSize is the page size used when a request names none.
const DefaultPageSize = 5

// Transaction is one item of the mock API.
type Transaction struct {
	ID        string  `json:"id"`
	Amount    float64 `json:"amount"`
	Timestamp string  `json:"timestamp"`
}

// Transactions returns the fixed data set served by MockAPI: txn_1 to txn_20.
func Transactions() []Transaction {
	base := time.Date(2025, time.March, 11, 12, 0, 0, 0, time.UTC)
	out := make([]Transaction, 20)
	for i := range out {
		out[i] = Transaction{
			ID:        fmt.Sprintf("txn_%d", i+1),
			Amount:    float64((i+1)*2500+25) / 100,
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute).Format(http.TimeFormat),
		}
	}
	return out
}

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI serves the transactions data set with four paging schemes:
//
//	/transactions/cursor  ?cursor=<id>&limit=n   body: data, nextCursor
//	/transactions/offset  ?offset=n&limit=n      body: data
//	/transactions/page    ?page=n&size=n         body: data
//	/transactions/links   ?page=n&size=n         body: data, links.next
//
// Other paths can be configured with SetHandler or SetResponse.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	maxAge   time.Duration
	data     []Transaction

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	paths             map[string]int
}

// NewMockAPI creates a mock API. Call Start to serve it over HTTP.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		paths:    make(map[string]int),
		data:     Transactions(),
	}
}

// NewMockServer creates a started mock API.
func NewMockServer() *MockAPI {
	m := NewMockAPI()
	m.Start()
	return m
}

// Start serves the mock over a local HTTP server.
func (m *MockAPI) Start() {
	m.server = httptest.NewServer(m)
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	if m.server == nil {
		return "http://mock.local"
	}
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	if m.server != nil {
		m.server.Close()
	}
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.paths = make(map[string]int)
}

// SetMaxAge makes paged responses cacheable for d, with an ETag per page.
func (m *MockAPI) SetMaxAge(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxAge = d
}

// SetData replaces the served data set.
func (m *MockAPI) SetData(data []Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockAPI) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths[path]
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// ServeHTTP implements http.Handler.
func (m *MockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.paths[r.URL.Path]++
	m.LastRequestHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.ConditionalCount++
	}
	handler, exists := m.handlers[r.URL.Path]
	m.mu.Unlock()

	if exists {
		handler(w, r)
		return
	}
	m.transactionsHandler(w, r)
}

// Transport returns an in-memory transport that serves requests through
// ServeHTTP without opening a socket.
func (m *MockAPI) Transport() transport.Transport {
	return transport.TransportFunc(func(ctx context.Context, req *request.Request, _ transport.EndpointOptions) (*transport.Response, error) {
		var body io.Reader
		if len(req.Body) > 0 {
			body = strings.NewReader(string(req.Body))
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
		if err != nil {
			return nil, err
		}
		httpReq.Header = req.Header.Clone()

		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, httpReq)
		result := rec.Result()
		defer result.Body.Close()

		data, err := io.ReadAll(result.Body)
		if err != nil {
			return nil, err
		}
		return &transport.Response{
			StatusCode: result.StatusCode,
			Header:     result.Header,
			Body:       data,
			Request:    req,
		}, nil
	})
}

func (m *MockAPI) transactionsHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	data := m.data
	maxAge := m.maxAge
	m.mu.RUnlock()

	q := r.URL.Query()
	body := map[string]any{}
	var start, size int

	switch r.URL.Path {
	case "/transactions/cursor":
		size = intParam(q.Get("limit"), DefaultPageSize)
		start = cursorStart(data, q.Get("cursor"))
		batch := window(data, start, size)
		body["data"] = batch
		body["nextCursor"] = nil
		if start+size < len(data) && len(batch) > 0 {
			body["nextCursor"] = batch[len(batch)-1].ID
		}
	case "/transactions/offset":
		size = intParam(q.Get("limit"), DefaultPageSize)
		start = intParam(q.Get("offset"), 0)
		body["data"] = window(data, start, size)
	case "/transactions/page":
		size = intParam(q.Get("size"), DefaultPageSize)
		start = (intParam(q.Get("page"), 1) - 1) * size
		body["data"] = window(data, start, size)
	case "/transactions/links":
		size = intParam(q.Get("size"), DefaultPageSize)
		page := intParam(q.Get("page"), 1)
		start = (page - 1) * size
		body["data"] = window(data, start, size)
		links := map[string]any{}
		if start+size < len(data) {
			links["next"] = fmt.Sprintf("/transactions/links?page=%d&size=%d", page+1, size)
		}
		body["links"] = links
	default:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "not found"}`))
		return
	}

	etag := fmt.Sprintf(`"%s-%d-%d"`, strings.TrimPrefix(r.URL.Path, "/transactions/"), start, size)
	if maxAge > 0 {
		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(maxAge.Seconds())))
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(maxAge.Seconds())))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

func window(data []Transaction, start, size int) []Transaction {
	if start < 0 || start >= len(data) || size <= 0 {
		return []Transaction{}
	}
	return data[start:min(start+size, len(data))]
}

// cursorStart returns the index after the transaction named by cursor.
func cursorStart(data []Transaction, cursor string) int {
	if cursor == "" {
		return 0
	}
	for i, txn := range data {
		if txn.ID == cursor {
			return i + 1
		}
	}
	return len(data)
}

func intParam(value string, def int) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  "1",
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewConditionalHandler creates a handler that responds with 304 for conditional requests.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "max-age=1")

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
