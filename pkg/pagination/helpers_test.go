package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/spf13/cast"

	"github.com/Sternrassler/apicore/pkg/pointer"
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// page is the wrapped result used throughout the tests.
type page struct {
	Items []string
	Token any
}

func wrap(result any, token any) any {
	if result == nil {
		return nil
	}
	return page{Items: result.([]string), Token: token}
}

func extract(p any) []string {
	return p.(page).Items
}

// stubCursor is a fixed traversal state for strategy tests.
type stubCursor struct {
	last    *transport.Response
	builder *request.Builder
	size    int
}

func (c stubCursor) LastResponse() *transport.Response { return c.last }
func (c stubCursor) RequestBuilder() *request.Builder  { return c.builder }
func (c stubCursor) PageSize() int                     { return c.size }

func jsonResponse(body any) *transport.Response {
	data, _ := json.Marshal(body)
	return &transport.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       data,
	}
}

// fakeCaller serves a fixed item set. serve receives the parameters of the
// request being executed.
type fakeCaller struct {
	builder    *request.Builder
	strategies []Strategy
	serve      func(p pointer.Params) (*transport.Response, any, error)
	calls      *atomic.Int32
}

func newFakeCaller(serve func(pointer.Params) (*transport.Response, any, error), strategies ...Strategy) *fakeCaller {
	return &fakeCaller{
		builder:    request.NewBuilder().Server("default").Path("/items"),
		strategies: strategies,
		serve:      serve,
		calls:      &atomic.Int32{},
	}
}

func (f *fakeCaller) RequestBuilder() *request.Builder { return f.builder }
func (f *fakeCaller) Strategies() []Strategy           { return f.strategies }

func (f *fakeCaller) CloneWith(b *request.Builder) Caller {
	clone := *f
	clone.builder = b
	return &clone
}

func (f *fakeCaller) Do(ctx context.Context) (*transport.Response, any, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := f.builder.Err(); err != nil {
		return nil, nil, err
	}
	f.calls.Add(1)
	return f.serve(f.builder.Params())
}

func items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("item_%d", i+1)
	}
	return out
}

func window(all []string, start, size int) []string {
	if start >= len(all) {
		return []string{}
	}
	end := min(start+size, len(all))
	return all[start:end]
}

// offsetServer pages all by the "offset" query parameter.
func offsetServer(all []string, size int) func(pointer.Params) (*transport.Response, any, error) {
	return func(p pointer.Params) (*transport.Response, any, error) {
		offset := cast.ToInt(p.Query["offset"])
		data := window(all, offset, size)
		return jsonResponse(map[string]any{"data": data}), data, nil
	}
}

// pageServer pages all by the 1-based "page" query parameter.
func pageServer(all []string, size int) func(pointer.Params) (*transport.Response, any, error) {
	return func(p pointer.Params) (*transport.Response, any, error) {
		n := pointer.Int(p.Query["page"], true, 1)
		data := window(all, (n-1)*size, size)
		return jsonResponse(map[string]any{"data": data}), data, nil
	}
}

// cursorServer returns a "next" cursor in the body until the last page.
func cursorServer(all []string, size int) func(pointer.Params) (*transport.Response, any, error) {
	return func(p pointer.Params) (*transport.Response, any, error) {
		start := 0
		if c, ok := p.Query["cursor"]; ok {
			start = cast.ToInt(c)
		}
		data := window(all, start, size)
		body := map[string]any{"data": data}
		if start+size < len(all) {
			body["next"] = cast.ToString(start + size)
		}
		return jsonResponse(body), data, nil
	}
}

// linkServer returns a next link in the body until the last page.
func linkServer(all []string, size int) func(pointer.Params) (*transport.Response, any, error) {
	return func(p pointer.Params) (*transport.Response, any, error) {
		n := pointer.Int(p.Query["page"], true, 1)
		start := (n - 1) * size
		data := window(all, start, size)
		body := map[string]any{"data": data, "links": map[string]any{}}
		if start+size < len(all) {
			body["links"] = map[string]any{"next": fmt.Sprintf("https://api.example.com/items?page=%d", n+1)}
		}
		return jsonResponse(body), data, nil
	}
}

var errBoom = errors.New("boom")

func mustCursor(output, input string) *CursorStrategy {
	s, err := NewCursor(output, input, wrap)
	if err != nil {
		panic(err)
	}
	return s
}

func mustOffset(input string) *OffsetStrategy {
	s, err := NewOffset(input, wrap)
	if err != nil {
		panic(err)
	}
	return s
}

func mustPage(input string) *PageStrategy {
	s, err := NewPage(input, wrap)
	if err != nil {
		panic(err)
	}
	return s
}

func mustLink(next string) *LinkStrategy {
	s, err := NewLink(next, wrap)
	if err != nil {
		panic(err)
	}
	return s
}
