package pagination

import (
	"github.com/Sternrassler/apicore/pkg/pointer"
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// CursorStrategy reads an opaque cursor from each response and sends it
// with the next request.
type CursorStrategy struct {
	base
	output string
	input  string
	value  any
}

// NewCursor returns a cursor strategy reading from output (a response
// pointer) and writing to input (a request pointer).
func NewCursor(output, input string, wrapper MetadataWrapper) (*CursorStrategy, error) {
	b, err := newBase(wrapper)
	if err != nil {
		return nil, err
	}
	if err := requirePointer("cursor input", input); err != nil {
		return nil, err
	}
	if err := requirePointer("cursor output", output); err != nil {
		return nil, err
	}
	return &CursorStrategy{base: b, output: output, input: input}, nil
}

func (s *CursorStrategy) IsApplicable(resp *transport.Response) bool {
	if resp == nil {
		return true
	}
	value, ok := pointer.ResolveFromResponse(s.output, resp.Body, resp.Header)
	s.value = value
	return ok
}

func (s *CursorStrategy) Apply(c Cursor) (*request.Builder, error) {
	b, err := currentBuilder(c)
	if err != nil {
		return nil, err
	}
	s.value, _ = pointer.Locate(s.input, b.Params())

	last := c.LastResponse()
	if last == nil {
		return b, nil
	}

	value, ok := pointer.ResolveFromResponse(s.output, last.Body, last.Header)
	if !ok {
		s.value = nil
		return nil, nil
	}
	s.value = value
	return withValue(b, s.input, value), nil
}

func (s *CursorStrategy) ApplyMetadataWrapper(result any) any {
	return s.wrapper(result, s.value)
}

func (s *CursorStrategy) Name() string { return "cursor" }

func (s *CursorStrategy) Clone() Strategy {
	clone := *s
	return &clone
}

// Value returns the last cursor seen.
func (s *CursorStrategy) Value() any { return s.value }
