package pagination

import (
	"context"
	"fmt"

	"github.com/Sternrassler/apicore/pkg/pointer"
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// Caller issues one page request. apicall.APICall implements it.
type Caller interface {
	// RequestBuilder returns the builder of the call.
	RequestBuilder() *request.Builder

	// Strategies returns the configured candidate strategies.
	Strategies() []Strategy

	// CloneWith returns a copy of the call using b.
	CloneWith(b *request.Builder) Caller

	// Do executes the call and returns the raw response and the handled result.
	Do(ctx context.Context) (*transport.Response, any, error)
}

// Cursor is the traversal state visible to strategies.
type Cursor interface {
	// LastResponse is nil before the first page.
	LastResponse() *transport.Response

	// RequestBuilder is the builder of the last page, or the initial one.
	RequestBuilder() *request.Builder

	// PageSize is the item count of the last page.
	PageSize() int
}

// MetadataWrapper attaches the paging token used for a page to its result.
type MetadataWrapper func(result any, token any) any

// Strategy is one pagination scheme.
type Strategy interface {
	// IsApplicable reports whether the scheme fits resp. It is true for a
	// nil response. The check may cache the token extracted from resp.
	IsApplicable(resp *transport.Response) bool

	// Apply returns the request for the next page, or nil when the scheme
	// cannot continue.
	Apply(c Cursor) (*request.Builder, error)

	// ApplyMetadataWrapper wraps a page result with the current token.
	ApplyMetadataWrapper(result any) any

	// Name identifies the scheme in logs and metrics.
	Name() string

	// Clone returns an independent copy.
	Clone() Strategy
}

// base holds what every scheme needs.
type base struct {
	wrapper MetadataWrapper
}

func newBase(wrapper MetadataWrapper) (base, error) {
	if wrapper == nil {
		return base{}, ErrMissingWrapper
	}
	return base{wrapper: wrapper}, nil
}

func requirePointer(name, ptr string) error {
	if ptr == "" {
		return fmt.Errorf("%w: %s", ErrMissingPointer, name)
	}
	return nil
}

// currentBuilder returns the builder of c or the error it recorded.
func currentBuilder(c Cursor) (*request.Builder, error) {
	b := c.RequestBuilder()
	if b == nil {
		return nil, fmt.Errorf("cursor has no request builder")
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// withValue returns a clone of b with the value at ptr replaced.
func withValue(b *request.Builder, ptr string, value any) *request.Builder {
	return b.CloneWithParams(pointer.Update(b.Params(), ptr, value))
}

func initialInt(b *request.Builder, ptr string, def int) int {
	value, ok := pointer.Locate(ptr, b.Params())
	return pointer.Int(value, ok, def)
}

func cloneAll(strategies []Strategy) []Strategy {
	out := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			out = append(out, s.Clone())
		}
	}
	return out
}
