package pagination

import (
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// PageStrategy increments a page number after every non-empty page.
type PageStrategy struct {
	base
	input string
	page  int
}

// NewPage returns a page-number strategy writing to the input request pointer.
func NewPage(input string, wrapper MetadataWrapper) (*PageStrategy, error) {
	b, err := newBase(wrapper)
	if err != nil {
		return nil, err
	}
	if err := requirePointer("page input", input); err != nil {
		return nil, err
	}
	return &PageStrategy{base: b, input: input, page: 1}, nil
}

func (s *PageStrategy) IsApplicable(*transport.Response) bool { return true }

func (s *PageStrategy) Apply(c Cursor) (*request.Builder, error) {
	b, err := currentBuilder(c)
	if err != nil {
		return nil, err
	}
	s.page = initialInt(b, s.input, 1)

	if c.LastResponse() == nil {
		return b, nil
	}

	if c.PageSize() > 0 {
		s.page++
	}
	return withValue(b, s.input, s.page), nil
}

func (s *PageStrategy) ApplyMetadataWrapper(result any) any {
	return s.wrapper(result, s.page)
}

func (s *PageStrategy) Name() string { return "page" }

func (s *PageStrategy) Clone() Strategy {
	clone := *s
	return &clone
}

// Page returns the page number of the last request.
func (s *PageStrategy) Page() int { return s.page }
