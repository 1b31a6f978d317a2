package pagination

import (
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// OffsetStrategy advances a numeric offset by the size of each page.
type OffsetStrategy struct {
	base
	input  string
	offset int
}

// NewOffset returns an offset strategy writing to the input request pointer.
func NewOffset(input string, wrapper MetadataWrapper) (*OffsetStrategy, error) {
	b, err := newBase(wrapper)
	if err != nil {
		return nil, err
	}
	if err := requirePointer("offset input", input); err != nil {
		return nil, err
	}
	return &OffsetStrategy{base: b, input: input}, nil
}

func (s *OffsetStrategy) IsApplicable(*transport.Response) bool { return true }

func (s *OffsetStrategy) Apply(c Cursor) (*request.Builder, error) {
	b, err := currentBuilder(c)
	if err != nil {
		return nil, err
	}
	s.offset = initialInt(b, s.input, 0)

	if c.LastResponse() == nil {
		return b, nil
	}

	s.offset += c.PageSize()
	return withValue(b, s.input, s.offset), nil
}

func (s *OffsetStrategy) ApplyMetadataWrapper(result any) any {
	return s.wrapper(result, s.offset)
}

func (s *OffsetStrategy) Name() string { return "offset" }

func (s *OffsetStrategy) Clone() Strategy {
	clone := *s
	return &clone
}

// Offset returns the offset of the last request.
func (s *OffsetStrategy) Offset() int { return s.offset }
