package pagination

import (
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/Sternrassler/apicore/pkg/pointer"
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// LinkStrategy follows a next-page link found in each response.
type LinkStrategy struct {
	base
	next string
	link string
}

// NewLink returns a link strategy reading the next link from the response
// pointer next, e.g. "$response.body#/links/next" or "$response.header.Link".
func NewLink(next string, wrapper MetadataWrapper) (*LinkStrategy, error) {
	b, err := newBase(wrapper)
	if err != nil {
		return nil, err
	}
	if err := requirePointer("next link", next); err != nil {
		return nil, err
	}
	return &LinkStrategy{base: b, next: next}, nil
}

func (s *LinkStrategy) IsApplicable(resp *transport.Response) bool {
	if resp == nil {
		return true
	}
	link, ok := s.resolve(resp)
	s.link = link
	return ok
}

func (s *LinkStrategy) Apply(c Cursor) (*request.Builder, error) {
	b, err := currentBuilder(c)
	if err != nil {
		return nil, err
	}

	last := c.LastResponse()
	if last == nil {
		return b, nil
	}

	link, ok := s.resolve(last)
	s.link = link
	if !ok {
		return nil, nil
	}

	query := b.Params().Query
	if query == nil {
		query = map[string]any{}
	}
	for k, v := range linkQuery(link) {
		query[k] = v
	}
	return b.CloneWith(request.Overrides{Query: query}), nil
}

func (s *LinkStrategy) ApplyMetadataWrapper(result any) any {
	return s.wrapper(result, s.link)
}

func (s *LinkStrategy) Name() string { return "link" }

func (s *LinkStrategy) Clone() Strategy {
	clone := *s
	return &clone
}

// Link returns the last next-link seen.
func (s *LinkStrategy) Link() string { return s.link }

func (s *LinkStrategy) resolve(resp *transport.Response) (string, bool) {
	value, ok := pointer.ResolveFromResponse(s.next, resp.Body, resp.Header)
	if !ok {
		return "", false
	}
	link := nextTarget(cast.ToString(value))
	return link, link != ""
}

// nextTarget extracts the rel="next" target from an RFC 8288 Link header
// value. Plain URLs are returned unchanged.
func nextTarget(value string) string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "<") {
		return value
	}
	for _, part := range strings.Split(value, ",") {
		target, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		target = strings.Trim(strings.TrimSpace(target), "<>")
		for _, param := range strings.Split(params, ";") {
			name, rel, _ := strings.Cut(strings.TrimSpace(param), "=")
			if strings.EqualFold(name, "rel") && strings.EqualFold(strings.Trim(rel, `"`), "next") {
				return target
			}
		}
	}
	return ""
}

// linkQuery parses the query string of link. Repeated keys become lists.
func linkQuery(link string) map[string]any {
	_, raw, found := strings.Cut(link, "?")
	if !found {
		return nil
	}
	raw, _, _ = strings.Cut(raw, "#")

	// ParseQuery keeps the pairs it could decode when it reports an error.
	values, _ := url.ParseQuery(raw)
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
			continue
		}
		list := make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}
		out[k] = list
	}
	return out
}
