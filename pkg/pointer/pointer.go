package pointer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/spf13/cast"
)

// Pointer scopes.
const (
	ScopeRequestPath     = "$request.path"
	ScopeRequestQuery    = "$request.query"
	ScopeRequestHeaders  = "$request.headers"
	ScopeRequestBody     = "$request.body"
	ScopeResponseBody    = "$response.body"
	ScopeResponseHeaders = "$response.headers"

	// responseHeaderPrefix is the short header form, e.g. "$response.header.Link".
	responseHeaderPrefix = "$response.header."
)

// TemplateValue is a path template parameter together with its encoding flag.
type TemplateValue struct {
	Value  any
	Encode bool
}

// Params holds the parameter collections of a request that pointers can address.
type Params struct {
	Template map[string]TemplateValue
	Query    map[string]any
	Header   map[string]any
	// Body is either an opaque value or a keyed map built from body parameters.
	Body any
	Form map[string]any
}

// Split separates a pointer into its scope and JSON pointer path.
// Surrounding braces, as used in templated pointers, are ignored.
func Split(ptr string) (scope, path string) {
	ptr = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(ptr), "{"), "}")
	scope, path, _ = strings.Cut(ptr, "#")
	return scope, path
}

// Locate returns the value addressed by a request pointer.
// The boolean is false when the value is absent or the scope is unknown.
func Locate(ptr string, p Params) (any, bool) {
	scope, path := Split(ptr)
	hierarchy, err := gabs.JSONPointerToSlice(path)
	if err != nil || len(hierarchy) == 0 {
		return nil, false
	}

	switch scope {
	case ScopeRequestPath:
		tv, ok := p.Template[hierarchy[0]]
		if !ok {
			return nil, false
		}
		return lookup(tv.Value, hierarchy[1:])
	case ScopeRequestQuery:
		return lookup(p.Query, hierarchy)
	case ScopeRequestHeaders:
		return lookup(p.Header, canonicalHeader(hierarchy))
	case ScopeRequestBody:
		if body, ok := p.Body.(map[string]any); ok {
			return lookup(body, hierarchy)
		}
		return lookup(p.Form, hierarchy)
	default:
		return nil, false
	}
}

// Update returns a copy of p with the value addressed by ptr replaced.
// Only the addressed collection is copied; p itself is never modified.
// Pointers with an unknown scope or an invalid path return p unchanged.
func Update(p Params, ptr string, value any) Params {
	scope, path := Split(ptr)
	hierarchy, err := gabs.JSONPointerToSlice(path)
	if err != nil || len(hierarchy) == 0 {
		return p
	}

	out := p
	switch scope {
	case ScopeRequestPath:
		template := CopyTemplate(p.Template)
		tv, ok := template[hierarchy[0]]
		if !ok {
			tv.Encode = true
		}
		tv.Value = set(tv.Value, hierarchy[1:], value)
		template[hierarchy[0]] = tv
		out.Template = template
	case ScopeRequestQuery:
		out.Query = setMap(p.Query, hierarchy, value)
	case ScopeRequestHeaders:
		out.Header = setMap(p.Header, canonicalHeader(hierarchy), value)
	case ScopeRequestBody:
		if body, ok := p.Body.(map[string]any); ok {
			out.Body = setMap(body, hierarchy, value)
		} else {
			out.Form = setMap(p.Form, hierarchy, value)
		}
	}
	return out
}

// ParseJSON parses body keeping numbers as json.Number, so large integer
// cursors and ids survive unchanged.
func ParseJSON(body []byte) (*gabs.Container, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return gabs.ParseJSONDecoder(dec)
}

// ResolveFromResponse extracts the value addressed by a response pointer from
// a raw response body and its headers.
func ResolveFromResponse(ptr string, body []byte, header http.Header) (any, bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(ptr), "{"), "}")
	if name, ok := strings.CutPrefix(trimmed, responseHeaderPrefix); ok {
		return headerValue(header, name)
	}

	scope, path := Split(trimmed)
	switch scope {
	case ScopeResponseBody:
		container, err := ParseJSON(body)
		if err != nil {
			return nil, false
		}
		found, err := container.JSONPointer(path)
		if err != nil {
			return nil, false
		}
		value := found.Data()
		return value, value != nil
	case ScopeResponseHeaders:
		hierarchy, err := gabs.JSONPointerToSlice(path)
		if err != nil || len(hierarchy) == 0 {
			return nil, false
		}
		return headerValue(header, hierarchy[0])
	default:
		return nil, false
	}
}

// Int converts a located value to an int, falling back to def when the
// value is absent or not numeric.
func Int(value any, ok bool, def int) int {
	if !ok || value == nil {
		return def
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		return def
	}
	return n
}

func lookup(root any, hierarchy []string) (any, bool) {
	if root == nil {
		return nil, false
	}
	found := gabs.Wrap(normalize(root)).Search(hierarchy...)
	if found == nil || found.Data() == nil {
		return nil, false
	}
	return found.Data(), true
}

func setMap(m map[string]any, hierarchy []string, value any) map[string]any {
	root, _ := set(CopyMap(m), hierarchy, value).(map[string]any)
	if root == nil {
		return CopyMap(m)
	}
	return root
}

// set writes value at hierarchy inside a deep copy of root.
func set(root any, hierarchy []string, value any) any {
	if len(hierarchy) == 0 {
		return value
	}
	root = Copy(root)
	switch root.(type) {
	case map[string]any, []any:
	default:
		root = map[string]any{}
	}
	container := gabs.Wrap(root)
	if _, err := container.Set(value, hierarchy...); err != nil {
		return root
	}
	return container.Data()
}

func headerValue(header http.Header, name string) (any, bool) {
	if header == nil || name == "" {
		return nil, false
	}
	values := header.Values(name)
	if len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

func canonicalHeader(hierarchy []string) []string {
	out := make([]string, len(hierarchy))
	copy(out, hierarchy)
	out[0] = http.CanonicalHeaderKey(out[0])
	return out
}
