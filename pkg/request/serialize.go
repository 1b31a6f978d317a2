package request

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/Sternrassler/apicore/pkg/pointer"
	"github.com/spf13/cast"
)

// SerializationFormat controls how array values are written to query strings
// and form bodies.
type SerializationFormat int

const (
	// Indexed writes ids[0]=a&ids[1]=b.
	Indexed SerializationFormat = iota
	// UnIndexed writes ids[]=a&ids[]=b.
	UnIndexed
	// Plain writes ids=a&ids=b (exploded).
	Plain
	// CSV writes ids=a,b.
	CSV
	// TSV writes ids=a\tb.
	TSV
	// PSV writes ids=a|b.
	PSV
)

// String returns the format name.
func (f SerializationFormat) String() string {
	switch f {
	case Indexed:
		return "indexed"
	case UnIndexed:
		return "unindexed"
	case Plain:
		return "plain"
	case CSV:
		return "csv"
	case TSV:
		return "tsv"
	case PSV:
		return "psv"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseSerializationFormat maps a format name to its value, defaulting to Indexed.
func ParseSerializationFormat(name string) SerializationFormat {
	switch strings.ToLower(name) {
	case "unindexed":
		return UnIndexed
	case "plain", "exploded":
		return Plain
	case "csv":
		return CSV
	case "tsv":
		return TSV
	case "psv":
		return PSV
	default:
		return Indexed
	}
}

func (f SerializationFormat) separator() (string, bool) {
	switch f {
	case CSV:
		return ",", true
	case TSV:
		return "\t", true
	case PSV:
		return "|", true
	default:
		return "", false
	}
}

// BodySerializer turns a body value into wire bytes.
type BodySerializer func(value any) ([]byte, error)

// XMLSerializer turns a value into XML using the given root and array item names.
type XMLSerializer func(value any, rootName, itemName string) ([]byte, error)

// XMLAttributes configures XML wrapping of the body.
type XMLAttributes struct {
	Value           any
	RootElementName string
	ArrayItemName   string
}

type keyValue struct {
	key   string
	value string
}

// encodeParams flattens params into ordered key/value pairs. Map keys are
// sorted so the output is deterministic.
func encodeParams(params map[string]any, format SerializationFormat) []keyValue {
	var out []keyValue
	for _, key := range sortedKeys(params) {
		flatten(key, params[key], format, &out)
	}
	return out
}

func flatten(key string, value any, format SerializationFormat, out *[]keyValue) {
	if value == nil {
		return
	}
	if m, ok := value.(map[string]any); ok {
		for _, k := range sortedKeys(m) {
			flatten(key+"["+k+"]", m[k], format, out)
		}
		return
	}
	if items, ok := toSlice(value); ok {
		if sep, joined := format.separator(); joined && allScalar(items) {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				parts = append(parts, scalarString(item))
			}
			*out = append(*out, keyValue{key, strings.Join(parts, sep)})
			return
		}
		for i, item := range items {
			switch format {
			case UnIndexed:
				flatten(key+"[]", item, format, out)
			case Plain:
				flatten(key, item, format, out)
			default:
				flatten(fmt.Sprintf("%s[%d]", key, i), item, format, out)
			}
		}
		return
	}
	*out = append(*out, keyValue{key, scalarString(value)})
}

// appendQuery appends encoded params to a URL.
func appendQuery(rawURL string, params map[string]any, format SerializationFormat) string {
	pairs := encodeParams(params, format)
	if len(pairs) == 0 {
		return rawURL
	}
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		parts = append(parts, url.QueryEscape(kv.key)+"="+url.QueryEscape(kv.value))
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + strings.Join(parts, "&")
}

// formValues encodes form params into url.Values.
func formValues(params map[string]any, format SerializationFormat) url.Values {
	values := url.Values{}
	for _, kv := range encodeParams(params, format) {
		values.Add(kv.key, kv.value)
	}
	return values
}

var templateToken = regexp.MustCompile(`\{([^{}]+)\}`)

// expandTemplate substitutes {name} placeholders in path in a single pass,
// so substituted values are never expanded again. Unknown names are kept.
func expandTemplate(path string, params map[string]pointer.TemplateValue) string {
	if len(params) == 0 {
		return path
	}
	return templateToken.ReplaceAllStringFunc(path, func(token string) string {
		param, ok := params[token[1:len(token)-1]]
		if !ok {
			return token
		}
		if items, ok := toSlice(param.Value); ok {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				parts = append(parts, escapePath(scalarString(item), param.Encode))
			}
			return strings.Join(parts, "/")
		}
		if param.Value == nil {
			return ""
		}
		return escapePath(scalarString(param.Value), param.Encode)
	})
}

func escapePath(s string, encode bool) string {
	if !encode {
		return s
	}
	return url.PathEscape(s)
}

var duplicateSlashes = regexp.MustCompile(`/{2,}`)
var schemeAndHost = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://[^/?#]*`)

// cleanURL collapses duplicate slashes in the path while keeping the scheme
// separator and the query string intact.
func cleanURL(rawURL string) string {
	prefix := schemeAndHost.FindString(rawURL)
	rest := rawURL[len(prefix):]
	path, query, hasQuery := strings.Cut(rest, "?")
	path = duplicateSlashes.ReplaceAllString(path, "/")
	if hasQuery {
		return prefix + path + "?" + query
	}
	return prefix + path
}

// serializeHeader renders a header value; non-strings are JSON encoded.
func serializeHeader(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return cast.ToString(v), true
		}
		return string(data), true
	}
}

func scalarString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return v.String()
	}
	if s, err := cast.ToStringE(value); err == nil {
		return s
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}

func toSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []byte, string:
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func allScalar(items []any) bool {
	for _, item := range items {
		if _, ok := item.(map[string]any); ok {
			return false
		}
		if _, ok := toSlice(item); ok {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JSONSerialize is the default body serializer.
func JSONSerialize(value any) ([]byte, error) {
	return json.Marshal(value)
}

// XMLSerialize wraps value in a root element. When itemName is set and value
// is a slice, every element is written as an itemName child of the root.
func XMLSerialize(value any, rootName, itemName string) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	root := xml.StartElement{Name: xml.Name{Local: rootName}}

	if items, ok := toSlice(value); ok && itemName != "" {
		if err := enc.EncodeToken(root); err != nil {
			return nil, fmt.Errorf("encode xml root: %w", err)
		}
		for _, item := range items {
			if err := enc.EncodeElement(item, xml.StartElement{Name: xml.Name{Local: itemName}}); err != nil {
				return nil, fmt.Errorf("encode xml item: %w", err)
			}
		}
		if err := enc.EncodeToken(root.End()); err != nil {
			return nil, fmt.Errorf("encode xml root: %w", err)
		}
	} else if err := enc.EncodeElement(value, root); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}

	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("flush xml: %w", err)
	}
	return buf.Bytes(), nil
}
