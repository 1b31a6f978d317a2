// Package request builds outbound requests from endpoint shape and parameters.
//
// A Builder is assembled once with fluent setters and is treated as a value
// afterwards: Build never modifies it, and CloneWith returns a new builder
// with selected parameter collections replaced and everything else deep
// copied. Pagination strategies rely on this to derive the request for the
// next page without touching the one that produced the previous page.
//
// Setters do not return errors. The first invalid parameter is recorded and
// surfaces from Err and from Build.
package request

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Sternrassler/apicore/pkg/pointer"
)

// Builder accumulates the shape and parameters of an endpoint call.
type Builder struct {
	server string
	path   string
	method string

	template        map[string]pointer.TemplateValue
	header          map[string]any
	query           map[string]any
	form            map[string]any
	additionalQuery map[string]any
	additionalForm  map[string]any
	multipart       []Parameter
	body            any

	bodySerializer BodySerializer
	xmlAttributes  *XMLAttributes
	xmlSerializer  XMLSerializer
	auth           Authenticator
	arrayFormat    SerializationFormat

	err error
}

// Overrides lists the parameter collections CloneWith may replace.
// Nil fields keep the source builder's values.
type Overrides struct {
	Template map[string]pointer.TemplateValue
	Header   map[string]any
	Query    map[string]any
	Body     any
	Form     map[string]any
}

// NewBuilder returns an empty GET builder using Indexed array serialization.
func NewBuilder() *Builder {
	return &Builder{
		method:      http.MethodGet,
		template:    map[string]pointer.TemplateValue{},
		header:      map[string]any{},
		query:       map[string]any{},
		form:        map[string]any{},
		arrayFormat: Indexed,
	}
}

// Server sets the server identifier resolved through Environment.BaseURI.
func (b *Builder) Server(server string) *Builder {
	b.server = server
	return b
}

// Path sets the path template, e.g. "/accounts/{id}/transactions".
func (b *Builder) Path(path string) *Builder {
	b.path = path
	return b
}

// Method sets the HTTP method.
func (b *Builder) Method(method string) *Builder {
	b.method = method
	return b
}

// TemplateParam adds a path template parameter.
func (b *Builder) TemplateParam(p Parameter) *Builder {
	if !b.accept(p.validateKeyed()) {
		return b
	}
	b.template[p.Key] = pointer.TemplateValue{Value: p.Value, Encode: p.ShouldEncode}
	return b
}

// HeaderParam adds a header parameter. Keys are case-insensitive.
func (b *Builder) HeaderParam(p Parameter) *Builder {
	if !b.accept(p.validateKeyed()) {
		return b
	}
	b.header[http.CanonicalHeaderKey(p.Key)] = p.Value
	return b
}

// QueryParam adds a query parameter.
func (b *Builder) QueryParam(p Parameter) *Builder {
	if !b.accept(p.validateKeyed()) {
		return b
	}
	b.query[p.Key] = p.Value
	return b
}

// FormParam adds a form parameter.
func (b *Builder) FormParam(p Parameter) *Builder {
	if !b.accept(p.validateKeyed()) {
		return b
	}
	b.form[p.Key] = p.Value
	return b
}

// BodyParam sets the body. A keyed parameter adds a field to a body map,
// an unkeyed one replaces the whole body.
func (b *Builder) BodyParam(p Parameter) *Builder {
	if !b.accept(p.Validate()) {
		return b
	}
	if p.Key == "" {
		b.body = p.Value
		return b
	}
	body, ok := b.body.(map[string]any)
	if !ok {
		body = map[string]any{}
	}
	body[p.Key] = p.Value
	b.body = body
	return b
}

// MultipartParam adds a multipart entry.
func (b *Builder) MultipartParam(p Parameter) *Builder {
	if !b.accept(p.validateKeyed()) {
		return b
	}
	b.multipart = append(b.multipart, p)
	return b
}

// AdditionalQueryParams sets extra query parameters merged over the regular ones at build time.
func (b *Builder) AdditionalQueryParams(params map[string]any) *Builder {
	b.additionalQuery = params
	return b
}

// AdditionalFormParams sets extra form parameters merged over the regular ones at build time.
func (b *Builder) AdditionalFormParams(params map[string]any) *Builder {
	b.additionalForm = params
	return b
}

// BodySerializer sets a custom body serializer.
func (b *Builder) BodySerializer(s BodySerializer) *Builder {
	b.bodySerializer = s
	return b
}

// XMLAttributes enables XML wrapping of the body.
func (b *Builder) XMLAttributes(attrs XMLAttributes) *Builder {
	b.xmlAttributes = &attrs
	return b
}

// XMLSerializer overrides the serializer used with XMLAttributes.
func (b *Builder) XMLSerializer(s XMLSerializer) *Builder {
	b.xmlSerializer = s
	return b
}

// Auth sets the auth descriptor applied at build time.
func (b *Builder) Auth(a Authenticator) *Builder {
	b.auth = a
	return b
}

// ArraySerializationFormat sets how array values are serialized.
func (b *Builder) ArraySerializationFormat(f SerializationFormat) *Builder {
	b.arrayFormat = f
	return b
}

// Err returns the first validation error recorded by a parameter setter.
func (b *Builder) Err() error {
	return b.err
}

// Params returns a deep copy of the parameter collections.
func (b *Builder) Params() pointer.Params {
	return pointer.CopyParams(pointer.Params{
		Template: b.template,
		Query:    b.query,
		Header:   b.header,
		Body:     b.body,
		Form:     b.form,
	})
}

// HTTPMethod returns the configured method.
func (b *Builder) HTTPMethod() string {
	return b.method
}

// PathTemplate returns the configured path template.
func (b *Builder) PathTemplate() string {
	return b.path
}

// CloneWith returns a new builder with the given collections replaced.
// All other fields are copied from b; b is left untouched.
func (b *Builder) CloneWith(o Overrides) *Builder {
	clone := &Builder{
		server:          b.server,
		path:            b.path,
		method:          b.method,
		template:        pointer.CopyTemplate(b.template),
		header:          pointer.CopyMap(b.header),
		query:           pointer.CopyMap(b.query),
		form:            pointer.CopyMap(b.form),
		additionalQuery: pointer.CopyMap(b.additionalQuery),
		additionalForm:  pointer.CopyMap(b.additionalForm),
		multipart:       append([]Parameter(nil), b.multipart...),
		body:            pointer.Copy(b.body),
		bodySerializer:  b.bodySerializer,
		xmlSerializer:   b.xmlSerializer,
		auth:            b.auth,
		arrayFormat:     b.arrayFormat,
		err:             b.err,
	}
	if b.xmlAttributes != nil {
		attrs := *b.xmlAttributes
		attrs.Value = pointer.Copy(attrs.Value)
		clone.xmlAttributes = &attrs
	}

	if o.Template != nil {
		clone.template = pointer.CopyTemplate(o.Template)
	}
	if o.Header != nil {
		clone.header = canonicalHeaders(o.Header)
	}
	if o.Query != nil {
		clone.query = pointer.CopyMap(o.Query)
	}
	if o.Body != nil {
		clone.body = pointer.Copy(o.Body)
	}
	if o.Form != nil {
		clone.form = pointer.CopyMap(o.Form)
	}
	return clone
}

// CloneWithParams is CloneWith for a full set of located parameters.
func (b *Builder) CloneWithParams(p pointer.Params) *Builder {
	return b.CloneWith(Overrides{
		Template: p.Template,
		Header:   p.Header,
		Query:    p.Query,
		Body:     p.Body,
		Form:     p.Form,
	})
}

// Build produces the outbound request. It returns the first recorded
// validation error, a serialization error, or an *AuthValidationError.
func (b *Builder) Build(env Environment) (*Request, error) {
	if b.err != nil {
		return nil, b.err
	}

	req := &Request{
		Method: b.method,
		URL:    b.buildURL(env),
		Header: b.buildHeaders(env),
	}

	if err := b.buildBody(req); err != nil {
		return nil, err
	}
	req.Files = b.buildMultipart()

	if b.auth != nil {
		bound := b.auth.WithManagers(env.AuthManagers)
		if !bound.IsValid() {
			return nil, &AuthValidationError{Message: bound.ErrorMessage()}
		}
		bound.Apply(req)
	}

	return req, nil
}

func (b *Builder) buildURL(env Environment) string {
	u := env.baseURI(b.server) + expandTemplate(b.path, b.template)

	query := b.query
	if len(b.additionalQuery) > 0 {
		query = pointer.CopyMap(b.query)
		for k, v := range b.additionalQuery {
			query[k] = v
		}
	}
	return cleanURL(appendQuery(u, query, b.arrayFormat))
}

func (b *Builder) buildHeaders(env Environment) http.Header {
	merged := map[string]any{}
	for _, layer := range []map[string]any{env.GlobalHeaders, b.header, env.AdditionalHeaders} {
		for k, v := range layer {
			merged[http.CanonicalHeaderKey(k)] = v
		}
	}

	header := http.Header{}
	for k, v := range merged {
		if s, ok := serializeHeader(v); ok {
			header.Set(k, s)
		}
	}
	return header
}

func (b *Builder) buildBody(req *Request) error {
	switch {
	case b.xmlAttributes != nil:
		serialize := b.xmlSerializer
		if serialize == nil {
			serialize = XMLSerialize
		}
		data, err := serialize(b.xmlAttributes.Value, b.xmlAttributes.RootElementName, b.xmlAttributes.ArrayItemName)
		if err != nil {
			return fmt.Errorf("serialize xml body: %w", err)
		}
		req.Body = data
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/xml")
		}
	case len(b.form) > 0 || len(b.additionalForm) > 0:
		form := pointer.CopyMap(b.form)
		for k, v := range b.additionalForm {
			form[k] = v
		}
		req.Form = formValues(form, b.arrayFormat)
	case b.body != nil:
		return b.resolveBody(req)
	}
	return nil
}

func (b *Builder) resolveBody(req *Request) error {
	if file, ok := asFile(b.body); ok {
		if file.ContentType != "" {
			req.Header.Set("Content-Type", file.ContentType)
		}
		req.BodyStream = file.Stream
		return nil
	}

	if b.bodySerializer != nil {
		data, err := b.bodySerializer(b.body)
		if err != nil {
			return fmt.Errorf("serialize body: %w", err)
		}
		req.Body = data
		return nil
	}

	switch v := b.body.(type) {
	case string:
		req.Body = []byte(v)
	case []byte:
		req.Body = v
	case io.Reader:
		req.BodyStream = v
	default:
		data, err := JSONSerialize(v)
		if err != nil {
			return fmt.Errorf("serialize body: %w", err)
		}
		req.Body = data
	}
	return nil
}

func (b *Builder) buildMultipart() []FilePart {
	if len(b.multipart) == 0 {
		return nil
	}
	parts := make([]FilePart, 0, len(b.multipart))
	for _, p := range b.multipart {
		if file, ok := asFile(p.Value); ok {
			parts = append(parts, FilePart{
				Field:       p.Key,
				FileName:    file.Name,
				Reader:      file.Stream,
				ContentType: file.ContentType,
			})
			continue
		}
		part := FilePart{Field: p.Key, ContentType: p.DefaultContentType}
		if r, ok := p.Value.(io.Reader); ok {
			part.Reader = r
		} else {
			part.Reader = stringReader(scalarString(p.Value))
		}
		parts = append(parts, part)
	}
	return parts
}

// accept records err as the builder's construction error.
func (b *Builder) accept(err error) bool {
	if b.err != nil {
		return false
	}
	if err != nil {
		b.err = err
		return false
	}
	return true
}

func asFile(v any) (FileWrapper, bool) {
	switch f := v.(type) {
	case FileWrapper:
		return f, true
	case *FileWrapper:
		if f != nil {
			return *f, true
		}
	}
	return FileWrapper{}, false
}

func canonicalHeaders(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range pointer.CopyMap(m) {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}
