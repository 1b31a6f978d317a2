package request

import "reflect"

// Parameter is a single request parameter attached to a Builder.
type Parameter struct {
	Key   string
	Value any

	// IsRequired rejects a nil Value.
	IsRequired bool

	// ShouldEncode applies URL path escaping to template parameters.
	ShouldEncode bool

	// DefaultContentType is used for multipart entries that are not files.
	DefaultContentType string

	// Validator runs additional checks on Value.
	Validator func(value any) error
}

// NewParam returns a parameter with the given key and value.
// Template parameters created this way are URL-encoded.
func NewParam(key string, value any) Parameter {
	return Parameter{Key: key, Value: value, ShouldEncode: true}
}

// Required marks the parameter as required.
func (p Parameter) Required() Parameter {
	p.IsRequired = true
	return p
}

// Raw disables URL encoding of a template parameter.
func (p Parameter) Raw() Parameter {
	p.ShouldEncode = false
	return p
}

// ContentType sets the multipart content type used for non-file values.
func (p Parameter) ContentType(contentType string) Parameter {
	p.DefaultContentType = contentType
	return p
}

// Validate checks the parameter. A failed check returns a *ValidationError
// naming the parameter.
func (p Parameter) Validate() error {
	if p.IsRequired && isNil(p.Value) {
		return &ValidationError{Param: p.Key, Err: ErrRequiredValue}
	}
	if p.Validator != nil {
		if err := p.Validator(p.Value); err != nil {
			return &ValidationError{Param: p.Key, Err: err}
		}
	}
	return nil
}

func (p Parameter) validateKeyed() error {
	if p.Key == "" {
		return &ValidationError{Err: ErrMissingKey}
	}
	return p.Validate()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
