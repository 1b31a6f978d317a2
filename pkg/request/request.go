package request

import (
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is a fully built outbound request handed to a transport.
type Request struct {
	Method string
	URL    string
	Header http.Header

	// Body is the serialized body. It is empty when Form or BodyStream is used.
	Body []byte

	// BodyStream carries an unwrapped file body.
	BodyStream io.Reader

	// Form holds form-encoded parameters.
	Form url.Values

	// Files holds multipart entries.
	Files []FilePart
}

// FilePart is a resolved multipart entry.
type FilePart struct {
	Field       string
	FileName    string
	Reader      io.Reader
	ContentType string
}

// FileWrapper wraps a stream uploaded as a body or multipart file.
type FileWrapper struct {
	Stream      io.Reader
	Name        string
	ContentType string
}

// AddQueryParameter appends a query parameter to the request URL.
func (r *Request) AddQueryParameter(key, value string) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return
	}
	q := u.Query()
	q.Add(key, value)
	u.RawQuery = q.Encode()
	r.URL = u.String()
}

func stringReader(s string) io.Reader {
	return strings.NewReader(s)
}
