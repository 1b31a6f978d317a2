package auth

import (
	"encoding/base64"

	"github.com/Sternrassler/apicore/pkg/request"
)

// Bearer applies an OAuth bearer token.
type Bearer struct {
	Token string
}

// NewBearer returns a bearer token manager.
func NewBearer(token string) *Bearer {
	return &Bearer{Token: token}
}

func (b *Bearer) IsValid() bool { return b.Token != "" }

func (b *Bearer) ErrorMessage() string {
	return "BearerAuth: access token is not set"
}

func (b *Bearer) Apply(req *request.Request) {
	req.Header.Set("Authorization", "Bearer "+b.Token)
}

// Basic applies HTTP basic authentication.
type Basic struct {
	Username string
	Password string
}

// NewBasic returns a basic auth manager.
func NewBasic(username, password string) *Basic {
	return &Basic{Username: username, Password: password}
}

func (b *Basic) IsValid() bool { return b.Username != "" && b.Password != "" }

func (b *Basic) ErrorMessage() string {
	return "BasicAuth: username or password is not set"
}

func (b *Basic) Apply(req *request.Request) {
	token := base64.StdEncoding.EncodeToString([]byte(b.Username + ":" + b.Password))
	req.Header.Set("Authorization", "Basic "+token)
}

// APIKey applies a key either as a header or as a query parameter.
type APIKey struct {
	Name  string
	Value string
	Query bool
}

// NewAPIKeyHeader returns a manager that sends the key in header name.
func NewAPIKeyHeader(name, value string) *APIKey {
	return &APIKey{Name: name, Value: value}
}

// NewAPIKeyQuery returns a manager that sends the key as query parameter name.
func NewAPIKeyQuery(name, value string) *APIKey {
	return &APIKey{Name: name, Value: value, Query: true}
}

func (k *APIKey) IsValid() bool { return k.Name != "" && k.Value != "" }

func (k *APIKey) ErrorMessage() string {
	return "ApiKeyAuth: " + k.Name + " is not set"
}

func (k *APIKey) Apply(req *request.Request) {
	if k.Query {
		req.AddQueryParameter(k.Name, k.Value)
		return
	}
	req.Header.Set(k.Name, k.Value)
}
