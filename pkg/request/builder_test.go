package request

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/apicore/pkg/pointer"
)

func testEnv() Environment {
	return Environment{
		BaseURI: func(server string) string {
			if server == "auth" {
				return "https://auth.example.com"
			}
			return "https://api.example.com/v1/"
		},
	}
}

func TestBuild_URL(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		want    string
	}{
		{
			name:    "plain path",
			builder: NewBuilder().Path("/transactions"),
			want:    "https://api.example.com/v1/transactions",
		},
		{
			name: "template and query",
			builder: NewBuilder().
				Path("/accounts/{id}/transactions").
				TemplateParam(NewParam("id", "a b")).
				QueryParam(NewParam("limit", 5)).
				QueryParam(NewParam("cursor", "abc")),
			want: "https://api.example.com/v1/accounts/a%20b/transactions?cursor=abc&limit=5",
		},
		{
			name: "raw template",
			builder: NewBuilder().
				Path("/files/{path}").
				TemplateParam(NewParam("path", "a/b").Raw()),
			want: "https://api.example.com/v1/files/a/b",
		},
		{
			name: "indexed array",
			builder: NewBuilder().
				Path("/items").
				QueryParam(NewParam("ids", []int{1, 2})),
			want: "https://api.example.com/v1/items?ids%5B0%5D=1&ids%5B1%5D=2",
		},
		{
			name: "csv array",
			builder: NewBuilder().
				Path("/items").
				QueryParam(NewParam("ids", []int{1, 2})).
				ArraySerializationFormat(CSV),
			want: "https://api.example.com/v1/items?ids=1%2C2",
		},
		{
			name: "additional query overrides",
			builder: NewBuilder().
				Path("/items").
				QueryParam(NewParam("page", 1)).
				AdditionalQueryParams(map[string]any{"page": 2, "extra": "x"}),
			want: "https://api.example.com/v1/items?extra=x&page=2",
		},
		{
			name: "substituted values are not expanded again",
			builder: NewBuilder().
				Path("/users/{a}/items/{b}").
				TemplateParam(NewParam("a", "{b}").Raw()).
				TemplateParam(NewParam("b", 42)),
			want: "https://api.example.com/v1/users/{b}/items/42",
		},
		{
			name: "unknown placeholder kept",
			builder: NewBuilder().
				Path("/users/{id}/{missing}").
				TemplateParam(NewParam("id", 7)),
			want: "https://api.example.com/v1/users/7/{missing}",
		},
		{
			name:    "other server",
			builder: NewBuilder().Server("auth").Path("/token"),
			want:    "https://auth.example.com/token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.builder.Build(testEnv())
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.URL)
			assert.Equal(t, http.MethodGet, req.Method)
		})
	}
}

func TestBuild_HeaderPrecedence(t *testing.T) {
	env := testEnv()
	env.GlobalHeaders = map[string]any{"user-agent": "apicore", "x-a": "global", "x-b": "global"}
	env.AdditionalHeaders = map[string]any{"X-B": "additional"}

	req, err := NewBuilder().
		Path("/").
		HeaderParam(NewParam("X-A", "request")).
		HeaderParam(NewParam("x-b", "request")).
		HeaderParam(NewParam("x-json", map[string]any{"k": 1})).
		Build(env)
	require.NoError(t, err)

	assert.Equal(t, "apicore", req.Header.Get("User-Agent"))
	assert.Equal(t, "request", req.Header.Get("X-A"))
	assert.Equal(t, "additional", req.Header.Get("X-B"))
	assert.Equal(t, `{"k":1}`, req.Header.Get("X-Json"))
}

func TestBuild_Body(t *testing.T) {
	t.Run("json map from keyed params", func(t *testing.T) {
		req, err := NewBuilder().
			Method(http.MethodPost).
			BodyParam(NewParam("name", "n")).
			BodyParam(NewParam("size", 2)).
			Build(testEnv())
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"n","size":2}`, string(req.Body))
	})

	t.Run("raw string", func(t *testing.T) {
		req, err := NewBuilder().BodyParam(NewParam("", "hello")).Build(testEnv())
		require.NoError(t, err)
		assert.Equal(t, "hello", string(req.Body))
	})

	t.Run("custom serializer", func(t *testing.T) {
		req, err := NewBuilder().
			BodyParam(NewParam("", 42)).
			BodySerializer(func(v any) ([]byte, error) { return []byte("custom"), nil }).
			Build(testEnv())
		require.NoError(t, err)
		assert.Equal(t, "custom", string(req.Body))
	})

	t.Run("serializer error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewBuilder().
			BodyParam(NewParam("", 42)).
			BodySerializer(func(v any) ([]byte, error) { return nil, boom }).
			Build(testEnv())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("form wins over body", func(t *testing.T) {
		req, err := NewBuilder().
			FormParam(NewParam("a", "1")).
			AdditionalFormParams(map[string]any{"b": "2"}).
			BodyParam(NewParam("", "ignored")).
			Build(testEnv())
		require.NoError(t, err)
		assert.Equal(t, "1", req.Form.Get("a"))
		assert.Equal(t, "2", req.Form.Get("b"))
		assert.Nil(t, req.Body)
	})

	t.Run("xml", func(t *testing.T) {
		req, err := NewBuilder().
			XMLAttributes(XMLAttributes{Value: []string{"a", "b"}, RootElementName: "items", ArrayItemName: "item"}).
			Build(testEnv())
		require.NoError(t, err)
		assert.Equal(t, "<items><item>a</item><item>b</item></items>", string(req.Body))
		assert.Equal(t, "application/xml", req.Header.Get("Content-Type"))
	})

	t.Run("xml keeps explicit content type", func(t *testing.T) {
		req, err := NewBuilder().
			HeaderParam(NewParam("Content-Type", "text/xml")).
			XMLAttributes(XMLAttributes{Value: []string{"a"}, RootElementName: "items", ArrayItemName: "item"}).
			Build(testEnv())
		require.NoError(t, err)
		assert.Equal(t, "text/xml", req.Header.Get("Content-Type"))
	})

	t.Run("file", func(t *testing.T) {
		req, err := NewBuilder().
			BodyParam(NewParam("", FileWrapper{Stream: strings.NewReader("data"), Name: "f.txt", ContentType: "text/plain"})).
			Build(testEnv())
		require.NoError(t, err)
		assert.Equal(t, "text/plain", req.Header.Get("Content-Type"))
		data, err := io.ReadAll(req.BodyStream)
		require.NoError(t, err)
		assert.Equal(t, "data", string(data))
	})
}

func TestBuild_Multipart(t *testing.T) {
	req, err := NewBuilder().
		Method(http.MethodPost).
		MultipartParam(NewParam("file", FileWrapper{Stream: strings.NewReader("x"), Name: "x.bin"})).
		MultipartParam(NewParam("meta", map[string]any{"a": 1}).ContentType("application/json")).
		Build(testEnv())
	require.NoError(t, err)
	require.Len(t, req.Files, 2)
	assert.Equal(t, "x.bin", req.Files[0].FileName)
	assert.Equal(t, "application/json", req.Files[1].ContentType)
	data, err := io.ReadAll(req.Files[1].Reader)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestBuilder_ValidationError(t *testing.T) {
	b := NewBuilder().
		QueryParam(NewParam("id", nil).Required()).
		QueryParam(NewParam("", "second"))

	var verr *ValidationError
	require.ErrorAs(t, b.Err(), &verr)
	assert.Equal(t, "id", verr.Param)
	assert.ErrorIs(t, b.Err(), ErrRequiredValue)

	_, err := b.Build(testEnv())
	assert.ErrorIs(t, err, ErrRequiredValue)
}

func TestBuilder_ValidatorError(t *testing.T) {
	tooBig := errors.New("too big")
	b := NewBuilder().QueryParam(Parameter{
		Key:   "limit",
		Value: 500,
		Validator: func(v any) error {
			if v.(int) > 100 {
				return tooBig
			}
			return nil
		},
	})
	assert.ErrorIs(t, b.Err(), tooBig)
}

type stubAuth struct {
	valid   bool
	applied *bool
}

func (s stubAuth) WithManagers(map[string]AuthManager) Authenticator { return s }
func (s stubAuth) IsValid() bool                                      { return s.valid }
func (s stubAuth) ErrorMessage() string                               { return "missing token" }
func (s stubAuth) Apply(req *Request) {
	*s.applied = true
	req.Header.Set("Authorization", "Bearer t")
}

func TestBuild_Auth(t *testing.T) {
	applied := false
	req, err := NewBuilder().Path("/").Auth(stubAuth{valid: true, applied: &applied}).Build(testEnv())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "Bearer t", req.Header.Get("Authorization"))

	applied = false
	_, err = NewBuilder().Path("/").Auth(stubAuth{valid: false, applied: &applied}).Build(testEnv())
	var aerr *AuthValidationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "missing token", aerr.Message)
	assert.False(t, applied)
}

func TestBuilder_CloneWith(t *testing.T) {
	original := NewBuilder().
		Path("/items/{kind}").
		TemplateParam(NewParam("kind", "books")).
		QueryParam(NewParam("page", 1)).
		HeaderParam(NewParam("X-Trace", "t1"))

	clone := original.CloneWith(Overrides{Query: map[string]any{"page": 2}})

	origReq, err := original.Build(testEnv())
	require.NoError(t, err)
	cloneReq, err := clone.Build(testEnv())
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1/items/books?page=1", origReq.URL)
	assert.Equal(t, "https://api.example.com/v1/items/books?page=2", cloneReq.URL)
	assert.Equal(t, "t1", cloneReq.Header.Get("X-Trace"))

	// Mutating the clone's parameters must not leak into the original.
	clone.QueryParam(NewParam("extra", "y"))
	assert.NotContains(t, original.Params().Query, "extra")
}

func TestBuilder_CloneWithParams(t *testing.T) {
	b := NewBuilder().Path("/items").QueryParam(NewParam("offset", 0))
	params := pointer.Update(b.Params(), "$request.query#/offset", 5)
	params = pointer.Update(params, "$request.headers#/x-page", "2")

	req, err := b.CloneWithParams(params).Build(testEnv())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/items?offset=5", req.URL)
	assert.Equal(t, "2", req.Header.Get("X-Page"))

	orig, err := b.Build(testEnv())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/items?offset=0", orig.URL)
}

func TestBuild_DoesNotMutateBuilder(t *testing.T) {
	b := NewBuilder().
		Path("/items").
		QueryParam(NewParam("a", 1)).
		AdditionalQueryParams(map[string]any{"b": 2})

	_, err := b.Build(testEnv())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, b.Params().Query)
}
