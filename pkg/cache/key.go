package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Sternrassler/apicore/pkg/request"
)

// Key identifies a cached response.
type Key struct {
	Method string
	Host   string
	Path   string
	Query  url.Values

	// Principal separates entries fetched with different credentials.
	Principal string
}

// KeyFromRequest derives the cache key of a built request. The Authorization
// header is hashed into Principal so credentials never appear in Redis keys.
func KeyFromRequest(req *request.Request) (Key, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return Key{}, fmt.Errorf("parse request url: %w", err)
	}
	key := Key{
		Method: strings.ToUpper(req.Method),
		Host:   u.Host,
		Path:   u.Path,
		Query:  u.Query(),
	}
	if authz := req.Header.Get("Authorization"); authz != "" {
		sum := sha256.Sum256([]byte(authz))
		key.Principal = hex.EncodeToString(sum[:8])
	}
	return key, nil
}

// String generates a deterministic key.
// Format: method:host/path:query1=a,b:query2=c:p=principal
//
// Example:
//
//	GET:api.example.com/transactions:cursor=txn_5:limit=5
func (k Key) String() string {
	parts := []string{k.Method}

	target := k.Host + "/" + strings.Trim(k.Path, "/")
	parts = append(parts, strings.TrimSuffix(target, "/"))

	if len(k.Query) > 0 {
		keys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Query[key], ",")))
		}
	}

	if k.Principal != "" {
		parts = append(parts, "p="+k.Principal)
	}

	return strings.Join(parts, ":")
}
