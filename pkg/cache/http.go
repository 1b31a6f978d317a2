package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/apicore/pkg/request"
)

// NewEntry builds a cache entry from a received response. It returns nil
// when the response must not be cached or carries no freshness information
// and defaultTTL is zero.
func NewEntry(status int, header http.Header, body []byte, defaultTTL time.Duration) *Entry {
	cc := header.Get("Cache-Control")
	if hasDirective(cc, "no-store") || hasDirective(cc, "private") {
		return nil
	}

	now := time.Now()
	expires, ok := parseExpires(header, now)
	if !ok {
		if defaultTTL <= 0 {
			return nil
		}
		expires = now.Add(defaultTTL)
	}

	entry := &Entry{
		Data:       body,
		ETag:       header.Get("ETag"),
		Expires:    expires,
		StatusCode: status,
		Headers:    header.Clone(),
		CachedAt:   now,
	}
	if lastMod := header.Get("Last-Modified"); lastMod != "" {
		if t, err := http.ParseTime(lastMod); err == nil {
			entry.LastModified = t
		}
	}
	return entry
}

// parseExpires reads freshness from Cache-Control max-age, falling back to Expires.
func parseExpires(header http.Header, now time.Time) (time.Time, bool) {
	for _, directive := range strings.Split(header.Get("Cache-Control"), ",") {
		name, value, found := strings.Cut(strings.TrimSpace(directive), "=")
		if !found || !strings.EqualFold(name, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(strings.Trim(value, `"`)); err == nil {
			return now.Add(time.Duration(secs) * time.Second), true
		}
	}

	expiresStr := header.Get("Expires")
	if expiresStr == "" {
		return time.Time{}, false
	}
	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return time.Time{}, false
	}
	if expires.Before(now) {
		return now, true
	}
	return expires, true
}

func hasDirective(cacheControl, directive string) bool {
	for _, d := range strings.Split(cacheControl, ",") {
		if strings.EqualFold(strings.TrimSpace(d), directive) {
			return true
		}
	}
	return false
}

// AddConditionalHeaders adds If-None-Match or If-Modified-Since to req.
// ETag is preferred.
func AddConditionalHeaders(req *request.Request, entry *Entry) {
	if req == nil || !entry.CanRevalidate() {
		return
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else {
		req.Header.Set("If-Modified-Since", entry.LastModified.Format(http.TimeFormat))
	}
}
