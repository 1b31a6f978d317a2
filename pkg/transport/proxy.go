package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ProxySettings configures an HTTP(S) proxy for HTTPTransport.
type ProxySettings struct {
	// Address is the proxy host. A leading http:// or https:// and a
	// trailing slash are ignored.
	Address string

	// Port is optional; zero omits it.
	Port int

	// Username and Password are sent as URL user info when either is set.
	Username string
	Password string
}

func (p ProxySettings) host() string {
	addr := strings.TrimSpace(p.Address)
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if p.Port > 0 {
		addr += ":" + strconv.Itoa(p.Port)
	}
	return addr
}

// URL returns the proxy URL for the given scheme ("http" or "https").
// Credentials are URL-escaped.
func (p ProxySettings) URL(scheme string) *url.URL {
	u := &url.URL{Scheme: scheme, Host: p.host()}
	if p.Username != "" || p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// Proxies returns the proxy URL per target scheme.
func (p ProxySettings) Proxies() map[string]string {
	return map[string]string{
		"http":  p.URL("http").String(),
		"https": p.URL("https").String(),
	}
}

// Func returns a function usable as http.Transport.Proxy.
func (p ProxySettings) Func() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		if p.Address == "" {
			return nil, nil
		}
		scheme := "http"
		if req.URL != nil && req.URL.Scheme == "https" {
			scheme = "https"
		}
		return p.URL(scheme), nil
	}
}

// String masks the password.
func (p ProxySettings) String() string {
	userInfo := ""
	if p.Username != "" {
		userInfo = p.Username + ":***@"
	}
	return userInfo + p.host()
}

// GoString masks the password in %#v output.
func (p ProxySettings) GoString() string {
	password := "<nil>"
	if p.Password != "" {
		password = "***"
	}
	return fmt.Sprintf("ProxySettings{Address:%q, Port:%d, Username:%q, Password:%s}", p.Address, p.Port, p.Username, password)
}
