package request

// AuthManager applies one authentication scheme to a request.
type AuthManager interface {
	IsValid() bool
	ErrorMessage() string
	Apply(req *Request)
}

// Authenticator selects and combines auth managers for an endpoint.
type Authenticator interface {
	// WithManagers returns a copy bound to the available managers.
	WithManagers(managers map[string]AuthManager) Authenticator
	IsValid() bool
	ErrorMessage() string
	Apply(req *Request)
}

// Environment carries the global settings a Builder needs to produce a Request.
type Environment struct {
	// BaseURI resolves a server identifier to its base URI.
	BaseURI func(server string) string

	GlobalHeaders     map[string]any
	AdditionalHeaders map[string]any
	AuthManagers      map[string]AuthManager
}

func (e Environment) baseURI(server string) string {
	if e.BaseURI == nil {
		return ""
	}
	return e.BaseURI(server)
}
