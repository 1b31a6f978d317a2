package auth

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/apicore/pkg/request"
)

// Single requires the auth manager registered under name.
func Single(name string) request.Authenticator {
	return &single{name: name}
}

// And requires every part to be valid and applies all of them.
func And(parts ...request.Authenticator) request.Authenticator {
	return &and{parts: parts}
}

// Or applies the first valid part.
func Or(parts ...request.Authenticator) request.Authenticator {
	return &or{parts: parts}
}

type single struct {
	name    string
	manager request.AuthManager
}

func (s *single) WithManagers(managers map[string]request.AuthManager) request.Authenticator {
	return &single{name: s.name, manager: managers[s.name]}
}

func (s *single) IsValid() bool {
	return s.manager != nil && s.manager.IsValid()
}

func (s *single) ErrorMessage() string {
	if s.manager == nil {
		return fmt.Sprintf("auth manager %q is not configured", s.name)
	}
	return s.manager.ErrorMessage()
}

func (s *single) Apply(req *request.Request) {
	if s.IsValid() {
		s.manager.Apply(req)
	}
}

type and struct {
	parts []request.Authenticator
}

func (a *and) WithManagers(managers map[string]request.AuthManager) request.Authenticator {
	return &and{parts: bindAll(a.parts, managers)}
}

func (a *and) IsValid() bool {
	if len(a.parts) == 0 {
		return false
	}
	for _, p := range a.parts {
		if !p.IsValid() {
			return false
		}
	}
	return true
}

func (a *and) ErrorMessage() string {
	var msgs []string
	for _, p := range a.parts {
		if !p.IsValid() {
			msgs = append(msgs, p.ErrorMessage())
		}
	}
	if len(msgs) == 0 && len(a.parts) == 0 {
		return "no auth participants"
	}
	return strings.Join(msgs, " and ")
}

func (a *and) Apply(req *request.Request) {
	for _, p := range a.parts {
		p.Apply(req)
	}
}

type or struct {
	parts []request.Authenticator
}

func (o *or) WithManagers(managers map[string]request.AuthManager) request.Authenticator {
	return &or{parts: bindAll(o.parts, managers)}
}

func (o *or) IsValid() bool {
	return o.first() != nil
}

func (o *or) ErrorMessage() string {
	if len(o.parts) == 0 {
		return "no auth participants"
	}
	msgs := make([]string, 0, len(o.parts))
	for _, p := range o.parts {
		msgs = append(msgs, p.ErrorMessage())
	}
	return strings.Join(msgs, " or ")
}

func (o *or) Apply(req *request.Request) {
	if p := o.first(); p != nil {
		p.Apply(req)
	}
}

func (o *or) first() request.Authenticator {
	for _, p := range o.parts {
		if p.IsValid() {
			return p
		}
	}
	return nil
}

func bindAll(parts []request.Authenticator, managers map[string]request.AuthManager) []request.Authenticator {
	bound := make([]request.Authenticator, len(parts))
	for i, p := range parts {
		bound[i] = p.WithManagers(managers)
	}
	return bound
}
