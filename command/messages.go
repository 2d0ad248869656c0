package command

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-identity/core"
)

const (
	TypeEstablish     = "identity.command.session.establish"
	TypeRescope       = "identity.command.session.rescope"
	TypeTerminate     = "identity.command.session.terminate"
	TypeInvokeService = "identity.command.service.invoke"
)

// EstablishMessage authenticates the session. An empty Endpoint falls back to
// the configured identity endpoint.
type EstablishMessage struct {
	Endpoint string
	Auth     core.AuthConfig
	Options  core.SessionOptions
}

func (EstablishMessage) Type() string { return TypeEstablish }

func (m EstablishMessage) Validate() error {
	if err := m.Auth.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid auth config")
	}
	return nil
}

type RescopeMessage struct {
	Scope *core.Scope
}

func (RescopeMessage) Type() string { return TypeRescope }

func (m RescopeMessage) Validate() error {
	if m.Scope == nil {
		return commandValidationError("scope", "scope is required")
	}
	candidate := core.TokenAuth("rescope").WithScope(m.Scope)
	if err := candidate.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid scope")
	}
	return nil
}

type TerminateMessage struct{}

func (TerminateMessage) Type() string { return TypeTerminate }

func (TerminateMessage) Validate() error { return nil }

// InvokeServiceMessage sends one request through a catalog service binding.
type InvokeServiceMessage struct {
	Service        string
	ServiceOptions core.ServiceOptions
	Method         string
	Path           string
	Body           core.Body
	Options        core.RequestOptions
}

func (InvokeServiceMessage) Type() string { return TypeInvokeService }

func (m InvokeServiceMessage) Validate() error {
	if strings.TrimSpace(m.Service) == "" {
		return commandValidationError("service", "service name or type is required")
	}
	switch strings.ToUpper(strings.TrimSpace(m.Method)) {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		if !m.Body.IsZero() {
			return commandValidationError("body", "body is not allowed for "+strings.ToUpper(m.Method))
		}
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return commandValidationError("method", "method must be one of GET, HEAD, DELETE, POST, PUT or PATCH")
	}
	return nil
}
