package core

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type AuthMethod string

const (
	AuthMethodPassword              AuthMethod = "password"
	AuthMethodToken                 AuthMethod = "token"
	AuthMethodApplicationCredential AuthMethod = "application_credential"
)

type UserRef struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name,omitempty"`
	Domain   *DomainRef `json:"domain,omitempty"`
	Password string     `json:"password,omitempty"`
}

type PasswordCredential struct {
	User UserRef `json:"user"`
}

type TokenCredential struct {
	ID string `json:"id"`
}

type ApplicationCredential struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name,omitempty"`
	Secret string   `json:"secret"`
	User   *UserRef `json:"user,omitempty"`
}

type ProjectRef struct {
	ID     string     `json:"id,omitempty"`
	Name   string     `json:"name,omitempty"`
	Domain *DomainRef `json:"domain,omitempty"`
}

type SystemScope struct {
	All bool `json:"all"`
}

// Scope selects what a token is authorized against. Exactly one member is set.
type Scope struct {
	Project *ProjectRef  `json:"project,omitempty"`
	Domain  *DomainRef   `json:"domain,omitempty"`
	System  *SystemScope `json:"system,omitempty"`
}

func ProjectScope(project ProjectRef) *Scope {
	return &Scope{Project: &project}
}

func DomainScope(domain DomainRef) *Scope {
	return &Scope{Domain: &domain}
}

func SystemWideScope() *Scope {
	return &Scope{System: &SystemScope{All: true}}
}

// AuthConfig is a tagged union of the supported credential methods.
type AuthConfig struct {
	Method                AuthMethod
	Password              *PasswordCredential
	Token                 *TokenCredential
	ApplicationCredential *ApplicationCredential
	Scope                 *Scope
}

func PasswordAuth(user UserRef) AuthConfig {
	return AuthConfig{
		Method:   AuthMethodPassword,
		Password: &PasswordCredential{User: user},
	}
}

func TokenAuth(tokenID string) AuthConfig {
	return AuthConfig{
		Method: AuthMethodToken,
		Token:  &TokenCredential{ID: strings.TrimSpace(tokenID)},
	}
}

func ApplicationCredentialAuth(credential ApplicationCredential) AuthConfig {
	return AuthConfig{
		Method:                AuthMethodApplicationCredential,
		ApplicationCredential: &credential,
	}
}

func (c AuthConfig) WithScope(scope *Scope) AuthConfig {
	out := c
	if scope != nil {
		copied := *scope
		out.Scope = &copied
	} else {
		out.Scope = nil
	}
	return out
}

// IsTokenValidation reports whether the config names an existing token with
// no scope, which is served by validating the token instead of issuing one.
func (c AuthConfig) IsTokenValidation() bool {
	return c.Method == AuthMethodToken && c.Token != nil && c.Scope == nil
}

func (c AuthConfig) Validate() error {
	switch c.Method {
	case AuthMethodPassword:
		if c.Token != nil || c.ApplicationCredential != nil {
			return authConfigError("method", "password auth must not carry other credentials")
		}
		if c.Password == nil {
			return authConfigError("password", "password credential is required")
		}
		if err := validateUserRef("password.user", c.Password.User); err != nil {
			return err
		}
		if c.Password.User.Password == "" {
			return authConfigError("password.user.password", "password is required")
		}
	case AuthMethodToken:
		if c.Password != nil || c.ApplicationCredential != nil {
			return authConfigError("method", "token auth must not carry other credentials")
		}
		if c.Token == nil || strings.TrimSpace(c.Token.ID) == "" {
			return authConfigError("token.id", "token id is required")
		}
	case AuthMethodApplicationCredential:
		if c.Password != nil || c.Token != nil {
			return authConfigError("method", "application credential auth must not carry other credentials")
		}
		credential := c.ApplicationCredential
		if credential == nil {
			return authConfigError("application_credential", "application credential is required")
		}
		if strings.TrimSpace(credential.Secret) == "" {
			return authConfigError("application_credential.secret", "secret is required")
		}
		if strings.TrimSpace(credential.ID) == "" {
			if strings.TrimSpace(credential.Name) == "" {
				return authConfigError("application_credential.id", "id or name is required")
			}
			if credential.User == nil {
				return authConfigError("application_credential.user", "user is required when identifying by name")
			}
			if err := validateUserRef("application_credential.user", *credential.User); err != nil {
				return err
			}
		}
	case "":
		return authConfigError("method", "auth method is required")
	default:
		return authConfigError("method", fmt.Sprintf("unsupported auth method %q", c.Method))
	}
	return validateScope(c.Scope)
}

type authRequestBody struct {
	Auth authRequest `json:"auth"`
}

type authRequest struct {
	Identity authIdentity `json:"identity"`
	Scope    *Scope       `json:"scope,omitempty"`
}

type authIdentity struct {
	Methods               []string               `json:"methods"`
	Password              *PasswordCredential    `json:"password,omitempty"`
	Token                 *TokenCredential       `json:"token,omitempty"`
	ApplicationCredential *ApplicationCredential `json:"application_credential,omitempty"`
}

// RequestBody renders the token creation payload.
func (c AuthConfig) RequestBody() any {
	return authRequestBody{
		Auth: authRequest{
			Identity: authIdentity{
				Methods:               []string{string(c.Method)},
				Password:              c.Password,
				Token:                 c.Token,
				ApplicationCredential: c.ApplicationCredential,
			},
			Scope: c.Scope,
		},
	}
}

func validateUserRef(field string, user UserRef) error {
	if strings.TrimSpace(user.ID) != "" {
		return nil
	}
	if strings.TrimSpace(user.Name) == "" {
		return authConfigError(field, "user id or name is required")
	}
	if user.Domain == nil || (strings.TrimSpace(user.Domain.ID) == "" && strings.TrimSpace(user.Domain.Name) == "") {
		return authConfigError(field+".domain", "user domain is required when identifying by name")
	}
	return nil
}

func validateScope(scope *Scope) error {
	if scope == nil {
		return nil
	}
	set := 0
	if scope.Project != nil {
		set++
		if strings.TrimSpace(scope.Project.ID) == "" {
			if strings.TrimSpace(scope.Project.Name) == "" {
				return authConfigError("scope.project", "project id or name is required")
			}
			domain := scope.Project.Domain
			if domain == nil || (strings.TrimSpace(domain.ID) == "" && strings.TrimSpace(domain.Name) == "") {
				return authConfigError("scope.project.domain", "project domain is required when scoping by name")
			}
		}
	}
	if scope.Domain != nil {
		set++
		if strings.TrimSpace(scope.Domain.ID) == "" && strings.TrimSpace(scope.Domain.Name) == "" {
			return authConfigError("scope.domain", "domain id or name is required")
		}
	}
	if scope.System != nil {
		set++
	}
	if set != 1 {
		return authConfigError("scope", "exactly one of project, domain or system is required")
	}
	return nil
}

func authConfigError(field string, message string) error {
	return &LocalError{
		Message:  fmt.Sprintf("Invalid auth config: %s", message),
		TextCode: IdentityErrorInvalidAuthConfig,
		Metadata: map[string]any{"field": field},
		Cause: goerrors.NewValidation("core: auth config validation failed", goerrors.FieldError{
			Field:   field,
			Message: message,
		}),
	}
}
