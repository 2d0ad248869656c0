package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAuthConfig_ValidateAcceptsSupportedMethods(t *testing.T) {
	configs := map[string]AuthConfig{
		"password by id": PasswordAuth(UserRef{ID: "u1", Password: "pw"}),
		"password by name": PasswordAuth(UserRef{
			Name:     "demo",
			Domain:   &DomainRef{Name: "Default"},
			Password: "pw",
		}).WithScope(ProjectScope(ProjectRef{Name: "demo", Domain: &DomainRef{ID: "default"}})),
		"token validation": TokenAuth("tok"),
		"token rescope":    TokenAuth("tok").WithScope(DomainScope(DomainRef{ID: "default"})),
		"app credential":   ApplicationCredentialAuth(ApplicationCredential{ID: "ac1", Secret: "s"}),
		"app credential by name": ApplicationCredentialAuth(ApplicationCredential{
			Name:   "ci",
			Secret: "s",
			User:   &UserRef{ID: "u1"},
		}),
		"system scope": PasswordAuth(UserRef{ID: "u1", Password: "pw"}).WithScope(SystemWideScope()),
	}
	for name, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s: expected valid config, got %v", name, err)
		}
	}
}

func TestAuthConfig_ValidateRejectsMalformedUnions(t *testing.T) {
	configs := map[string]AuthConfig{
		"missing method":        {},
		"unknown method":        {Method: "kerberos"},
		"password missing":      {Method: AuthMethodPassword},
		"password empty":        PasswordAuth(UserRef{ID: "u1"}),
		"user name sans domain": PasswordAuth(UserRef{Name: "demo", Password: "pw"}),
		"token empty":           TokenAuth("  "),
		"mixed credentials": {
			Method:   AuthMethodToken,
			Token:    &TokenCredential{ID: "tok"},
			Password: &PasswordCredential{User: UserRef{ID: "u1", Password: "pw"}},
		},
		"app credential secret": ApplicationCredentialAuth(ApplicationCredential{ID: "ac1"}),
		"app credential name sans user": ApplicationCredentialAuth(ApplicationCredential{
			Name:   "ci",
			Secret: "s",
		}),
		"empty scope":     TokenAuth("tok").WithScope(&Scope{}),
		"two scopes":      TokenAuth("tok").WithScope(&Scope{Project: &ProjectRef{ID: "p1"}, Domain: &DomainRef{ID: "d1"}}),
		"project by name": TokenAuth("tok").WithScope(ProjectScope(ProjectRef{Name: "demo"})),
	}
	for name, cfg := range configs {
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		var local *LocalError
		if !errors.As(err, &local) || local.TextCode != IdentityErrorInvalidAuthConfig {
			t.Fatalf("%s: expected invalid auth config local error, got %#v", name, err)
		}
		if !strings.HasPrefix(local.Message, "Invalid auth config: ") {
			t.Fatalf("%s: unexpected message %q", name, local.Message)
		}
	}
}

func TestAuthConfig_IsTokenValidation(t *testing.T) {
	if !TokenAuth("tok").IsTokenValidation() {
		t.Fatalf("expected unscoped token auth to be a validation")
	}
	if TokenAuth("tok").WithScope(SystemWideScope()).IsTokenValidation() {
		t.Fatalf("expected scoped token auth to be an exchange")
	}
	if testPasswordAuth().IsTokenValidation() {
		t.Fatalf("expected password auth not to be a validation")
	}
}

func TestAuthConfig_WithScopeCopies(t *testing.T) {
	scope := ProjectScope(ProjectRef{ID: "p1"})
	base := TokenAuth("tok")
	scoped := base.WithScope(scope)
	scope.Project = &ProjectRef{ID: "p2"}

	if base.Scope != nil {
		t.Fatalf("expected base config to stay unscoped")
	}
	if scoped.Scope.Project.ID != "p1" {
		t.Fatalf("expected scoped config to keep its own scope, got %q", scoped.Scope.Project.ID)
	}
}

func TestAuthConfig_RequestBodyShape(t *testing.T) {
	encoded, err := json.Marshal(testPasswordAuth().RequestBody())
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}

	auth := decoded["auth"].(map[string]any)
	identity := auth["identity"].(map[string]any)
	methods := identity["methods"].([]any)
	if len(methods) != 1 || methods[0] != "password" {
		t.Fatalf("expected password method, got %#v", methods)
	}
	user := identity["password"].(map[string]any)["user"].(map[string]any)
	if user["name"] != "demo" || user["password"] != "s3cret" {
		t.Fatalf("expected user credentials in body, got %#v", user)
	}
	if _, ok := identity["token"]; ok {
		t.Fatalf("expected no token block for password auth")
	}
	project := auth["scope"].(map[string]any)["project"].(map[string]any)
	if project["id"] != "p1" {
		t.Fatalf("expected project scope, got %#v", project)
	}
}

func TestAuthConfig_RequestBodyOmitsMissingScope(t *testing.T) {
	encoded, err := json.Marshal(ApplicationCredentialAuth(ApplicationCredential{ID: "ac1", Secret: "s"}).RequestBody())
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	if strings.Contains(string(encoded), `"scope"`) {
		t.Fatalf("expected no scope key, got %s", encoded)
	}
	if !strings.Contains(string(encoded), `"application_credential":{"id":"ac1","secret":"s"}`) {
		t.Fatalf("expected application credential block, got %s", encoded)
	}
}
