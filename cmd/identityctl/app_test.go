package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-identity/core"
)

type identityServer struct {
	*httptest.Server

	mu       sync.Mutex
	revoked  []string
	requests []string
}

func newIdentityServer(t *testing.T) *identityServer {
	t.Helper()
	srv := &identityServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/auth/tokens", func(w http.ResponseWriter, r *http.Request) {
		srv.record(r)
		switch r.Method {
		case http.MethodPost:
			srv.writeToken(w, "tok-issued", http.StatusCreated)
		case http.MethodGet:
			if r.Header.Get(core.HeaderSubjectToken) != "tok-known" {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": 404, "message": "Could not find token: tok-unknown"},
				})
				return
			}
			srv.writeToken(w, "tok-known", http.StatusOK)
		case http.MethodDelete:
			srv.mu.Lock()
			srv.revoked = append(srv.revoked, r.Header.Get(core.HeaderSubjectToken))
			srv.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/compute/v2.1/servers", func(w http.ResponseWriter, r *http.Request) {
		srv.record(r)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": r.Header.Get(core.HeaderAuthToken),
			"limit": r.URL.Query().Get("limit"),
			"trace": r.Header.Get("X-Trace"),
		})
	})
	srv.Server = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (s *identityServer) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
}

func (s *identityServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *identityServer) writeToken(w http.ResponseWriter, subject string, status int) {
	w.Header().Set(core.HeaderSubjectToken, subject)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	now := time.Now().UTC()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token": map[string]any{
			"issued_at":  now.Format(time.RFC3339),
			"expires_at": now.Add(time.Hour).Format(time.RFC3339),
			"methods":    []string{"password"},
			"user":       map[string]any{"id": "u1", "name": "demo"},
			"project":    map[string]any{"id": "p1", "name": "demo"},
			"roles":      []any{map[string]any{"id": "r1", "name": "member"}},
			"catalog": []any{map[string]any{
				"type": "compute",
				"name": "nova",
				"endpoints": []any{map[string]any{
					"interface": "public",
					"region":    "eu-1",
					"region_id": "eu-1",
					"url":       s.URL + "/compute/v2.1",
				}},
			}},
		},
	})
}

func run(t *testing.T, srv *identityServer, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App(&stdout, &stderr)
	argv := append([]string{"identityctl", "--endpoint", srv.URL + "/v3"}, args...)
	err := app.Run(argv)
	return stdout.String(), err
}

var passwordFlags = []string{"--username", "demo", "--password", "s3cret", "--project-id", "p1"}

func withPassword(args ...string) []string {
	return append(append([]string{}, passwordFlags...), args...)
}

func TestTokenIssue_JSONOutput(t *testing.T) {
	srv := newIdentityServer(t)
	out, err := run(t, srv, withPassword("--output", "json", "token", "issue")...)
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}

	var issued struct {
		Token string `json:"token"`
		Info  struct {
			UserID    string   `json:"user_id"`
			ProjectID string   `json:"project_id"`
			Regions   []string `json:"regions"`
		} `json:"info"`
	}
	if err := json.Unmarshal([]byte(out), &issued); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if issued.Token != "tok-issued" {
		t.Fatalf("expected issued token, got %q", issued.Token)
	}
	if issued.Info.UserID != "u1" || issued.Info.ProjectID != "p1" {
		t.Fatalf("unexpected token info %#v", issued.Info)
	}
	if len(issued.Info.Regions) != 1 || issued.Info.Regions[0] != "eu-1" {
		t.Fatalf("expected regions [eu-1], got %#v", issued.Info.Regions)
	}
}

func TestDebugFlag_LogsTransportToStderr(t *testing.T) {
	srv := newIdentityServer(t)
	var stdout, stderr bytes.Buffer
	app := App(&stdout, &stderr)
	argv := append([]string{"identityctl", "--endpoint", srv.URL + "/v3", "--debug"}, withPassword("token", "issue")...)
	if err := app.Run(argv); err != nil {
		t.Fatalf("token issue: %v", err)
	}
	if !strings.Contains(stderr.String(), "transport request completed") {
		t.Fatalf("expected debug transport record on stderr, got %q", stderr.String())
	}
}

func TestTokenValidate_TextOutput(t *testing.T) {
	srv := newIdentityServer(t)
	out, err := run(t, srv, "token", "validate", "tok-known")
	if err != nil {
		t.Fatalf("token validate: %v", err)
	}
	if !strings.Contains(out, "demo (u1)") || !strings.Contains(out, "member") {
		t.Fatalf("expected user and role in output, got %q", out)
	}
	if strings.Contains(out, "tok-known") {
		t.Fatalf("expected validate output to omit the token, got %q", out)
	}
}

func TestTokenValidate_UnknownTokenIsAPIError(t *testing.T) {
	srv := newIdentityServer(t)
	_, err := run(t, srv, "token", "validate", "tok-unknown")
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Error() != "Could not find token: tok-unknown" {
		t.Fatalf("unexpected api error %d %q", apiErr.StatusCode, apiErr.Error())
	}
}

func TestTokenRevoke(t *testing.T) {
	srv := newIdentityServer(t)
	out, err := run(t, srv, "token", "revoke", "tok-known")
	if err != nil {
		t.Fatalf("token revoke: %v", err)
	}
	if strings.TrimSpace(out) != "token revoked" {
		t.Fatalf("unexpected output %q", out)
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.revoked) != 1 || srv.revoked[0] != "tok-known" {
		t.Fatalf("expected tok-known to be revoked, got %#v", srv.revoked)
	}
}

func TestTokenValidate_RequiresArgument(t *testing.T) {
	srv := newIdentityServer(t)
	if _, err := run(t, srv, "token", "validate"); err == nil {
		t.Fatalf("expected missing argument error")
	}
	if srv.requestCount() != 0 {
		t.Fatalf("expected no request without a token argument")
	}
}

func TestRegions_YAMLOutput(t *testing.T) {
	srv := newIdentityServer(t)
	out, err := run(t, srv, withPassword("-o", "yaml", "regions")...)
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	if strings.TrimSpace(out) != "- eu-1" {
		t.Fatalf("unexpected yaml output %q", out)
	}
}

func TestCatalog_TextTable(t *testing.T) {
	srv := newIdentityServer(t)
	out, err := run(t, srv, withPassword("catalog")...)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "NAME") {
		t.Fatalf("expected header and one row, got %q", out)
	}
	for _, want := range []string{"nova", "compute", "public", "eu-1", srv.URL + "/compute/v2.1"} {
		if !strings.Contains(lines[1], want) {
			t.Fatalf("expected %q in row %q", want, lines[1])
		}
	}
}

func TestEndpoint_ResolvesAndReportsMisses(t *testing.T) {
	srv := newIdentityServer(t)
	out, err := run(t, srv, withPassword("endpoint", "compute")...)
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	if strings.TrimSpace(out) != srv.URL+"/compute/v2.1" {
		t.Fatalf("unexpected endpoint %q", out)
	}

	_, err = run(t, srv, withPassword("--region", "us-1", "endpoint", "compute")...)
	var local *core.LocalError
	if !errors.As(err, &local) {
		t.Fatalf("expected local error for unknown region, got %v", err)
	}
}

func TestRequest_SendsAuthenticatedCall(t *testing.T) {
	srv := newIdentityServer(t)
	out, err := run(t, srv, withPassword("request", "--query", "limit=2", "-H", "X-Trace=abc", "get", "compute", "servers")...)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode body %q: %v", out, err)
	}
	if body["token"] != "tok-issued" || body["limit"] != "2" || body["trace"] != "abc" {
		t.Fatalf("unexpected echoed request %#v", body)
	}
}

func TestRequest_JSONEnvelope(t *testing.T) {
	srv := newIdentityServer(t)
	out, err := run(t, srv, withPassword("-o", "json", "request", "GET", "compute", "servers")...)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var envelope struct {
		Status int            `json:"status"`
		Body   map[string]any `json:"body"`
	}
	if err := json.Unmarshal([]byte(out), &envelope); err != nil {
		t.Fatalf("decode envelope %q: %v", out, err)
	}
	if envelope.Status != http.StatusOK || envelope.Body["token"] != "tok-issued" {
		t.Fatalf("unexpected envelope %#v", envelope)
	}
}

func TestRequest_RejectsInvalidInputBeforeAuthenticating(t *testing.T) {
	srv := newIdentityServer(t)
	cases := [][]string{
		{"request", "TRACE", "compute", "servers"},
		{"request", "--data", "{}", "GET", "compute", "servers"},
		{"request", "--data", "{not json", "POST", "compute", "servers"},
		{"request", "--query", "novalue", "GET", "compute", "servers"},
		{"request", "GET", "compute"},
	}
	for _, args := range cases {
		if _, err := run(t, srv, withPassword(args...)...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
	if srv.requestCount() != 0 {
		t.Fatalf("expected no requests for invalid input, got %d", srv.requestCount())
	}
}

func TestCredentialsRequired(t *testing.T) {
	srv := newIdentityServer(t)
	_, err := run(t, srv, "catalog")
	if err == nil || !strings.Contains(err.Error(), "credentials required") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestUnsupportedOutputFormat(t *testing.T) {
	srv := newIdentityServer(t)
	_, err := run(t, srv, withPassword("-o", "xml", "regions")...)
	if err == nil || !strings.Contains(err.Error(), "unsupported output format") {
		t.Fatalf("expected format error, got %v", err)
	}
}
