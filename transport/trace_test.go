package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-identity/core"
)

func TestClient_DebugTraceRedactsSecrets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	logger := newCaptureLogger()
	client := NewClient(WithHTTPClient(server.Client()), WithLogger(logger))
	body := core.JSONBody(map[string]any{
		"auth": map[string]any{
			"identity": map[string]any{
				"password": map[string]any{
					"user": map[string]any{"name": "demo", "password": "s3cret"},
				},
			},
		},
	})
	resp, err := client.Post(context.Background(), "/v3/auth/tokens", body, core.RequestOptions{
		Host:    server.URL,
		Debug:   core.Bool(true),
		Headers: map[string]string{core.HeaderAuthToken: "tok-secret", "User-Agent": "identityctl"},
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()

	record, ok := logger.find("info", "identity request")
	if !ok {
		t.Fatalf("expected debug trace record")
	}
	if record.fields["method"] != http.MethodPost {
		t.Fatalf("expected method in trace, got %#v", record.fields)
	}
	if id, _ := record.fields["request_id"].(string); id == "" {
		t.Fatalf("expected request id in trace")
	}

	options := record.fields["options"].(map[string]any)
	headers := options["headers"].(map[string]any)
	if headers[core.HeaderAuthToken] != core.RedactedValue {
		t.Fatalf("expected auth token to be masked, got %#v", headers)
	}
	if headers["User-Agent"] != "identityctl" {
		t.Fatalf("expected benign header to survive, got %#v", headers)
	}

	traced := record.fields["body"].(map[string]any)
	user := traced["auth"].(map[string]any)["identity"].(map[string]any)["password"]
	if user != core.RedactedValue {
		t.Fatalf("expected password subtree to be masked, got %#v", user)
	}
}

func TestClient_DebugTraceUsesPlaceholders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := newCaptureLogger()
	client := NewClient(WithHTTPClient(server.Client()), WithLogger(logger))
	pending := client.PutCancellable(context.Background(), "/images/1/file", core.BinaryBody(strings.NewReader("data")), core.RequestOptions{
		Host:  server.URL,
		Debug: core.Bool(true),
	})
	resp, err := pending.Wait()
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = resp.Body.Close()

	record, ok := logger.find("info", "identity request")
	if !ok {
		t.Fatalf("expected debug trace record")
	}
	if record.fields["body"] != placeholderBinary {
		t.Fatalf("expected binary placeholder, got %#v", record.fields["body"])
	}
	options := record.fields["options"].(map[string]any)
	if options["cancellation"] != placeholderCancellation {
		t.Fatalf("expected cancellation placeholder, got %#v", options)
	}
}

func TestClient_DebugTraceFallsBackOnUnencodableRecord(t *testing.T) {
	logger := newCaptureLogger()
	client := NewClient(WithLogger(logger))

	client.trace(context.Background(), "req-1", http.MethodPost, "https://api.example/x", core.Request{
		Method: http.MethodPost,
		Path:   "/x",
		Body:   core.JSONBody(map[string]any{"callback": func() {}}),
	})

	if _, ok := logger.find("warn", "transport: debug trace serialization failed"); !ok {
		t.Fatalf("expected serialization warning")
	}
	record, ok := logger.find("info", "identity request")
	if !ok {
		t.Fatalf("expected raw trace record after warning")
	}
	if record.fields["request_id"] != "req-1" {
		t.Fatalf("expected raw record fields, got %#v", record.fields)
	}
}

func TestClient_TraceDisabledByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := newCaptureLogger()
	client := NewClient(WithHTTPClient(server.Client()), WithLogger(logger))
	resp, err := client.Get(context.Background(), "/", core.RequestOptions{Host: server.URL})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if _, ok := logger.find("info", "identity request"); ok {
		t.Fatalf("expected no trace without debug")
	}
}
