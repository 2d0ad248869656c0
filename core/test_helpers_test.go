package core

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

type stubLoggerProvider struct {
	logger Logger
}

func (p stubLoggerProvider) GetLogger(string) Logger {
	return p.logger
}

// recordingTransport answers every request with the next scripted reply.
type recordingTransport struct {
	mu       sync.Mutex
	requests []Request
	replies  []transportReply
}

type transportReply struct {
	status  int
	headers map[string]string
	body    any
	err     error
}

func (t *recordingTransport) Do(_ context.Context, req Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	if len(t.replies) == 0 {
		return newTestResponse(http.StatusNoContent, nil, nil), nil
	}
	reply := t.replies[0]
	if len(t.replies) > 1 {
		t.replies = t.replies[1:]
	}
	if reply.err != nil {
		return nil, reply.err
	}
	if reply.status >= 300 {
		return nil, NewAPIError(reply.status, http.StatusText(reply.status), reply.body)
	}
	return newTestResponse(reply.status, reply.headers, reply.body), nil
}

func (t *recordingTransport) recorded() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

func newTestResponse(status int, headers map[string]string, body any) *http.Response {
	payload := ""
	if body != nil {
		encoded, _ := json.Marshal(body)
		payload = string(encoded)
	}
	header := http.Header{}
	for key, value := range headers {
		header.Set(key, value)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(payload)),
	}
}

func tokenReply(subject string, data RawTokenData) transportReply {
	return transportReply{
		status:  http.StatusCreated,
		headers: map[string]string{HeaderSubjectToken: subject},
		body:    map[string]any{"token": data},
	}
}

func testTokenData(expiresIn time.Duration) RawTokenData {
	return RawTokenData{
		ExpiresAt: time.Now().UTC().Add(expiresIn).Format(time.RFC3339Nano),
		IssuedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Methods:   []string{"password"},
		Roles:     []Role{{ID: "r1", Name: "member"}, {ID: "r2", Name: "reader"}},
		User:      UserInfo{ID: "u1", Name: "demo", Domain: &DomainRef{ID: "default"}},
		Project:   &ProjectInfo{ID: "p1", Name: "demo", Domain: &DomainRef{ID: "default"}},
		Catalog: []CatalogEntry{
			{
				ID:   "c1",
				Name: "nova",
				Type: "compute",
				Endpoints: []Endpoint{
					{ID: "e1", Interface: InterfacePublic, Region: "eu-1", RegionID: "eu-1", URL: "https://compute.example/eu-1"},
					{ID: "e2", Interface: InterfaceInternal, Region: "eu-1", RegionID: "eu-1", URL: "https://compute.internal/eu-1"},
					{ID: "e3", Interface: InterfacePublic, Region: "us-1", RegionID: "us-1", URL: "https://compute.example/us-1"},
				},
			},
			{
				ID:   "c2",
				Name: "keystone",
				Type: "identity",
				Endpoints: []Endpoint{
					{ID: "e4", Interface: InterfacePublic, Region: "eu-1", RegionID: "eu-1", URL: "https://identity.example/v3"},
				},
			},
		},
	}
}

func testPasswordAuth() AuthConfig {
	return PasswordAuth(UserRef{
		Name:     "demo",
		Domain:   &DomainRef{ID: "default"},
		Password: "s3cret",
	}).WithScope(ProjectScope(ProjectRef{ID: "p1"}))
}

func newTestSession(transport Transport, opts ...Option) (*Session, error) {
	options := append([]Option{WithTransport(transport)}, opts...)
	return NewSession(Config{Endpoint: "https://identity.example:5000/v3/"}, options...)
}
