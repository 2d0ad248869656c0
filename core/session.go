package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

const (
	TokensPath = "/v3/auth/tokens"

	maxTokenResponseBytes = 10 << 20
)

var versionSuffixPattern = regexp.MustCompile(`/v[0-9]+(\.[0-9]+)?$`)

// sessionState is replaced wholesale on every transition and never edited.
type sessionState struct {
	token    *Token
	endpoint string
	defaults DefaultOptions
}

func (s *sessionState) valid() bool {
	return s != nil && s.token != nil && !s.token.IsExpired()
}

// Session owns the single token slot. Transitions swap the whole state so
// concurrent readers only ever see a complete snapshot.
type Session struct {
	config    Config
	transport Transport
	observer  observer
	state     atomic.Pointer[sessionState]
}

func NewSession(cfg Config, opts ...Option) (*Session, error) {
	builder := defaultSessionBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	logger := NamedLogger(ComponentSession, builder.loggerProvider, builder.logger)
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.transport == nil {
		return nil, NewLocalError(IdentityErrorInvalidConfig, "core: session transport is required")
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(err)
	}

	session := &Session{
		config:    finalConfig,
		transport: builder.transport,
		observer: observer{
			logger:          logger,
			metricsRecorder: builder.metricsRecorder,
		},
	}
	session.state.Store(&sessionState{defaults: finalConfig.SessionDefaults()})
	return session, nil
}

func (s *Session) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Establish authenticates against endpoint, or the configured endpoint when
// empty, and installs the issued token. A token credential without scope is
// validated rather than exchanged.
func (s *Session) Establish(ctx context.Context, endpoint string, auth AuthConfig, options SessionOptions) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"auth_method": string(auth.Method)}
	defer func() {
		s.observer.observeOperation(ctx, startedAt, "establish", err, fields)
	}()

	if err = auth.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = s.config.Endpoint
	}
	tokensURL, err := NormalizeIdentityEndpoint(endpoint)
	if err != nil {
		return err
	}
	fields["endpoint"] = tokensURL
	defaults := overlayDefaults(s.config.SessionDefaults(), options)

	var req Request
	if auth.IsTokenValidation() {
		fields["validation"] = true
		req = s.tokenRequest(http.MethodGet, tokensURL, defaults, NoBody(), map[string]string{
			HeaderAuthToken:    auth.Token.ID,
			HeaderSubjectToken: auth.Token.ID,
		})
	} else {
		req = s.tokenRequest(http.MethodPost, tokensURL, defaults, JSONBody(auth.RequestBody()), nil)
	}

	token, err := s.issueToken(ctx, req)
	if err != nil {
		return err
	}
	s.state.Store(&sessionState{
		token:    token,
		endpoint: tokensURL,
		defaults: defaults,
	})
	return nil
}

// IsValid reports whether a token is installed and not yet expired.
func (s *Session) IsValid() bool {
	if s == nil {
		return false
	}
	return s.state.Load().valid()
}

func (s *Session) Token() (*Token, error) {
	if s == nil {
		return nil, NewLocalError(IdentityErrorNoValidToken, MessageNoValidToken)
	}
	state := s.state.Load()
	if !state.valid() {
		return nil, NewLocalError(IdentityErrorNoValidToken, MessageNoValidToken)
	}
	return state.token, nil
}

// Endpoint is the normalized token endpoint of the last establish.
func (s *Session) Endpoint() string {
	if s == nil {
		return ""
	}
	if state := s.state.Load(); state != nil {
		return state.endpoint
	}
	return ""
}

func (s *Session) Defaults() DefaultOptions {
	if s == nil {
		return DefaultOptions{}
	}
	if state := s.state.Load(); state != nil {
		return state.defaults.Clone()
	}
	return DefaultOptions{}
}

// Terminate revokes the current token when valid. The slot is cleared even
// when the revoke fails; the revoke error is still returned.
func (s *Session) Terminate(ctx context.Context) (err error) {
	startedAt := time.Now()
	fields := map[string]any{}
	defer func() {
		s.observer.observeOperation(ctx, startedAt, "terminate", err, fields)
	}()

	state := s.state.Load()
	if state == nil || state.token == nil {
		fields["revoked"] = false
		return nil
	}
	defer s.state.CompareAndSwap(state, &sessionState{
		endpoint: state.endpoint,
		defaults: state.defaults,
	})
	if !state.valid() {
		fields["revoked"] = false
		return nil
	}

	fields["revoked"] = true
	fields["endpoint"] = state.endpoint
	authToken := state.token.AuthToken()
	resp, err := s.transport.Do(ctx, s.tokenRequest(http.MethodDelete, state.endpoint, state.defaults, NoBody(), map[string]string{
		HeaderAuthToken:    authToken,
		HeaderSubjectToken: authToken,
	}))
	if err != nil {
		return AsTypedError(err)
	}
	drainAndClose(resp)
	return nil
}

// Rescope exchanges the current token for one with a new scope. The prior
// token stays installed when the exchange fails.
func (s *Session) Rescope(ctx context.Context, scope *Scope) (err error) {
	startedAt := time.Now()
	fields := map[string]any{}
	defer func() {
		s.observer.observeOperation(ctx, startedAt, "rescope", err, fields)
	}()

	state := s.state.Load()
	if !state.valid() {
		return NewLocalError(IdentityErrorNoValidToken, MessageNoValidToken)
	}
	if scope == nil {
		return authConfigError("scope", "scope is required to rescope")
	}
	auth := TokenAuth(state.token.AuthToken()).WithScope(scope)
	if err = auth.Validate(); err != nil {
		return err
	}
	fields["endpoint"] = state.endpoint

	token, err := s.issueToken(ctx, s.tokenRequest(http.MethodPost, state.endpoint, state.defaults, JSONBody(auth.RequestBody()), nil))
	if err != nil {
		return err
	}
	s.state.Store(&sessionState{
		token:    token,
		endpoint: state.endpoint,
		defaults: state.defaults,
	})
	return nil
}

// Service binds name to the current token snapshot. Bindings taken before a
// rescope keep the old token.
func (s *Session) Service(name string, options ServiceOptions) (*Service, error) {
	if s == nil {
		return nil, NewLocalError(IdentityErrorNoValidToken, MessageNoValidToken)
	}
	state := s.state.Load()
	if !state.valid() {
		return nil, NewLocalError(IdentityErrorNoValidToken, MessageNoValidToken)
	}
	return NewService(name, state.token, s.transport, options, WithSessionDefaults(state.defaults)), nil
}

func (s *Session) tokenRequest(method string, tokensURL string, defaults DefaultOptions, body Body, headers map[string]string) Request {
	return Request{
		Method: method,
		Path:   tokensURL,
		Body:   body,
		Options: RequestOptions{
			Headers:   MergeHeaders(defaults.Headers, headers),
			Debug:     defaults.Debug,
			Region:    defaults.Region,
			Interface: defaults.Interface,
		},
	}
}

type tokenEnvelope struct {
	Token RawTokenData `json:"token"`
}

func (s *Session) issueToken(ctx context.Context, req Request) (*Token, error) {
	resp, err := s.transport.Do(ctx, req)
	if err != nil {
		return nil, AsTypedError(err)
	}
	defer drainAndClose(resp)

	subject := strings.TrimSpace(resp.Header.Get(HeaderSubjectToken))
	if subject == "" {
		return nil, NewLocalError(
			IdentityErrorMissingSubjectToken,
			fmt.Sprintf("Identity response is missing the %s header", HeaderSubjectToken),
		).WithMetadata(map[string]any{"status_code": resp.StatusCode})
	}

	var envelope tokenEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseBytes)).Decode(&envelope); err != nil {
		return nil, AsTypedError(fmt.Errorf("core: decode token response: %w", err))
	}
	return NewToken(subject, envelope.Token), nil
}

// NormalizeIdentityEndpoint strips trailing slashes and any version suffix
// from endpoint and appends the token path.
func NormalizeIdentityEndpoint(endpoint string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		return "", invalidConfigError("endpoint", "identity endpoint is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", invalidConfigError("endpoint", "identity endpoint must be an absolute url")
	}
	trimmed = strings.TrimSuffix(trimmed, "/auth/tokens")
	trimmed = versionSuffixPattern.ReplaceAllString(trimmed, "")
	trimmed = strings.TrimRight(trimmed, "/")
	return trimmed + TokensPath, nil
}

// overlayDefaults applies the non-empty members of over on top of base.
func overlayDefaults(base DefaultOptions, over DefaultOptions) DefaultOptions {
	out := base.Clone()
	out.Headers = MergeHeaders(base.Headers, over.Headers)
	if region := strings.TrimSpace(over.Region); region != "" {
		out.Region = region
	}
	if iface := strings.TrimSpace(over.Interface); iface != "" {
		out.Interface = iface
	}
	if over.Debug != nil {
		out.Debug = Bool(*over.Debug)
	}
	return out
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTokenResponseBytes))
	_ = resp.Body.Close()
}

func mapBuildError(err error) error {
	if err == nil {
		return nil
	}
	if IsLocalError(err) || IsAPIError(err) {
		return err
	}
	return NewLocalError(IdentityErrorInvalidConfig, fmt.Sprintf("Invalid config: %v", err)).WithCause(err)
}
