// Package identity is the entry point of the identity session client. It
// wires the HTTP transport, configuration loading and observability into a
// core.Session.
package identity

import (
	"github.com/goliatone/go-identity/core"
	"github.com/goliatone/go-identity/transport"
)

type Config = core.Config

type Session = core.Session

type Service = core.Service

type Token = core.Token

type AuthConfig = core.AuthConfig

type Scope = core.Scope

type SessionOptions = core.SessionOptions

type ServiceOptions = core.ServiceOptions

type RequestOptions = core.RequestOptions

type Body = core.Body

type Query = core.Query

type LocalError = core.LocalError

type APIError = core.APIError

var (
	PasswordAuth              = core.PasswordAuth
	TokenAuth                 = core.TokenAuth
	ApplicationCredentialAuth = core.ApplicationCredentialAuth
	ProjectScope              = core.ProjectScope
	DomainScope               = core.DomainScope
	SystemWideScope           = core.SystemWideScope
	JSONBody                  = core.JSONBody
	TextBody                  = core.TextBody
	BinaryBody                = core.BinaryBody
	MultipartBody             = core.MultipartBody
	IsLocalError              = core.IsLocalError
	IsAPIError                = core.IsAPIError
	IsCanceled                = core.IsCanceled
)

type Option func(*setup)

type setup struct {
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	httpClient     transport.HTTPDoer
	maxBodyBytes   int64
	transport      core.Transport
	configLoader   core.RawConfigLoader
	sessionOptions []core.Option
}

func WithLogger(logger core.Logger) Option {
	return func(s *setup) {
		s.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(s *setup) {
		s.loggerProvider = provider
	}
}

// WithMetricsRecorder is shared by the session and the HTTP transport.
func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(s *setup) {
		s.metrics = recorder
	}
}

func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(s *setup) {
		s.httpClient = client
	}
}

func WithMaxResponseBodyBytes(limit int64) Option {
	return func(s *setup) {
		s.maxBodyBytes = limit
	}
}

// WithTransport replaces the HTTP transport entirely; HTTP client options are
// then ignored.
func WithTransport(t core.Transport) Option {
	return func(s *setup) {
		s.transport = t
	}
}

// WithConfigLoader layers raw configuration, typically a *config.Loader,
// between the defaults and the runtime Config.
func WithConfigLoader(loader core.RawConfigLoader) Option {
	return func(s *setup) {
		s.configLoader = loader
	}
}

// WithSessionOptions forwards low level core options.
func WithSessionOptions(opts ...core.Option) Option {
	return func(s *setup) {
		s.sessionOptions = append(s.sessionOptions, opts...)
	}
}

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewSession builds an unauthenticated session. Call Establish before binding
// services.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	s := setup{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&s)
	}

	t := s.transport
	if t == nil {
		t = NewTransport(opts...)
	}

	sessionOpts := []core.Option{
		core.WithTransport(t),
		core.WithLogger(s.logger),
		core.WithLoggerProvider(s.loggerProvider),
	}
	if s.metrics != nil {
		sessionOpts = append(sessionOpts, core.WithMetricsRecorder(s.metrics))
	}
	if s.configLoader != nil {
		sessionOpts = append(sessionOpts, core.WithConfigProvider(core.NewCfgxConfigProvider(s.configLoader)))
	}
	sessionOpts = append(sessionOpts, s.sessionOptions...)
	return core.NewSession(cfg, sessionOpts...)
}

// NewTransport builds the HTTP transport from the same options NewSession
// takes.
func NewTransport(opts ...Option) *transport.Client {
	s := setup{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&s)
	}
	clientOpts := []transport.ClientOption{
		transport.WithLogger(s.logger),
		transport.WithLoggerProvider(s.loggerProvider),
		transport.WithMaxResponseBodyBytes(s.maxBodyBytes),
	}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, transport.WithHTTPClient(s.httpClient))
	}
	if s.metrics != nil {
		clientOpts = append(clientOpts, transport.WithMetricsRecorder(s.metrics))
	}
	return transport.NewClient(clientOpts...)
}
