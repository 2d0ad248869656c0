package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Service binds one catalog entry to a token snapshot. It holds no mutable
// state and may be discarded freely.
type Service struct {
	name      string
	token     *Token
	transport Transport
	session   DefaultOptions
	defaults  DefaultOptions
}

type ServiceOption func(*Service)

// WithSessionDefaults sets the lowest-priority option layer.
func WithSessionDefaults(defaults DefaultOptions) ServiceOption {
	return func(s *Service) {
		s.session = defaults.Clone()
	}
}

func NewService(name string, token *Token, transport Transport, options ServiceOptions, extra ...ServiceOption) *Service {
	svc := &Service{
		name:      strings.TrimSpace(name),
		token:     token,
		transport: transport,
		defaults:  options.Clone(),
	}
	for _, opt := range extra {
		if opt == nil {
			continue
		}
		opt(svc)
	}
	return svc
}

func (s *Service) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Service) Token() *Token {
	if s == nil {
		return nil
	}
	return s.token
}

func (s *Service) Get(ctx context.Context, path string, opts RequestOptions) (*http.Response, error) {
	return s.Do(ctx, http.MethodGet, path, NoBody(), opts)
}

func (s *Service) Head(ctx context.Context, path string, opts RequestOptions) (*http.Response, error) {
	return s.Do(ctx, http.MethodHead, path, NoBody(), opts)
}

func (s *Service) Delete(ctx context.Context, path string, opts RequestOptions) (*http.Response, error) {
	return s.Do(ctx, http.MethodDelete, path, NoBody(), opts)
}

func (s *Service) Post(ctx context.Context, path string, body Body, opts RequestOptions) (*http.Response, error) {
	return s.Do(ctx, http.MethodPost, path, body, opts)
}

func (s *Service) Put(ctx context.Context, path string, body Body, opts RequestOptions) (*http.Response, error) {
	return s.Do(ctx, http.MethodPut, path, body, opts)
}

func (s *Service) Patch(ctx context.Context, path string, body Body, opts RequestOptions) (*http.Response, error) {
	return s.Do(ctx, http.MethodPatch, path, body, opts)
}

func (s *Service) GetCancellable(ctx context.Context, path string, opts RequestOptions) *PendingRequest {
	return s.DoCancellable(ctx, http.MethodGet, path, NoBody(), opts)
}

func (s *Service) HeadCancellable(ctx context.Context, path string, opts RequestOptions) *PendingRequest {
	return s.DoCancellable(ctx, http.MethodHead, path, NoBody(), opts)
}

func (s *Service) DeleteCancellable(ctx context.Context, path string, opts RequestOptions) *PendingRequest {
	return s.DoCancellable(ctx, http.MethodDelete, path, NoBody(), opts)
}

func (s *Service) PostCancellable(ctx context.Context, path string, body Body, opts RequestOptions) *PendingRequest {
	return s.DoCancellable(ctx, http.MethodPost, path, body, opts)
}

func (s *Service) PutCancellable(ctx context.Context, path string, body Body, opts RequestOptions) *PendingRequest {
	return s.DoCancellable(ctx, http.MethodPut, path, body, opts)
}

func (s *Service) PatchCancellable(ctx context.Context, path string, body Body, opts RequestOptions) *PendingRequest {
	return s.DoCancellable(ctx, http.MethodPatch, path, body, opts)
}

// DoCancellable issues the call with a fresh cancellation token.
func (s *Service) DoCancellable(ctx context.Context, method string, path string, body Body, opts RequestOptions) *PendingRequest {
	return StartCancellable(ctx, func(ctx context.Context, token *CancellationToken) (*http.Response, error) {
		scoped := opts.Clone()
		scoped.Cancellation = token
		return s.Do(ctx, method, path, body, scoped)
	})
}

// Do resolves the service endpoint from the token catalog and delegates to
// the transport with the token attached.
func (s *Service) Do(ctx context.Context, method string, path string, body Body, opts RequestOptions) (*http.Response, error) {
	if s == nil {
		return nil, NewLocalError(IdentityErrorInternal, "core: service binding is nil")
	}
	resolved, endpoint, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}
	if s.transport == nil {
		return nil, NewLocalError(IdentityErrorInternal, "core: service transport is required")
	}
	resolved.Host = endpoint
	if resolved.Headers == nil {
		resolved.Headers = map[string]string{}
	}
	resolved.Headers[HeaderAuthToken] = s.token.AuthToken()
	return s.transport.Do(ctx, Request{
		Method:  method,
		Path:    path,
		Body:    body,
		Options: resolved,
	})
}

// Endpoint reports the URL the binding would call with opts.
func (s *Service) Endpoint(opts RequestOptions) (string, error) {
	if s == nil {
		return "", NewLocalError(IdentityErrorInternal, "core: service binding is nil")
	}
	_, endpoint, err := s.resolve(opts)
	return endpoint, err
}

func (s *Service) resolve(opts RequestOptions) (RequestOptions, string, error) {
	resolved, err := ResolveRequestOptions(s.session, s.defaults, opts)
	if err != nil {
		return RequestOptions{}, "", NewLocalError(IdentityErrorInvalidConfig, err.Error()).WithCause(err)
	}
	if s.token == nil {
		return RequestOptions{}, "", NewLocalError(IdentityErrorNoValidToken, MessageNoValidToken)
	}
	iface := resolved.Interface
	if iface == "" {
		iface = DefaultInterface
	}
	endpoint, ok := s.token.ServiceEndpoint(s.name, EndpointOptions{
		Region:    resolved.Region,
		Interface: iface,
	})
	if !ok {
		return RequestOptions{}, "", NewEndpointNotFoundError(s.name, resolved.Region, iface)
	}
	return resolved, endpoint, nil
}

// NewEndpointNotFoundError reports a catalog lookup miss. An empty region is
// shown as "default".
func NewEndpointNotFoundError(service string, region string, iface string) *LocalError {
	shown := region
	if shown == "" {
		shown = "default"
	}
	return NewLocalError(
		IdentityErrorEndpointNotFound,
		fmt.Sprintf("Service %q not found in catalog for region %q and interface %q", service, shown, iface),
	).WithMetadata(map[string]any{
		"service":   service,
		"region":    region,
		"interface": iface,
	})
}
