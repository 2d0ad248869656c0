package core

import (
	"context"
	"net/http"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	HeaderAuthToken    = "X-Auth-Token"
	HeaderSubjectToken = "X-Subject-Token"
	HeaderContentType  = "Content-Type"
	HeaderRequestID    = "X-Request-Id"
	HeaderOpenStackID  = "X-Openstack-Request-Id"
)

const (
	InterfacePublic   = "public"
	InterfaceInternal = "internal"
	InterfaceAdmin    = "admin"
)

// Request is one verb call handed to a Transport. Path is resolved against
// Options.Host unless it is absolute.
type Request struct {
	Method  string
	Path    string
	Body    Body
	Options RequestOptions
}

// Transport dispatches requests and maps every failure onto LocalError or
// APIError. Successful responses are returned unread; callers close the body.
type Transport interface {
	Do(ctx context.Context, req Request) (*http.Response, error)
}

type TransportFunc func(ctx context.Context, req Request) (*http.Response, error)

func (fn TransportFunc) Do(ctx context.Context, req Request) (*http.Response, error) {
	return fn(ctx, req)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
