package core

import (
	"fmt"
	"net/http"
	"strings"

	opts "github.com/goliatone/go-options"
)

// Query holds request query parameters. Nil values are dropped, slices expand
// into repeated keys and scalars are stringified.
type Query map[string]any

// RequestOptions are the per-call (action level) options of a verb.
type RequestOptions struct {
	Host         string
	Headers      map[string]string
	Query        Query
	Debug        *bool
	Cancellation *CancellationToken
	Region       string
	Interface    string
}

// DefaultOptions are the overridable defaults held by a session or a service
// binding.
type DefaultOptions struct {
	Headers   map[string]string
	Region    string
	Interface string
	Debug     *bool
}

type SessionOptions = DefaultOptions

type ServiceOptions = DefaultOptions

func Bool(value bool) *bool {
	return &value
}

func (o RequestOptions) DebugEnabled() bool {
	return o.Debug != nil && *o.Debug
}

func (o RequestOptions) Clone() RequestOptions {
	out := o
	out.Headers = cloneHeaders(o.Headers)
	if o.Query != nil {
		out.Query = make(Query, len(o.Query))
		for key, value := range o.Query {
			out.Query[key] = value
		}
	}
	if o.Debug != nil {
		out.Debug = Bool(*o.Debug)
	}
	return out
}

func (o DefaultOptions) Clone() DefaultOptions {
	out := o
	out.Headers = cloneHeaders(o.Headers)
	if o.Debug != nil {
		out.Debug = Bool(*o.Debug)
	}
	return out
}

// ResolveRequestOptions merges the three option levels with priority
// action > service > session. Headers merge key by key, case-insensitively.
func ResolveRequestOptions(session DefaultOptions, service DefaultOptions, action RequestOptions) (RequestOptions, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("session", 0),
			defaultsToLayerMap(session),
			opts.WithSnapshotID[map[string]any]("session"),
		),
		opts.NewLayer(
			opts.NewScope("service", 10),
			defaultsToLayerMap(service),
			opts.WithSnapshotID[map[string]any]("service"),
		),
		opts.NewLayer(
			opts.NewScope("action", 20),
			defaultsToLayerMap(DefaultOptions{
				Region:    action.Region,
				Interface: action.Interface,
				Debug:     action.Debug,
			}),
			opts.WithSnapshotID[map[string]any]("action"),
		),
	)
	if err != nil {
		return RequestOptions{}, fmt.Errorf("core: request options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return RequestOptions{}, fmt.Errorf("core: request options merge failed: %w", err)
	}

	resolved := action.Clone()
	resolved.Region = readLayerString(merged.Value, "region")
	resolved.Interface = readLayerString(merged.Value, "interface")
	resolved.Debug = nil
	if debug, ok := merged.Value["debug"].(bool); ok {
		resolved.Debug = Bool(debug)
	}
	resolved.Headers = MergeHeaders(session.Headers, service.Headers, action.Headers)
	return resolved, nil
}

// MergeHeaders layers header maps left to right; later maps win.
func MergeHeaders(layers ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, layer := range layers {
		for key, value := range layer {
			trimmed := strings.TrimSpace(key)
			if trimmed == "" {
				continue
			}
			merged[http.CanonicalHeaderKey(trimmed)] = value
		}
	}
	return merged
}

// HasHeader reports whether headers carries name, ignoring case.
func HasHeader(headers map[string]string, name string) bool {
	for key := range headers {
		if strings.EqualFold(strings.TrimSpace(key), name) {
			return true
		}
	}
	return false
}

func defaultsToLayerMap(defaults DefaultOptions) map[string]any {
	layer := map[string]any{}
	if region := strings.TrimSpace(defaults.Region); region != "" {
		layer["region"] = region
	}
	if iface := strings.TrimSpace(defaults.Interface); iface != "" {
		layer["interface"] = iface
	}
	if defaults.Debug != nil {
		layer["debug"] = *defaults.Debug
	}
	return layer
}

func readLayerString(values map[string]any, key string) string {
	value, ok := values[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func cloneHeaders(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
