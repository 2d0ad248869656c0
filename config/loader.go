package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/goliatone/go-identity/core"
)

const DefaultEnvPrefix = "IDENTITY_"

// headerEnvMarker separates the header name in variables such as
// IDENTITY_HEADERS__X_TRACE_ID.
const headerEnvMarker = "headers__"

// Loader reads raw configuration with the precedence
// overrides > environment > file.
type Loader struct {
	envPrefix string
	filePath  string
	overrides map[string]any
}

type Option func(*Loader)

func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = strings.TrimSpace(path)
	}
}

// WithOverrides layers values above every other source. Empty strings are
// skipped so unset flags do not mask lower sources.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		for key, value := range values {
			if text, ok := value.(string); ok && strings.TrimSpace(text) == "" {
				continue
			}
			if value == nil {
				continue
			}
			l.overrides[key] = value
		}
	}
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		envPrefix: DefaultEnvPrefix,
		overrides: map[string]any{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(l)
	}
	return l
}

// LoadRaw builds a fresh koanf tree on every call so environment changes
// between loads are observed.
func (l *Loader) LoadRaw(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if l.filePath != "" {
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", l.filePath, err)
		}
	}
	if err := k.Load(env.ProviderWithValue(l.envPrefix, ".", l.envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}
	if len(l.overrides) > 0 {
		if err := k.Load(mapProvider(l.overrides), nil); err != nil {
			return nil, fmt.Errorf("config: load overrides: %w", err)
		}
	}
	return k.Raw(), nil
}

// Load resolves the raw tree into a validated core.Config on top of
// core.DefaultConfig.
func (l *Loader) Load(ctx context.Context) (core.Config, error) {
	return core.NewCfgxConfigProvider(l).Load(ctx, core.DefaultConfig())
}

// envKey maps IDENTITY_USER_AGENT to user_agent and
// IDENTITY_HEADERS__X_TRACE_ID to headers.X-Trace-Id. Unknown keys are
// dropped.
func (l *Loader) envKey(name string, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
	if header, ok := strings.CutPrefix(key, headerEnvMarker); ok {
		header = headerName(header)
		if header == "" {
			return "", nil
		}
		return "headers." + header, value
	}
	switch key {
	case "endpoint", "region", "interface", "user_agent":
		return key, strings.TrimSpace(value)
	case "debug":
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return "", nil
		}
		return key, enabled
	default:
		return "", nil
	}
}

func headerName(raw string) string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '_' })
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, "-")
}

var _ core.RawConfigLoader = (*Loader)(nil)
