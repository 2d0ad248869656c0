package core

import (
	"context"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type sessionBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	transport       Transport
}

type Option func(*sessionBuilder)

func WithLogger(logger Logger) Option {
	return func(b *sessionBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *sessionBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *sessionBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *sessionBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *sessionBuilder) {
		b.optionsResolver = resolver
	}
}

func WithTransport(transport Transport) Option {
	return func(b *sessionBuilder) {
		b.transport = transport
	}
}

func defaultSessionBuilder(runtime Config) sessionBuilder {
	return sessionBuilder{
		runtimeConfig:   runtime,
		metricsRecorder: NopMetricsRecorder{},
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

// StaticConfigLoader serves a fixed raw map, mostly useful in tests.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader(values)
}

type staticRawConfigLoader map[string]any

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(l))
	for key, value := range l {
		out[key] = value
	}
	return out, nil
}

// CfgxConfigProvider decodes raw loader output onto the defaults with
// cfgx and validates the result.
type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil || p.Loader == nil {
		return buildConfig(nil, defaults)
	}
	raw, err := p.Loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	return buildConfig(raw, defaults)
}

func buildConfig(raw map[string]any, defaults Config) (Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	return cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
}

// GoOptionsResolver merges defaults < loaded < runtime on a go-options stack.
// Only non-empty scalars of the upper layers participate; headers are merged
// case-insensitively across all three.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(opts.NewScope("defaults", 0), configLayer(defaults, true), opts.WithSnapshotID[map[string]any]("defaults")),
		opts.NewLayer(opts.NewScope("config", 10), configLayer(loaded, false), opts.WithSnapshotID[map[string]any]("config")),
		opts.NewLayer(opts.NewScope("runtime", 20), configLayer(runtime, false), opts.WithSnapshotID[map[string]any]("runtime")),
	)
	if err != nil {
		return Config{}, NewLocalError(IdentityErrorInvalidConfig, "Invalid config: options stack").WithCause(err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, NewLocalError(IdentityErrorInvalidConfig, "Invalid config: options merge").WithCause(err)
	}

	resolved, err := buildConfig(merged.Value, defaults)
	if err != nil {
		return Config{}, err
	}
	resolved.Headers = MergeHeaders(defaults.Headers, loaded.Headers, runtime.Headers)
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configLayer(cfg Config, base bool) map[string]any {
	layer := map[string]any{}
	set := func(key, value string) {
		value = strings.TrimSpace(value)
		if base || value != "" {
			layer[key] = value
		}
	}
	set("endpoint", cfg.Endpoint)
	set("region", cfg.Region)
	set("interface", cfg.Interface)
	set("user_agent", cfg.UserAgent)
	if base || cfg.Debug {
		layer["debug"] = cfg.Debug
	}
	return layer
}
