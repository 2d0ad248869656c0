package core

import (
	"net/url"
	"strings"
)

const (
	DefaultInterface = InterfacePublic
	DefaultUserAgent = "go-identity"
)

type Config struct {
	Endpoint  string            `koanf:"endpoint" mapstructure:"endpoint"`
	Region    string            `koanf:"region" mapstructure:"region"`
	Interface string            `koanf:"interface" mapstructure:"interface"`
	Debug     bool              `koanf:"debug" mapstructure:"debug"`
	UserAgent string            `koanf:"user_agent" mapstructure:"user_agent"`
	Headers   map[string]string `koanf:"headers" mapstructure:"headers"`
}

func DefaultConfig() Config {
	return Config{
		Interface: DefaultInterface,
		UserAgent: DefaultUserAgent,
	}
}

func (c Config) Validate() error {
	switch strings.TrimSpace(c.Interface) {
	case "", InterfacePublic, InterfaceInternal, InterfaceAdmin:
	default:
		return invalidConfigError("interface", "interface must be one of public, internal or admin")
	}
	if endpoint := strings.TrimSpace(c.Endpoint); endpoint != "" {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return invalidConfigError("endpoint", "endpoint must be an absolute url")
		}
	}
	return nil
}

// SessionDefaults projects the configured request defaults.
func (c Config) SessionDefaults() DefaultOptions {
	defaults := DefaultOptions{
		Region:    strings.TrimSpace(c.Region),
		Interface: strings.TrimSpace(c.Interface),
		Headers:   cloneHeaders(c.Headers),
	}
	if c.Debug {
		defaults.Debug = Bool(true)
	}
	if agent := strings.TrimSpace(c.UserAgent); agent != "" && !HasHeader(defaults.Headers, "User-Agent") {
		if defaults.Headers == nil {
			defaults.Headers = map[string]string{}
		}
		defaults.Headers["User-Agent"] = agent
	}
	return defaults
}
