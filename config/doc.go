// Package config loads identity client configuration from a YAML file and
// IDENTITY_ prefixed environment variables, later sources overriding earlier
// ones. Loader satisfies core.RawConfigLoader so it can feed
// core.NewCfgxConfigProvider directly.
package config
