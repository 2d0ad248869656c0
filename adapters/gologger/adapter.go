package gologger

import (
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-identity/core"
)

// Component logger names.
const (
	ComponentSession   = core.ComponentSession
	ComponentTransport = core.ComponentTransport
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Named returns the logger for component, see core.NamedLogger.
func Named(component string, provider glog.LoggerProvider, logger glog.Logger) glog.Logger {
	return core.NamedLogger(component, provider, logger)
}
