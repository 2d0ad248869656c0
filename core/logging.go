package core

import glog "github.com/goliatone/go-logger/glog"

// Component logger names.
const (
	ComponentSession   = "identity"
	ComponentTransport = "identity.transport"
)

// NamedLogger returns the logger for component. A provider is asked for the
// component by name; without one the direct logger is used, and without
// either a nop logger.
func NamedLogger(component string, provider LoggerProvider, logger Logger) Logger {
	resolvedProvider, resolved := glog.Resolve(component, provider, logger)
	if resolvedProvider != nil {
		if named := resolvedProvider.GetLogger(component); named != nil {
			return glog.Ensure(named)
		}
	}
	return glog.Ensure(resolved)
}
