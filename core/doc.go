// Package core holds the identity session contracts: the two error kinds and
// the error object extractor, auth configuration, tokens and catalog
// resolution, service bindings, and the session state machine. The HTTP
// transport and the command and query handlers build on this package.
package core
