// Package prometheus exports identity client metrics through
// github.com/prometheus/client_golang.
package prometheus
