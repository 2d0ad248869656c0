package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-identity/core"
)

const (
	placeholderBinary       = "[Binary]"
	placeholderMultipart    = "[MultipartForm]"
	placeholderCancellation = "[CancellationToken]"
)

// trace emits the debug record of one request. Sensitive keys are masked at
// any depth. When the record cannot be normalized the raw structure is logged
// with a warning instead.
func (c *Client) trace(ctx context.Context, requestID string, method string, target string, req core.Request) {
	logger := c.logger.WithContext(ctx)
	record := map[string]any{
		"method":     method,
		"path":       req.Path,
		"url":        target,
		"request_id": requestID,
		"options":    traceOptions(req.Options),
		"body":       traceBody(req.Body),
	}

	normalized, err := normalizeTraceValue(record)
	if err != nil {
		logger.Warn("transport: debug trace serialization failed", "error", err.Error())
		logger.Info("identity request", flattenRecord(record)...)
		return
	}
	redacted, ok := core.RedactSensitiveValue(normalized).(map[string]any)
	if !ok {
		logger.Info("identity request", flattenRecord(record)...)
		return
	}
	logger.Info("identity request", flattenRecord(redacted)...)
}

func traceOptions(opts core.RequestOptions) map[string]any {
	out := map[string]any{
		"host":      opts.Host,
		"region":    opts.Region,
		"interface": opts.Interface,
		"debug":     opts.DebugEnabled(),
	}
	if len(opts.Headers) > 0 {
		headers := make(map[string]any, len(opts.Headers))
		for key, value := range opts.Headers {
			headers[key] = value
		}
		out["headers"] = headers
	}
	if len(opts.Query) > 0 {
		query := make(map[string]any, len(opts.Query))
		for key, value := range opts.Query {
			query[key] = value
		}
		out["query"] = query
	}
	if opts.Cancellation != nil {
		out["cancellation"] = placeholderCancellation
	}
	return out
}

func traceBody(body core.Body) any {
	switch body.Kind() {
	case core.BodyJSON:
		return body.Value()
	case core.BodyText:
		return body.Text()
	case core.BodyBinary:
		return placeholderBinary
	case core.BodyMultipart:
		return placeholderMultipart
	default:
		return nil
	}
}

// normalizeTraceValue turns structs and typed maps into a generic tree so
// redaction can see every key.
func normalizeTraceValue(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal trace record: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("transport: unmarshal trace record: %w", err)
	}
	return out, nil
}

func flattenRecord(record map[string]any) []any {
	keys := []string{"method", "path", "url", "request_id", "options", "body"}
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		value, ok := record[key]
		if !ok || value == nil {
			continue
		}
		args = append(args, key, value)
	}
	return args
}
