package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// observer reports session lifecycle operations as one log record plus a
// counter and a duration histogram, all tagged by operation and outcome.
type observer struct {
	logger          Logger
	metricsRecorder MetricsRecorder
}

func (o observer) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	operation = normalizeOperation(operation)
	elapsed := time.Since(startedAt).Milliseconds()

	record := cloneFields(fields)
	record["event_type"] = operation
	record["duration_ms"] = elapsed
	tags := map[string]string{"operation": operation, "status": "success"}
	if err != nil {
		tags["status"] = "failure"
		record["error"] = err.Error()
		if code := describeError(record, err); code != "" {
			tags["error_text_code"] = code
		}
	}
	record["status"] = tags["status"]

	if o.metricsRecorder != nil {
		prefix := "identity." + operation
		o.metricsRecorder.IncCounter(ctx, prefix+".total", 1, cloneTags(tags))
		o.metricsRecorder.ObserveHistogram(ctx, prefix+".duration_ms", float64(elapsed), cloneTags(tags))
	}
	if err != nil {
		o.log(ctx, true, operation+" failed", record)
		return
	}
	o.log(ctx, false, operation+" succeeded", record)
}

// describeError copies the error envelope into record and returns its text
// code.
func describeError(record map[string]any, err error) string {
	var local *LocalError
	var apiErr *APIError
	switch {
	case errors.As(err, &local):
		envelope := local.ToServiceError()
		record["error_kind"] = "local"
		record["error_category"] = fmt.Sprint(envelope.Category)
		record["error_text_code"] = envelope.TextCode
		if len(local.Metadata) > 0 {
			record["error_metadata"] = RedactSensitiveMap(local.Metadata)
		}
		return envelope.TextCode
	case errors.As(err, &apiErr):
		envelope := apiErr.ToServiceError()
		record["error_kind"] = "api"
		record["error_category"] = fmt.Sprint(envelope.Category)
		record["error_text_code"] = envelope.TextCode
		record["status_code"] = apiErr.StatusCode
		if apiErr.RequestID != "" {
			record["request_id"] = apiErr.RequestID
		}
		return envelope.TextCode
	default:
		return ""
	}
}

func (o observer) log(ctx context.Context, failed bool, message string, record map[string]any) {
	if o.logger == nil {
		return
	}
	logger := o.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(record))
	}
	if failed {
		logger.Error(message, flattenFields(record)...)
		return
	}
	logger.Info(message, flattenFields(record)...)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var _ MetricsRecorder = NopMetricsRecorder{}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	return maps.Clone(tags)
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return maps.Clone(fields)
}

// flattenFields renders fields as sorted key/value pairs for glog.
func flattenFields(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(operation)))
	if operation == "" {
		return "unknown"
	}
	return operation
}
