package core

import (
	"net/http"
	"strings"
)

const RedactedValue = "[REDACTED]"

// Any key containing one of these, case-insensitively, is masked.
var sensitiveKeyTerms = []string{
	"password",
	"token",
	"secret",
	"key",
	"auth-token",
}

func IsSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	for _, term := range sensitiveKeyTerms {
		if strings.Contains(key, term) {
			return true
		}
	}
	return false
}

// RedactSensitiveMap returns a masked copy of metadata; never nil.
func RedactSensitiveMap(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		out[key] = maskEntry(key, value)
	}
	return out
}

// RedactSensitiveValue masks sensitive keys at any depth of a generic tree.
// Header collections are masked by header name. The input is never modified.
func RedactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return RedactSensitiveMap(typed)
	case map[string]string:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = maskEntry(key, item)
		}
		return out
	case http.Header:
		return redactHeader(typed)
	case map[string][]string:
		return redactHeader(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = RedactSensitiveValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = RedactSensitiveMap(item)
		}
		return out
	default:
		return value
	}
}

func maskEntry(key string, value any) any {
	if IsSensitiveKey(key) {
		return RedactedValue
	}
	return RedactSensitiveValue(value)
}

func redactHeader(header map[string][]string) map[string]any {
	out := make(map[string]any, len(header))
	for name, values := range header {
		if IsSensitiveKey(name) {
			out[name] = RedactedValue
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}
