package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// MaxErrorObjectDepth bounds recursion into untrusted error bodies.
const MaxErrorObjectDepth = 32

var errorMessageKeys = []string{"message", "description", "faultstring", "type"}

// ErrorObjectParser extracts a human readable message from an arbitrary error
// payload. Malformed payloads produce no message and a logged warning.
type ErrorObjectParser struct {
	Logger   Logger
	MaxDepth int
}

// ParseErrorObject runs the default parser, which logs nothing.
func ParseErrorObject(value any) (string, bool) {
	return ErrorObjectParser{}.Parse(value)
}

func (p ErrorObjectParser) Parse(value any) (string, bool) {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = MaxErrorObjectDepth
	}
	normalized, err := normalizeErrorTree(value)
	if err != nil {
		p.warn("error object is not a valid tree", "error", err.Error())
		return "", false
	}
	message, ok, err := parseErrorTree(normalized, 0, maxDepth)
	if err != nil {
		p.warn("error object rejected", "error", err.Error())
		return "", false
	}
	return message, ok
}

func (p ErrorObjectParser) warn(message string, args ...any) {
	logger := glog.Ensure(p.Logger)
	logger.Warn("core: "+message, args...)
}

func parseErrorTree(value any, depth int, maxDepth int) (string, bool, error) {
	if depth > maxDepth {
		return "", false, fmt.Errorf("nesting exceeds %d levels", maxDepth)
	}
	switch typed := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return typed, true, nil
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			message, ok, err := parseErrorTree(item, depth+1, maxDepth)
			if err != nil {
				return "", false, err
			}
			if ok && message != "" {
				parts = append(parts, message)
			}
		}
		if len(parts) == 0 {
			return "", false, nil
		}
		return strings.Join(parts, ", "), true, nil
	case map[string]any:
		for _, key := range errorMessageKeys {
			candidate, exists := typed[key]
			if !exists || candidate == nil {
				continue
			}
			message, ok := stringifyErrorCandidate(candidate)
			if ok {
				return message, true, nil
			}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			message, ok, err := parseErrorTree(typed[key], depth+1, maxDepth)
			if err != nil {
				return "", false, err
			}
			if ok && message != "" {
				parts = append(parts, message)
			}
		}
		if len(parts) == 0 {
			return "", false, nil
		}
		return strings.Join(parts, ", "), true, nil
	case bool, float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return "", false, nil
	default:
		normalized, err := normalizeErrorTree(typed)
		if err != nil {
			return "", false, err
		}
		return parseErrorTree(normalized, depth, maxDepth)
	}
}

func stringifyErrorCandidate(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		if typed == "" {
			return "", false
		}
		return typed, true
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed), true
		}
		return string(encoded), true
	}
}

// normalizeErrorTree converts typed Go values into the generic JSON tree the
// parser walks.
func normalizeErrorTree(value any) (any, error) {
	switch value.(type) {
	case nil, string, bool, float64, []any, map[string]any:
		return value, nil
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(value.(json.RawMessage), &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
