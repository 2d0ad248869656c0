package transport

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/goliatone/go-identity/core"
)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// BuildURL resolves path against host and appends the encoded query.
//
// An absolute path ignores host. A relative path needs a host. A leading
// slash replaces the host path, anything else is appended to it after one
// trailing slash is stripped. A query string already present on path is
// kept and the encoded parameters are appended with "&".
func BuildURL(host string, path string, query core.Query) (string, error) {
	base, existing, hasQuery := strings.Cut(path, "?")

	target := base
	if !schemePattern.MatchString(base) {
		host = strings.TrimSpace(host)
		if host == "" {
			return "", core.NewLocalError(
				core.IdentityErrorMissingHost,
				fmt.Sprintf("Host is required to resolve relative path %q", path),
			).WithMetadata(map[string]any{"path": path})
		}
		parsed, err := url.Parse(host)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", core.NewLocalError(
				core.IdentityErrorMissingHost,
				fmt.Sprintf("Host %q is not an absolute url", host),
			).WithMetadata(map[string]any{"host": host, "path": path})
		}
		origin := parsed.Scheme + "://" + parsed.Host
		if strings.HasPrefix(base, "/") {
			target = origin + base
		} else {
			target = origin + strings.TrimSuffix(parsed.EscapedPath(), "/") + "/" + base
		}
	}

	encoded := EncodeQuery(query)
	switch {
	case hasQuery && existing != "" && encoded != "":
		return target + "?" + existing + "&" + encoded, nil
	case hasQuery && existing != "":
		return target + "?" + existing, nil
	case encoded != "":
		return target + "?" + encoded, nil
	default:
		return target, nil
	}
}

// EncodeQuery serializes query with sorted keys. Nil values and nil pointers
// are dropped; slices or arrays expand into exactly one pair per element, in
// order, with nil elements sent as empty values. Pointers are dereferenced
// before formatting.
func EncodeQuery(query core.Query) string {
	if len(query) == 0 {
		return ""
	}
	values := url.Values{}
	for key, value := range query {
		key = strings.TrimSpace(key)
		if key == "" || isNil(value) {
			continue
		}
		for _, item := range expandQueryValue(value) {
			values.Add(key, item)
		}
	}
	return values.Encode()
}

func expandQueryValue(value any) []string {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []byte:
		return []string{string(typed)}
	}
	rv := indirect(reflect.ValueOf(value))
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return []string{formatQueryScalar(value)}
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return []string{string(rv.Bytes())}
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, formatQueryScalar(rv.Index(i).Interface()))
	}
	return out
}

// formatQueryScalar stringifies one value; nil becomes the empty string.
func formatQueryScalar(value any) string {
	if isNil(value) {
		return ""
	}
	if stringer, ok := value.(fmt.Stringer); ok {
		return stringer.String()
	}
	rv := indirect(reflect.ValueOf(value))
	if !rv.IsValid() {
		return ""
	}
	if stringer, ok := rv.Interface().(fmt.Stringer); ok {
		return stringer.String()
	}
	return fmt.Sprint(rv.Interface())
}

// indirect follows pointers and interfaces down to a concrete value; a nil
// pointer yields the zero reflect.Value.
func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
