package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-identity/core"
)

// mapFailure lowers a failed exchange onto the two error kinds. Failures
// caused by cancellation become the canonical "Request canceled" error.
func mapFailure(err error, token *core.CancellationToken) error {
	if err == nil {
		return nil
	}
	if token.IsCanceled() || errors.Is(err, context.Canceled) {
		return core.NewCanceledError(err)
	}
	return core.AsTypedError(err)
}

// newResponseError builds the APIError for a non-success response. The
// message comes from the decoded body, then the status line, then the
// generic fallback.
func newResponseError(resp *http.Response, raw []byte, parser core.ErrorObjectParser) *core.APIError {
	var body any
	var decoded any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err == nil {
			body = decoded
		} else {
			body = string(raw)
			decoded = nil
		}
	}

	message := statusLineText(resp)
	if decoded != nil {
		if extracted, ok := parser.Parse(decoded); ok && strings.TrimSpace(extracted) != "" {
			message = extracted
		}
	}

	apiErr := core.NewAPIError(resp.StatusCode, message, nil)
	apiErr.Body = body
	apiErr.RequestID = requestIDFromHeaders(resp.Header)
	return apiErr
}

func statusLineText(resp *http.Response) string {
	text := strings.TrimSpace(resp.Status)
	text = strings.TrimSpace(strings.TrimPrefix(text, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func requestIDFromHeaders(headers http.Header) string {
	for _, name := range []string{core.HeaderOpenStackID, core.HeaderRequestID} {
		if value := strings.TrimSpace(headers.Get(name)); value != "" {
			return value
		}
	}
	return ""
}
