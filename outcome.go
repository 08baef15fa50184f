package errorsdk

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-resty/resty/v2"
)

var errNotJSONObject = errors.New("response body is not a JSON object")

// classifyAttempt turns one attempt into either a parsed response body or one of
// the attempt failure types. The status code is checked before the body so a
// non-2xx answer is a failure even when it parses.
func classifyAttempt(resp *resty.Response, err error) (map[string]any, error) {
	if err != nil {
		return nil, &TransportFailure{Err: err}
	}

	raw := resp.Body()

	if !resp.IsSuccess() {
		return nil, &HTTPStatusFailure{
			StatusCode: resp.StatusCode(),
			Body:       string(raw),
			Detail:     errorDetail(raw),
		}
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &ParseFailure{Body: string(raw), Err: err}
	}

	if body == nil {
		return nil, &ParseFailure{Body: string(raw), Err: errNotJSONObject}
	}

	return body, nil
}

// errorDetail prefers the message or error field of a JSON error body and falls
// back to the raw text.
func errorDetail(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "(empty error body)"
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"message", "error"} {
			if v, ok := body[key].(string); ok && v != "" {
				return v
			}
		}
	}

	return text
}
