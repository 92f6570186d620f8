package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// FailurePolicy decides what wins when a handler reports a failure and a
// result at the same time.
type FailurePolicy int

const (
	// ResultWins renders a well-formed result even when a failure was also
	// reported.
	ResultWins FailurePolicy = iota
	// FailureWins answers 500 whenever a failure was reported.
	FailureWins
)

// ParseFailurePolicy maps "result-wins" and "failure-wins" to a policy.
func ParseFailurePolicy(s string) (FailurePolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "result-wins":
		return ResultWins, true
	case "failure-wins":
		return FailureWins, true
	}
	return ResultWins, false
}

const (
	internalServerErrorBody = "Internal server error"
	unauthorizedBody        = `{"message":"Unauthorized"}`
	notFoundBody            = `{"message":"Not Found"}`
)

// Response is the HTTP response a handler outcome translates to.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// ToResponse translates a handler outcome. The failure itself is never
// exposed to the client.
func ToResponse(payload []byte, failure error, policy FailurePolicy) Response {
	resp, _ := translate(payload, failure, policy)
	return resp
}

// translate reports false when the outcome degraded to the generic 500.
func translate(payload []byte, failure error, policy FailurePolicy) (Response, bool) {
	if failure != nil && policy == FailureWins {
		return InternalServerError(), false
	}
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return InternalServerError(), false
	}

	result := gjson.ParseBytes(payload)
	if !result.IsObject() {
		return InternalServerError(), false
	}

	status, ok := statusCode(result.Get("statusCode"))
	if !ok {
		return InternalServerError(), false
	}

	headers := make(map[string]string)
	if h := result.Get("headers"); h.IsObject() {
		h.ForEach(func(key, value gjson.Result) bool {
			if value.Type != gjson.Null {
				headers[key.String()] = value.String()
			}
			return true
		})
	}
	if !hasHeader(headers, "Content-Type") {
		headers["Content-Type"] = "application/json"
	}

	return Response{
		StatusCode: status,
		Headers:    headers,
		Body:       body(result.Get("body")),
	}, true
}

// InternalServerError is the opaque response for failed handlers.
func InternalServerError() Response {
	return Response{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       internalServerErrorBody,
	}
}

// Unauthorized is the uniform response for every authorization failure.
func Unauthorized() Response {
	return Response{
		StatusCode: http.StatusForbidden,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       unauthorizedBody,
	}
}

// NotFound answers requests that match no route.
func NotFound() Response {
	return Response{
		StatusCode: http.StatusNotFound,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       notFoundBody,
	}
}

// CaughtError answers a handler that crashed or could not be loaded.
func CaughtError(function string, err error) Response {
	return Response{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       "λ " + function + " Caught ERROR: " + err.Error(),
	}
}

func statusCode(v gjson.Result) (int, bool) {
	code := 0
	switch v.Type {
	case gjson.Number:
		code = int(v.Int())
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		if err != nil {
			return 0, false
		}
		code = n
	case gjson.Null:
	default:
		return 0, false
	}
	if code == 0 {
		return http.StatusOK, true
	}
	// net/http rejects codes outside this range.
	if code < 100 || code > 999 {
		return 0, false
	}
	return code, true
}

func body(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	}
	return v.Raw
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
