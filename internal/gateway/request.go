package gateway

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// requestIDKey is where the request ID middleware stores the ID.
const requestIDKey = "request_id"

// Request is the normalized form of an inbound HTTP request.
type Request struct {
	Method string
	Path   string
	// Headers has lower-cased names; repeated headers are joined with ", ".
	Headers map[string]string
	// Query keeps the first value of each parameter. Nil when empty.
	Query map[string]string
	// Params holds matched path parameters. Nil when empty.
	Params map[string]string
	// Body is nil when the request carried no bytes.
	Body      *string
	RequestID string
}

// Header returns the named header, matching case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers[strings.ToLower(name)]
	return v, ok
}

// NewRequest normalizes a matched request. The body is read fully and
// decoded as UTF-8.
func NewRequest(c *gin.Context, route *RouteDescriptor) (*Request, error) {
	req := &Request{
		Method:  c.Request.Method,
		Path:    c.Request.URL.Path,
		Headers: normalizeHeaders(c.Request),
	}

	if id, ok := c.Get(requestIDKey); ok {
		req.RequestID, _ = id.(string)
	}

	if values := c.Request.URL.Query(); len(values) > 0 {
		req.Query = make(map[string]string, len(values))
		for k, v := range values {
			req.Query[k] = v[0]
		}
	}

	if len(c.Params) > 0 {
		req.Params = make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			value := p.Value
			if route != nil && route.IsGreedy(p.Key) {
				value = strings.TrimPrefix(value, "/")
			}
			req.Params[p.Key] = value
		}
	}

	if c.Request.Body != nil {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			body := strings.ToValidUTF8(string(raw), "�")
			req.Body = &body
		}
	}

	return req, nil
}

func normalizeHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header)+1)
	for k, v := range r.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}
	return headers
}
