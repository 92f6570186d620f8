package gateway

import (
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Placeholders stand in for identifiers that only exist in a deployed API.
const (
	PlaceholderAccountID  = "<Account id>"
	PlaceholderResourceID = "<Resource id>"
	PlaceholderRequestID  = "<Request id>"
	PlaceholderAPIID      = "<API id>"
)

// Provider holds the deployment settings that show up in events.
type Provider struct {
	Stage  string
	Region string
}

// StageName returns the stage, "dev" when unset.
func (p Provider) StageName() string {
	if p.Stage == "" {
		return "dev"
	}
	return p.Stage
}

// RegionName returns the region, "us-east-1" when unset.
func (p Provider) RegionName() string {
	if p.Region == "" {
		return "us-east-1"
	}
	return p.Region
}

// RequestContext mirrors the proxy integration request context.
type RequestContext struct {
	AccountID    string                           `json:"accountId"`
	ResourceID   string                           `json:"resourceId"`
	Stage        string                           `json:"stage"`
	RequestID    string                           `json:"requestId"`
	Identity     *events.APIGatewayRequestIdentity `json:"identity"`
	ResourcePath string                           `json:"resourcePath"`
	HTTPMethod   string                           `json:"httpMethod"`
	APIID        string                           `json:"apiId"`
	Authorizer   map[string]string                `json:"authorizer,omitempty"`
}

// Event is the Lambda proxy integration event handed to handlers.
type Event struct {
	Resource              string            `json:"resource"`
	Path                  string            `json:"path"`
	HTTPMethod            string            `json:"httpMethod"`
	Headers               map[string]string `json:"headers"`
	QueryStringParameters map[string]string `json:"queryStringParameters"`
	PathParameters        map[string]string `json:"pathParameters"`
	StageVariables        map[string]string `json:"stageVariables"`
	RequestContext        RequestContext    `json:"requestContext"`
	Body                  *string           `json:"body"`
}

// ToEvent builds the proxy event for req. Header names are camelized.
func ToEvent(req *Request, provider Provider) *Event {
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[CamelizeHeader(k)] = v
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = PlaceholderRequestID
	}

	method := strings.ToUpper(req.Method)
	return &Event{
		Resource:              req.Path,
		Path:                  req.Path,
		HTTPMethod:            method,
		Headers:               headers,
		QueryStringParameters: emptyToNil(req.Query),
		PathParameters:        emptyToNil(req.Params),
		RequestContext: RequestContext{
			AccountID:    PlaceholderAccountID,
			ResourceID:   PlaceholderResourceID,
			Stage:        provider.StageName(),
			RequestID:    requestID,
			ResourcePath: req.Path,
			HTTPMethod:   method,
			APIID:        PlaceholderAPIID,
		},
		Body: req.Body,
	}
}

// ToAuthorizerEvent builds the TOKEN authorizer event for req. It returns
// nil when the identity header is absent.
func ToAuthorizerEvent(req *Request, auth *AuthorizerDescriptor, provider Provider) *events.APIGatewayCustomAuthorizerRequest {
	token, ok := req.Header(auth.HeaderName())
	if !ok {
		return nil
	}
	return &events.APIGatewayCustomAuthorizerRequest{
		Type:               "TOKEN",
		AuthorizationToken: token,
		MethodArn:          MethodARN(req.Method, req.Path, provider),
	}
}

// MethodARN formats the execute-api ARN of a method invocation.
func MethodARN(method, path string, provider Provider) string {
	return fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/%s/%s%s",
		provider.RegionName(), PlaceholderAccountID, PlaceholderAPIID,
		provider.StageName(), strings.ToUpper(method), path)
}

// CamelizeHeader upper-cases the first letter of every hyphen-separated
// segment: "x-api-key" becomes "X-Api-Key".
func CamelizeHeader(name string) string {
	segments := strings.Split(strings.ToLower(name), "-")
	for i, s := range segments {
		if s != "" {
			segments[i] = strings.ToUpper(s[:1]) + s[1:]
		}
	}
	return strings.Join(segments, "-")
}

func emptyToNil(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
