package gateway

import (
	"regexp"
	"strings"

	"apigw-local/internal/invoker"
)

// AnyMethod matches every HTTP method.
const AnyMethod = "all"

const identitySourcePrefix = "method.request.header."

var (
	greedyParam = regexp.MustCompile(`\{([^{}/]+)\+\}`)
	pathParam   = regexp.MustCompile(`\{([^{}/]+)\}`)
)

// AuthorizerDescriptor names the handler that guards a route.
type AuthorizerDescriptor struct {
	Name           string
	IdentitySource string
	Handler        invoker.HandlerRef
}

// NewAuthorizerDescriptor validates an authorizer declared on function.
func NewAuthorizerDescriptor(function, name, identitySource string, handler invoker.HandlerRef) (*AuthorizerDescriptor, error) {
	if name == "" {
		return nil, configErrorf(function, "Invalid authorizer name for λ %s", function)
	}
	if identitySource == "" {
		return nil, configErrorf(function, "Invalid identitySource for λ %s", function)
	}
	if !strings.HasPrefix(identitySource, identitySourcePrefix) || len(identitySource) == len(identitySourcePrefix) {
		return nil, configErrorf(function, "Expected method.request.header.* in identitySource for λ %s", function)
	}

	return &AuthorizerDescriptor{
		Name:           name,
		IdentitySource: identitySource,
		Handler:        handler,
	}, nil
}

// HeaderName is the lower-cased request header carrying the identity token.
func (a *AuthorizerDescriptor) HeaderName() string {
	return strings.ToLower(a.IdentitySource[strings.LastIndex(a.IdentitySource, ".")+1:])
}

// RouteDescriptor is one HTTP event bound to a function.
type RouteDescriptor struct {
	FunctionName string
	Method       string
	// GatewayPath is the declared path, e.g. /users/{id}.
	GatewayPath string
	// Path is GatewayPath in router syntax, e.g. /users/:id.
	Path       string
	Handler    invoker.HandlerRef
	Authorizer *AuthorizerDescriptor

	greedy []string
}

// NewRouteDescriptor validates and normalizes an HTTP event. method is
// case-insensitive and "any" matches every method.
func NewRouteDescriptor(function, method, path string, handler invoker.HandlerRef, authorizer *AuthorizerDescriptor) (*RouteDescriptor, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	path = strings.TrimSpace(path)
	if method == "" || path == "" {
		return nil, configErrorf(function, "Endpoint for λ %s has no method/path", function)
	}
	if method == "any" || method == "*" {
		method = AnyMethod
	}

	gatewayPath := "/" + strings.TrimLeft(path, "/")
	routerPath, greedy := translatePath(gatewayPath)

	return &RouteDescriptor{
		FunctionName: function,
		Method:       method,
		GatewayPath:  gatewayPath,
		Path:         routerPath,
		Handler:      handler,
		Authorizer:   authorizer,
		greedy:       greedy,
	}, nil
}

// ParseHTTPEvent parses the "METHOD path" shorthand.
func ParseHTTPEvent(function, shorthand string) (method, path string, err error) {
	fields := strings.Fields(shorthand)
	if len(fields) != 2 {
		return "", "", configErrorf(function, "Endpoint for λ %s has no method/path", function)
	}
	return fields[0], fields[1], nil
}

// IsGreedy reports whether name is a catch-all path parameter.
func (r *RouteDescriptor) IsGreedy(name string) bool {
	for _, g := range r.greedy {
		if g == name {
			return true
		}
	}
	return false
}

func (r *RouteDescriptor) String() string {
	return strings.ToUpper(r.Method) + " " + r.GatewayPath
}

func translatePath(path string) (string, []string) {
	var greedy []string
	path = greedyParam.ReplaceAllStringFunc(path, func(m string) string {
		name := greedyParam.FindStringSubmatch(m)[1]
		greedy = append(greedy, name)
		return "*" + name
	})
	return pathParam.ReplaceAllString(path, ":$1"), greedy
}
