package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"apigw-local/internal/invoker"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Invoker runs a handler with a serialized event.
type Invoker interface {
	Invoke(ctx context.Context, ref invoker.HandlerRef, payload []byte) (invoker.Result, error)
}

// Principal is what a successful authorizer contributes to the main event.
type Principal struct {
	PrincipalID string
	Context     map[string]string
}

// Fields flattens the principal into requestContext.authorizer.
func (p *Principal) Fields() map[string]string {
	fields := lo.Assign(p.Context)
	fields["principalId"] = p.PrincipalID
	return fields
}

// AuthorizerGate runs the authorizer attached to a route.
type AuthorizerGate struct {
	function   string
	descriptor *AuthorizerDescriptor
	invoker    Invoker
	provider   Provider
	logger     logrus.FieldLogger
}

// NewAuthorizerGate creates a gate guarding function.
func NewAuthorizerGate(function string, descriptor *AuthorizerDescriptor, inv Invoker, provider Provider, logger logrus.FieldLogger) *AuthorizerGate {
	return &AuthorizerGate{
		function:   function,
		descriptor: descriptor,
		invoker:    inv,
		provider:   provider,
		logger:     logger,
	}
}

// Authorize returns the principal for req, or an error when the request
// must be rejected. Every error maps to the same 403 response.
func (g *AuthorizerGate) Authorize(ctx context.Context, req *Request) (*Principal, error) {
	event := ToAuthorizerEvent(req, g.descriptor, g.provider)
	if event == nil {
		g.logger.WithFields(logrus.Fields{
			"function": g.function,
			"header":   g.descriptor.HeaderName(),
		}).Debug("Identity header missing")
		return nil, ErrNoIdentity
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, g.reject(fmt.Errorf("%w: %v", ErrAuthorizerFailed, err))
	}

	result, err := g.invoker.Invoke(ctx, g.descriptor.Handler, payload)
	if err != nil {
		return nil, g.reject(fmt.Errorf("%w: %v", ErrAuthorizerFailed, err))
	}
	if result.Failure != nil {
		return nil, g.reject(fmt.Errorf("%w: %v", ErrAuthorizerFailed, result.Failure))
	}

	principal, err := ParseAuthorizerResult(g.descriptor.Name, result.Payload)
	if err != nil {
		return nil, g.reject(err)
	}
	return principal, nil
}

func (g *AuthorizerGate) reject(err error) error {
	g.logger.WithFields(logrus.Fields{
		"function":   g.function,
		"authorizer": g.descriptor.Name,
	}).Errorf("Auth λ %s ERROR: %v", g.function, err)
	return err
}

// ParseAuthorizerResult validates an authorizer result. principalId must be
// a string or number and policyDocument must be present. context values
// must be scalars and are stringified.
func ParseAuthorizerResult(authorizer string, payload []byte) (*Principal, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: result from authorizer λ %s is not JSON", ErrInvalidAuthorizerOutput, authorizer)
	}
	result := gjson.ParseBytes(payload)
	if !result.IsObject() {
		return nil, fmt.Errorf("%w: result from authorizer λ %s is not an object", ErrInvalidAuthorizerOutput, authorizer)
	}

	principalID := result.Get("principalId")
	if !principalID.Exists() {
		return nil, fmt.Errorf("%w: result from authorizer λ %s is invalid", ErrInvalidAuthorizerOutput, authorizer)
	}
	if principalID.Type != gjson.String && principalID.Type != gjson.Number {
		return nil, fmt.Errorf("%w: authorizer λ %s returned invalid principalId", ErrInvalidAuthorizerOutput, authorizer)
	}
	if !result.Get("policyDocument").Exists() {
		return nil, fmt.Errorf("%w: result from authorizer λ %s is missing a policy", ErrInvalidAuthorizerOutput, authorizer)
	}

	principal := &Principal{
		PrincipalID: principalID.String(),
		Context:     make(map[string]string),
	}

	ctxValue := result.Get("context")
	switch {
	case !ctxValue.Exists() || ctxValue.Type == gjson.Null:
	case ctxValue.IsObject():
		var invalid string
		ctxValue.ForEach(func(key, value gjson.Result) bool {
			if value.IsObject() || value.IsArray() {
				invalid = key.String()
				return false
			}
			principal.Context[key.String()] = scalarString(value)
			return true
		})
		if invalid != "" {
			return nil, fmt.Errorf("%w: authorizer λ %s context value %q is not a scalar", ErrInvalidAuthorizerOutput, authorizer, invalid)
		}
	default:
		return nil, fmt.Errorf("%w: authorizer λ %s context is not an object", ErrInvalidAuthorizerOutput, authorizer)
	}

	return principal, nil
}

func scalarString(v gjson.Result) string {
	if v.Type == gjson.Null {
		return "null"
	}
	return v.String()
}
