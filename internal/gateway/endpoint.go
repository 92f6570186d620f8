package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ResponseSink receives the single response of a request.
type ResponseSink interface {
	Write(Response)
}

// Outcome classifies how a request ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeHandlerError Outcome = "handler_error"
	OutcomeMalformed    Outcome = "malformed_result"
	OutcomeCrashed      Outcome = "crashed"
	OutcomeUnauthorized Outcome = "unauthorized"
)

// Invocation describes one processed request.
type Invocation struct {
	RequestID   string
	Function    string
	Method      string
	Path        string
	StatusCode  int
	Outcome     Outcome
	PrincipalID string
	Error       string
	StartedAt   time.Time
	Duration    time.Duration
}

// Observer is notified after each response is written.
type Observer interface {
	Observe(ctx context.Context, inv *Invocation)
}

// EndpointOptions configures an Endpoint.
type EndpointOptions struct {
	Provider      Provider
	FailurePolicy FailurePolicy
	Logger        logrus.FieldLogger
	Observers     []Observer
}

// Endpoint processes requests for one route.
type Endpoint struct {
	route     *RouteDescriptor
	gate      *AuthorizerGate
	invoker   Invoker
	provider  Provider
	policy    FailurePolicy
	logger    logrus.FieldLogger
	observers []Observer
}

// NewEndpoint binds route to inv.
func NewEndpoint(route *RouteDescriptor, inv Invoker, opts EndpointOptions) *Endpoint {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	e := &Endpoint{
		route:     route,
		invoker:   inv,
		provider:  opts.Provider,
		policy:    opts.FailurePolicy,
		logger:    logger.WithField("function", route.FunctionName),
		observers: opts.Observers,
	}
	if route.Authorizer != nil {
		e.gate = NewAuthorizerGate(route.FunctionName, route.Authorizer, inv, opts.Provider, e.logger)
	}
	return e
}

// Route returns the descriptor the endpoint serves.
func (e *Endpoint) Route() *RouteDescriptor {
	return e.route
}

// Process runs the request pipeline and writes exactly one response.
func (e *Endpoint) Process(ctx context.Context, req *Request, sink ResponseSink) {
	inv := &Invocation{
		RequestID: req.RequestID,
		Function:  e.route.FunctionName,
		Method:    req.Method,
		Path:      req.Path,
		StartedAt: time.Now(),
	}
	out := &onceSink{sink: sink}

	resp := e.process(ctx, req, inv)
	out.Write(resp)

	inv.StatusCode = resp.StatusCode
	inv.Duration = time.Since(inv.StartedAt)
	for _, o := range e.observers {
		o.Observe(ctx, inv)
	}
}

func (e *Endpoint) process(ctx context.Context, req *Request, inv *Invocation) Response {
	event := ToEvent(req, e.provider)

	if e.gate != nil {
		principal, err := e.gate.Authorize(ctx, req)
		if err != nil {
			inv.Outcome = OutcomeUnauthorized
			inv.Error = err.Error()
			return Unauthorized()
		}
		inv.PrincipalID = principal.PrincipalID
		event.RequestContext.Authorizer = principal.Fields()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return e.caught(inv, err)
	}

	result, err := e.invoker.Invoke(ctx, e.route.Handler, payload)
	if err != nil {
		return e.caught(inv, err)
	}

	if result.Failure != nil {
		e.logger.Errorf("λ %s returned error: %v", e.route.FunctionName, result.Failure)
		inv.Error = result.Failure.Error()
	}

	resp, ok := translate(result.Payload, result.Failure, e.policy)
	switch {
	case result.Failure != nil:
		inv.Outcome = OutcomeHandlerError
	case !ok:
		inv.Outcome = OutcomeMalformed
	default:
		inv.Outcome = OutcomeSuccess
	}
	return resp
}

func (e *Endpoint) caught(inv *Invocation, err error) Response {
	e.logger.WithError(err).Errorf("λ %s Caught ERROR", e.route.FunctionName)
	inv.Outcome = OutcomeCrashed
	inv.Error = err.Error()
	return CaughtError(e.route.FunctionName, err)
}

// onceSink drops every write after the first.
type onceSink struct {
	once sync.Once
	sink ResponseSink
}

func (s *onceSink) Write(resp Response) {
	s.once.Do(func() { s.sink.Write(resp) })
}
