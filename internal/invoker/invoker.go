package invoker

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CodeLoader resolves a handler reference to something invokable. Loaders
// must not cache between calls so edits to handler units are picked up.
type CodeLoader interface {
	LoadExport(ref HandlerRef) (lambda.Handler, error)
}

// Result is the outcome a handler reported through its result channel.
type Result struct {
	Payload []byte
	Failure error
}

// Invoker runs handler units on behalf of the gateway.
type Invoker struct {
	loader CodeLoader
	logger logrus.FieldLogger
}

// New creates an invoker backed by the given loader
func New(loader CodeLoader, logger logrus.FieldLogger) *Invoker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Invoker{
		loader: loader,
		logger: logger,
	}
}

// Invoke loads the handler fresh and passes it the serialized event.
//
// A non-nil error means no outcome was produced: the handler could not be
// resolved (*ResolutionError) or failed synchronously (*CrashError).
// Failures the handler reports itself are returned in Result.Failure.
func (i *Invoker) Invoke(ctx context.Context, ref HandlerRef, payload []byte) (result Result, err error) {
	handler, err := i.loader.LoadExport(ref)
	if err != nil {
		if !IsSyncFailure(err) {
			err = &ResolutionError{Ref: ref, Err: err}
		}
		return Result{}, err
	}

	requestID := uuid.NewString()
	lc := &lambdacontext.LambdaContext{AwsRequestID: requestID}
	// Client disconnects must not cut a running handler short.
	invokeCtx := lambdacontext.NewContext(context.WithoutCancel(ctx), lc)

	defer func() {
		if r := recover(); r != nil {
			result = Result{}
			err = &CrashError{Ref: ref, Err: fmt.Errorf("%v", r)}
		}
	}()

	start := time.Now()
	out, failure := handler.Invoke(invokeCtx, payload)
	if IsSyncFailure(failure) {
		return Result{}, failure
	}

	i.logger.WithFields(logrus.Fields{
		"handler":    ref.String(),
		"request_id": requestID,
		"duration":   time.Since(start),
		"failed":     failure != nil,
	}).Debug("Handler invocation finished")

	return Result{Payload: out, Failure: failure}, nil
}
