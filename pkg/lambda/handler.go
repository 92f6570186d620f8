package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	awslambda "github.com/aws/aws-lambda-go/lambda"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// functionHandler adapts a handler function with one of the aws-lambda-go
// signatures. Unlike lambda.NewHandler it keeps the returned value when the
// function also returns an error, so a result and a failure can both reach
// the gateway. A zero value returned next to an error counts as no result.
type functionHandler struct {
	fn         reflect.Value
	takesCtx   bool
	event      reflect.Type
	hasValue   bool
	returnsErr bool
}

// NewHandler wraps fn. It fails when fn is not a function or its signature
// is not one aws-lambda-go accepts:
//
//	func()
//	func(TIn)
//	func(context.Context, TIn)
//	func() error / func(TIn) error / func(context.Context, TIn) error
//	func() (TOut, error) / func(TIn) (TOut, error) / func(context.Context, TIn) (TOut, error)
//
// Values that already implement lambda.Handler are returned unchanged.
func NewHandler(fn any) (awslambda.Handler, error) {
	if h, ok := fn.(awslambda.Handler); ok {
		return h, nil
	}
	if fn == nil {
		return nil, fmt.Errorf("handler is nil")
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler kind %s is not func", t.Kind())
	}

	h := &functionHandler{fn: v}

	switch t.NumIn() {
	case 0:
	case 1:
		if t.In(0).Implements(contextType) {
			h.takesCtx = true
		} else {
			h.event = t.In(0)
		}
	case 2:
		if !t.In(0).Implements(contextType) {
			return nil, fmt.Errorf("handler takes two arguments, but the first is not Context. got %s", t.In(0))
		}
		h.takesCtx = true
		h.event = t.In(1)
	default:
		return nil, fmt.Errorf("handlers may not take more than two arguments, but handler takes %d", t.NumIn())
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0).Implements(errorType) {
			h.returnsErr = true
		} else {
			h.hasValue = true
		}
	case 2:
		if !t.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("handler returns two values, but the second does not implement error")
		}
		h.hasValue = true
		h.returnsErr = true
	default:
		return nil, fmt.Errorf("handler may not return more than two values")
	}

	return h, nil
}

// Invoke implements lambda.Handler.
func (h *functionHandler) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	var args []reflect.Value
	if h.takesCtx {
		args = append(args, reflect.ValueOf(ctx))
	}
	if h.event != nil {
		event := reflect.New(h.event)
		if err := json.Unmarshal(payload, event.Interface()); err != nil {
			return nil, err
		}
		args = append(args, event.Elem())
	}

	results := h.fn.Call(args)

	var err error
	if h.returnsErr {
		if errVal := results[len(results)-1]; !isNil(errVal) {
			err = errVal.Interface().(error)
		}
	}
	if !h.hasValue {
		return nil, err
	}

	value := results[0]
	if err != nil && value.IsZero() {
		return nil, err
	}

	out, marshalErr := json.Marshal(value.Interface())
	if marshalErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, marshalErr
	}
	return out, err
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
