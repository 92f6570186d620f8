package lambda

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambda/messages"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

// Serve runs a handler unit binary: it picks the export named by the
// _HANDLER environment variable, invokes it once and exits. The envelope
// goes to stdout when the result descriptor is not open.
//
//	func main() {
//		lambda.Serve(map[string]any{"handler": handle})
//	}
func Serve(exports map[string]any) {
	out := os.NewFile(uintptr(ResultFD), "result")
	if _, err := out.Stat(); err != nil {
		out = os.Stdout
	}

	err := Run(context.Background(), exports, os.Getenv(HandlerEnv), os.Stdin, out)
	out.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Run performs a single invocation of exports[name], reading the request
// from in and writing the envelope to out. The returned error only covers
// protocol I/O; handler failures travel inside the envelope.
func Run(ctx context.Context, exports map[string]any, name string, in io.Reader, out io.Writer) error {
	req, err := ReadRequest(in)
	if err != nil {
		return WriteResponse(out, ErrorResponse(ErrorTypeBadRequest, err.Error()))
	}

	fn, ok := exports[name]
	if !ok {
		return WriteResponse(out, ErrorResponse(ErrorTypeExportNotFound, fmt.Sprintf("export %q not found", name)))
	}

	handler, err := NewHandler(fn)
	if err != nil {
		return WriteResponse(out, ErrorResponse(ErrorTypeNotCallable, fmt.Sprintf("export %q is not a handler function: %v", name, err)))
	}

	ctx = lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{
		AwsRequestID:       req.RequestId,
		InvokedFunctionArn: req.InvokedFunctionArn,
	})

	return WriteResponse(out, invoke(ctx, handler, req.Payload))
}

func invoke(ctx context.Context, handler awslambda.Handler, payload []byte) (resp *messages.InvokeResponse) {
	defer func() {
		if r := recover(); r != nil {
			resp = ErrorResponse(ErrorTypePanic, fmt.Sprint(r))
		}
	}()

	out, err := handler.Invoke(ctx, payload)
	resp = &messages.InvokeResponse{Payload: out}
	if err != nil {
		resp.Error = &messages.InvokeResponse_Error{
			Message: err.Error(),
			Type:    reflect.TypeOf(err).String(),
		}
	}
	return resp
}
