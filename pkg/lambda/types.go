package lambda

import (
	"encoding/json"
	"io"

	"github.com/aws/aws-lambda-go/lambda/messages"
)

// Handler unit process protocol. The emulator starts the unit binary with
// the export name in HandlerEnv, writes one InvokeRequest to stdin and
// reads one InvokeResponse from the file descriptor ResultFD.
const (
	HandlerEnv = "_HANDLER"
	OfflineEnv = "IS_OFFLINE"
	ResultFD   = 3
)

// Error types a unit reports when the failure is not the handler's own.
const (
	ErrorTypeExportNotFound = "ExportNotFound"
	ErrorTypeNotCallable    = "ExportNotCallable"
	ErrorTypePanic          = "Runtime.Panic"
	ErrorTypeBadRequest     = "Runtime.InvalidRequest"
)

// ReadRequest decodes the invocation request written by the emulator.
func ReadRequest(r io.Reader) (*messages.InvokeRequest, error) {
	var req messages.InvokeRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// WriteResponse encodes the envelope the emulator reads back.
func WriteResponse(w io.Writer, resp *messages.InvokeResponse) error {
	return json.NewEncoder(w).Encode(resp)
}

// ErrorResponse builds a failure envelope.
func ErrorResponse(errorType, message string) *messages.InvokeResponse {
	return &messages.InvokeResponse{
		Error: &messages.InvokeResponse_Error{
			Type:    errorType,
			Message: message,
		},
	}
}
