package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	locallambda "apigw-local/pkg/lambda"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambda/messages"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Function carries the per-function settings an exec'd unit runs with.
type Function struct {
	Name        string
	Environment map[string]string
}

// ExecLoader runs handler units as separate executables, one process per
// invocation. A module path names the unit binary.
type ExecLoader struct {
	env     map[string]string
	offline bool
	logger  logrus.FieldLogger

	mu        sync.RWMutex
	functions map[HandlerRef]Function
}

// NewExecLoader creates a loader. env is the provider-level environment
// applied to every unit.
func NewExecLoader(env map[string]string, offline bool, logger logrus.FieldLogger) *ExecLoader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ExecLoader{
		env:       lo.Assign(env),
		offline:   offline,
		logger:    logger,
		functions: make(map[HandlerRef]Function),
	}
}

// Bind associates function-level settings with a handler reference.
func (l *ExecLoader) Bind(ref HandlerRef, fn Function) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.functions[ref] = fn
}

// LoadExport implements CodeLoader. The binary is looked up on every call.
func (l *ExecLoader) LoadExport(ref HandlerRef) (lambda.Handler, error) {
	info, err := os.Stat(ref.ModulePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ResolutionError{Ref: ref, Err: ErrModuleNotFound}
		}
		return nil, &ResolutionError{Ref: ref, Err: err}
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return nil, &ResolutionError{Ref: ref, Err: fmt.Errorf("%s is not an executable", ref.ModulePath)}
	}

	l.mu.RLock()
	fn := l.functions[ref]
	l.mu.RUnlock()

	return &execHandler{
		ref:    ref,
		env:    l.environ(ref, fn),
		logger: l.logger,
	}, nil
}

func (l *ExecLoader) environ(ref HandlerRef, fn Function) []string {
	vars := lo.Assign(l.env, fn.Environment, map[string]string{
		locallambda.HandlerEnv: ref.ExportName,
	})
	if l.offline {
		vars[locallambda.OfflineEnv] = "true"
	}
	if fn.Name != "" {
		vars["AWS_LAMBDA_FUNCTION_NAME"] = fn.Name
	}

	keys := lo.Keys(vars)
	sort.Strings(keys)

	environ := os.Environ()
	for _, k := range keys {
		environ = append(environ, k+"="+vars[k])
	}
	return environ
}

type execHandler struct {
	ref    HandlerRef
	env    []string
	logger logrus.FieldLogger
}

func (h *execHandler) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	req := messages.InvokeRequest{Payload: payload}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		req.RequestId = lc.AwsRequestID
		req.InvokedFunctionArn = lc.InvokedFunctionArn
	}
	input, err := json.Marshal(req)
	if err != nil {
		return nil, &CrashError{Ref: h.ref, Err: err}
	}

	resultR, resultW, err := os.Pipe()
	if err != nil {
		return nil, &CrashError{Ref: h.ref, Err: err}
	}
	defer resultR.Close()

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, h.ref.ModulePath)
	cmd.Env = h.env
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.ExtraFiles = []*os.File{resultW}

	if err := cmd.Start(); err != nil {
		resultW.Close()
		return nil, &ResolutionError{Ref: h.ref, Err: err}
	}
	resultW.Close()

	envelope, readErr := io.ReadAll(resultR)
	waitErr := cmd.Wait()
	h.logOutput(output.String())

	if readErr != nil {
		return nil, &CrashError{Ref: h.ref, Err: readErr}
	}
	if len(bytes.TrimSpace(envelope)) == 0 {
		if waitErr == nil {
			waitErr = fmt.Errorf("exited without a result")
		}
		return nil, &CrashError{Ref: h.ref, Err: waitErr}
	}

	var resp messages.InvokeResponse
	if err := json.Unmarshal(envelope, &resp); err != nil {
		return nil, &CrashError{Ref: h.ref, Err: fmt.Errorf("malformed result envelope: %w", err)}
	}
	if resp.Error == nil {
		return resp.Payload, nil
	}

	switch resp.Error.Type {
	case locallambda.ErrorTypeExportNotFound:
		return nil, &ResolutionError{Ref: h.ref, Err: ErrExportNotFound}
	case locallambda.ErrorTypeNotCallable:
		return nil, &ResolutionError{Ref: h.ref, Err: ErrNotCallable}
	case locallambda.ErrorTypePanic, locallambda.ErrorTypeBadRequest:
		return nil, &CrashError{Ref: h.ref, Err: fmt.Errorf("%s", resp.Error.Message)}
	}
	return resp.Payload, &HandlerError{Message: resp.Error.Message, Type: resp.Error.Type}
}

func (h *execHandler) logOutput(output string) {
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if line == "" {
			continue
		}
		h.logger.WithField("handler", h.ref.String()).Info(line)
	}
}
