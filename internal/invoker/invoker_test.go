package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type panicHandler struct{}

func (panicHandler) Invoke(context.Context, []byte) ([]byte, error) {
	panic("kaboom")
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestParseHandlerRef(t *testing.T) {
	tests := []struct {
		name       string
		descriptor string
		want       HandlerRef
		wantErr    bool
	}{
		{
			name:       "module at root",
			descriptor: "handler.hello",
			want:       HandlerRef{ModulePath: "/srv/handler", ExportName: "hello"},
		},
		{
			name:       "nested module",
			descriptor: "src/users/list.handler",
			want:       HandlerRef{ModulePath: "/srv/src/users/list", ExportName: "handler"},
		},
		{name: "missing export", descriptor: "handler", wantErr: true},
		{name: "too many dots", descriptor: "handler.a.b", wantErr: true},
		{name: "empty export", descriptor: "handler.", wantErr: true},
		{name: "empty", descriptor: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHandlerRef("/srv", tt.descriptor)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoker_Invoke(t *testing.T) {
	loader := NewRegistryLoader("/srv").
		MustRegister("lambda.handler", func(ctx context.Context, event json.RawMessage) (map[string]any, error) {
			lc, ok := lambdacontext.FromContext(ctx)
			if !ok || lc.AwsRequestID == "" {
				return nil, errors.New("missing lambda context")
			}
			return map[string]any{"statusCode": 202, "body": "OK"}, nil
		}).
		MustRegister("lambda.error", func(ctx context.Context, event json.RawMessage) (map[string]any, error) {
			return nil, errors.New("callback error")
		}).
		MustRegister("lambda.echo", func(ctx context.Context, event map[string]any) (map[string]any, error) {
			return map[string]any{"body": event["path"]}, nil
		}).
		MustRegister("lambda.both", func(ctx context.Context, event json.RawMessage) (map[string]any, error) {
			return map[string]any{"statusCode": 201, "body": "ok"}, errors.New("also failed")
		}).
		MustRegister("lambda.panics", panicHandler{}).
		MustRegister("lambda.notAFunction", 42)

	inv := New(loader, quietLogger())
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := inv.Invoke(ctx, MustParseHandlerRef("/srv", "lambda.handler"), []byte(`{}`))
		require.NoError(t, err)
		assert.NoError(t, res.Failure)
		assert.JSONEq(t, `{"statusCode":202,"body":"OK"}`, string(res.Payload))
	})

	t.Run("event is passed through", func(t *testing.T) {
		res, err := inv.Invoke(ctx, MustParseHandlerRef("/srv", "lambda.echo"), []byte(`{"path":"/users"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"body":"/users"}`, string(res.Payload))
	})

	t.Run("reported failure", func(t *testing.T) {
		res, err := inv.Invoke(ctx, MustParseHandlerRef("/srv", "lambda.error"), []byte(`{}`))
		require.NoError(t, err)
		require.Error(t, res.Failure)
		assert.Equal(t, "callback error", res.Failure.Error())
	})

	t.Run("result and failure both reach the caller", func(t *testing.T) {
		res, err := inv.Invoke(ctx, MustParseHandlerRef("/srv", "lambda.both"), []byte(`{}`))
		require.NoError(t, err)
		require.EqualError(t, res.Failure, "also failed")
		assert.JSONEq(t, `{"statusCode":201,"body":"ok"}`, string(res.Payload))
	})

	t.Run("zero result next to a failure is no result", func(t *testing.T) {
		res, err := inv.Invoke(ctx, MustParseHandlerRef("/srv", "lambda.error"), []byte(`{}`))
		require.NoError(t, err)
		assert.Nil(t, res.Payload)
	})

	t.Run("panic is a crash", func(t *testing.T) {
		_, err := inv.Invoke(ctx, MustParseHandlerRef("/srv", "lambda.panics"), []byte(`{}`))
		var crash *CrashError
		require.ErrorAs(t, err, &crash)
		assert.Equal(t, "kaboom", crash.Error())
	})

	t.Run("missing export", func(t *testing.T) {
		_, err := inv.Invoke(ctx, MustParseHandlerRef("/srv", "lambda.missing"), []byte(`{}`))
		var re *ResolutionError
		require.ErrorAs(t, err, &re)
		assert.ErrorIs(t, err, ErrExportNotFound)
	})

	t.Run("missing module", func(t *testing.T) {
		_, err := inv.Invoke(ctx, MustParseHandlerRef("/srv", "nowhere.handler"), []byte(`{}`))
		assert.ErrorIs(t, err, ErrModuleNotFound)
		assert.True(t, IsSyncFailure(err))
	})

	t.Run("export is not callable", func(t *testing.T) {
		_, err := inv.Invoke(ctx, MustParseHandlerRef("/srv", "lambda.notAFunction"), []byte(`{}`))
		assert.ErrorIs(t, err, ErrNotCallable)
	})
}

func TestInvoker_SurvivesCanceledContext(t *testing.T) {
	loader := NewRegistryLoader("/srv").
		MustRegister("lambda.handler", func(ctx context.Context) (string, error) {
			return "done", ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(loader, quietLogger()).Invoke(ctx, MustParseHandlerRef("/srv", "lambda.handler"), []byte(`{}`))
	require.NoError(t, err)
	assert.NoError(t, res.Failure)
	assert.JSONEq(t, `"done"`, string(res.Payload))
}
