package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"apigw-local/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(servicePath string) *config.Config {
	return &config.Config{
		Host:          "localhost",
		Port:          3000,
		ServicePath:   servicePath,
		Loader:        config.LoaderExec,
		Offline:       true,
		FailurePolicy: "result-wins",
		Log:           config.LogConfig{Level: "error", Format: "text"},
	}
}

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// TestNewContainer_ExecLoader verifies that a missing handler binary is
// reported per request, naming the function.
func TestNewContainer_ExecLoader(t *testing.T) {
	dir := t.TempDir()
	svc, err := config.ParseService([]byte(`
service: exec
functions:
  hello:
    handler: bin/hello.handler
    events:
      - http: GET hello
`))
	if err != nil {
		t.Fatalf("Failed to parse service: %v", err)
	}

	container, err := NewContainer(testConfig(dir), WithService(svc), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	defer container.Close()

	if err := container.BuildErrors(); err != nil {
		t.Fatalf("Unexpected build errors: %v", err)
	}
	if container.Journal != nil {
		t.Error("Journal should be disabled without a path")
	}
	if container.Metrics != nil {
		t.Error("Metrics should be disabled")
	}

	w := httptest.NewRecorder()
	container.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hello", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	want := "λ hello Caught ERROR: cannot resolve handler " + filepath.Join(dir, "bin/hello") + ".handler"
	if !strings.HasPrefix(w.Body.String(), want) {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
}

// TestNewContainer_ExecFailurePolicy runs a unit that reports a result and
// an error in the same envelope.
func TestNewContainer_ExecFailurePolicy(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell handler units need a POSIX shell")
	}

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o755); err != nil {
		t.Fatalf("Failed to create bin dir: %v", err)
	}
	// Payload is {"statusCode":201,"body":"ok"}.
	unit := "#!/bin/sh\ncat >/dev/null\n" +
		`printf '{"Payload":"eyJzdGF0dXNDb2RlIjoyMDEsImJvZHkiOiJvayJ9","Error":{"errorMessage":"also failed","errorType":"*errors.errorString"}}' >&3` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "bin", "both"), []byte(unit), 0o755); err != nil {
		t.Fatalf("Failed to write unit: %v", err)
	}

	svc, err := config.ParseService([]byte(`
service: exec
functions:
  both:
    handler: bin/both.handler
    events:
      - http: GET both
`))
	if err != nil {
		t.Fatalf("Failed to parse service: %v", err)
	}

	tests := []struct {
		policy   string
		wantCode int
		wantBody string
	}{
		{policy: "result-wins", wantCode: http.StatusCreated, wantBody: "ok"},
		{policy: "failure-wins", wantCode: http.StatusInternalServerError, wantBody: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			cfg := testConfig(dir)
			cfg.FailurePolicy = tt.policy

			container, err := NewContainer(cfg, WithService(svc), WithLogger(quietLogger()))
			if err != nil {
				t.Fatalf("Failed to create container: %v", err)
			}
			defer container.Close()

			w := httptest.NewRecorder()
			container.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/both", nil))

			if w.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d (%s)", tt.wantCode, w.Code, w.Body.String())
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Expected body %q, got %q", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestNewContainer_RegistryNeedsLoader(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Loader = config.LoaderRegistry

	svc := &config.Service{Functions: map[string]*config.Function{"hello": {Handler: "h.handler"}}}
	if _, err := NewContainer(cfg, WithService(svc), WithLogger(quietLogger())); err == nil {
		t.Fatal("Expected an error for the registry loader without WithLoader")
	}
}

func TestNewContainer_MissingServiceFile(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.ConfigFile = filepath.Join(cfg.ServicePath, "serverless.yml")

	if _, err := NewContainer(cfg, WithLogger(quietLogger())); err == nil {
		t.Fatal("Expected an error for a missing service file")
	}
}
