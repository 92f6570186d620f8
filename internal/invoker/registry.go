package invoker

import (
	"fmt"
	"sync"

	locallambda "apigw-local/pkg/lambda"

	"github.com/aws/aws-lambda-go/lambda"
)

// RegistryLoader serves handler functions registered in-process. It is used
// when handler units are compiled into the emulator and by tests.
type RegistryLoader struct {
	mu      sync.RWMutex
	root    string
	exports map[HandlerRef]any
	modules map[string]int
}

// NewRegistryLoader creates an empty registry whose descriptors resolve
// against root.
func NewRegistryLoader(root string) *RegistryLoader {
	return &RegistryLoader{
		root:    root,
		exports: make(map[HandlerRef]any),
		modules: make(map[string]int),
	}
}

// Register binds a handler descriptor such as "handlers/users.list" to fn.
// fn may be any value; non-function values fail at load time.
func (l *RegistryLoader) Register(descriptor string, fn any) error {
	ref, err := ParseHandlerRef(l.root, descriptor)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.exports[ref]; !exists {
		l.modules[ref.ModulePath]++
	}
	l.exports[ref] = fn
	return nil
}

// MustRegister is Register that panics on a malformed descriptor.
func (l *RegistryLoader) MustRegister(descriptor string, fn any) *RegistryLoader {
	if err := l.Register(descriptor, fn); err != nil {
		panic(err)
	}
	return l
}

// LoadExport implements CodeLoader.
func (l *RegistryLoader) LoadExport(ref HandlerRef) (lambda.Handler, error) {
	l.mu.RLock()
	fn, ok := l.exports[ref]
	known := l.modules[ref.ModulePath] > 0
	l.mu.RUnlock()

	if !ok {
		if !known {
			return nil, &ResolutionError{Ref: ref, Err: ErrModuleNotFound}
		}
		return nil, &ResolutionError{Ref: ref, Err: ErrExportNotFound}
	}

	handler, err := locallambda.NewHandler(fn)
	if err != nil {
		return nil, &ResolutionError{Ref: ref, Err: fmt.Errorf("%w: %v", ErrNotCallable, err)}
	}
	return handler, nil
}
