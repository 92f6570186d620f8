package invoker

import (
	"fmt"
	"path/filepath"
	"strings"
)

// HandlerRef identifies an exported handler inside a handler unit.
type HandlerRef struct {
	ModulePath string
	ExportName string
}

func (r HandlerRef) String() string {
	return r.ModulePath + "." + r.ExportName
}

// ParseHandlerRef resolves a "dir/module.export" descriptor against the
// service root. The base name must contain exactly one dot.
func ParseHandlerRef(root, descriptor string) (HandlerRef, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return HandlerRef{}, fmt.Errorf("handler descriptor is empty")
	}

	dir, base := filepath.Split(descriptor)
	parts := strings.Split(base, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return HandlerRef{}, fmt.Errorf("handler descriptor %q must be <module>.<export>", descriptor)
	}

	return HandlerRef{
		ModulePath: filepath.Join(root, dir, parts[0]),
		ExportName: parts[1],
	}, nil
}

// MustParseHandlerRef is ParseHandlerRef for descriptors known to be valid.
func MustParseHandlerRef(root, descriptor string) HandlerRef {
	ref, err := ParseHandlerRef(root, descriptor)
	if err != nil {
		panic(err)
	}
	return ref
}
