package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"apigw-local/internal/gateway"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// DefaultIdentitySource is used when an authorizer is given by name only.
const DefaultIdentitySource = "method.request.header.Authorization"

// Service is the subset of a serverless.yml the gateway consumes.
type Service struct {
	Name      string               `yaml:"service"`
	Provider  Provider             `yaml:"provider"`
	Functions map[string]*Function `yaml:"functions"`
}

// Provider holds the provider defaults shared by all functions.
type Provider struct {
	Name        string            `yaml:"name"`
	Runtime     string            `yaml:"runtime"`
	Stage       string            `yaml:"stage"`
	Region      string            `yaml:"region"`
	Environment map[string]string `yaml:"environment"`
}

// Function is one deployable handler and the events that trigger it.
type Function struct {
	Handler     string            `yaml:"handler" validate:"required"`
	Environment map[string]string `yaml:"environment"`
	Events      []Event           `yaml:"events" validate:"dive"`
}

// Event is a function trigger. Only http events are served; the others are
// accepted and ignored.
type Event struct {
	HTTP *HTTPEvent `yaml:"http"`
}

// HTTPEvent is either the "METHOD path" shorthand or a mapping.
type HTTPEvent struct {
	Method     string      `yaml:"method"`
	Path       string      `yaml:"path"`
	Authorizer *Authorizer `yaml:"authorizer"`

	// Shorthand holds the string form when the event was declared as one.
	Shorthand string `yaml:"-"`
}

// UnmarshalYAML accepts both forms of an http event.
func (e *HTTPEvent) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*e = HTTPEvent{Shorthand: value.Value}
		return nil
	}

	type plain HTTPEvent
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*e = HTTPEvent(p)
	return nil
}

// Authorizer references another function of the service by name.
type Authorizer struct {
	Name           string `yaml:"name" validate:"required"`
	IdentitySource string `yaml:"identitySource" validate:"required,startswith=method.request.header."`
}

// UnmarshalYAML accepts a bare function name as well as a mapping.
func (a *Authorizer) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*a = Authorizer{Name: value.Value, IdentitySource: DefaultIdentitySource}
		return nil
	}

	type plain Authorizer
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*a = Authorizer(p)
	return nil
}

// LoadService reads and decodes a service description.
func LoadService(path string) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service description: %w", err)
	}
	return ParseService(data)
}

// ParseService decodes a service description from YAML.
func ParseService(data []byte) (*Service, error) {
	var svc Service
	if err := yaml.Unmarshal(data, &svc); err != nil {
		return nil, fmt.Errorf("failed to parse service description: %w", err)
	}
	if len(svc.Functions) == 0 {
		return nil, errors.New("service description declares no functions")
	}

	for name, fn := range svc.Functions {
		if fn == nil {
			svc.Functions[name] = &Function{}
		}
	}
	return &svc, nil
}

// FunctionNames returns the declared functions in a stable order.
func (s *Service) FunctionNames() []string {
	names := lo.Keys(s.Functions)
	sort.Strings(names)
	return names
}

// ValidateFunction checks one function declaration and reports the first
// problem as a configuration error naming the function.
func (s *Service) ValidateFunction(name string) error {
	fn, ok := s.Functions[name]
	if !ok {
		return &gateway.ConfigError{Function: name, Msg: fmt.Sprintf("λ %s is undefined", name)}
	}

	v := validator.New()
	err := v.Struct(fn)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &gateway.ConfigError{Function: name, Msg: err.Error()}
	}
	return &gateway.ConfigError{Function: name, Msg: functionErrorMessage(name, verrs[0])}
}

func functionErrorMessage(function string, fe validator.FieldError) string {
	switch {
	case fe.StructField() == "Handler":
		return fmt.Sprintf("λ %s has no handler", function)
	case fe.StructField() == "Name" && strings.Contains(fe.StructNamespace(), "Authorizer"):
		return fmt.Sprintf("Invalid authorizer name for λ %s", function)
	case fe.StructField() == "IdentitySource" && fe.Tag() == "required":
		return fmt.Sprintf("Invalid identitySource for λ %s", function)
	case fe.StructField() == "IdentitySource":
		return fmt.Sprintf("Expected method.request.header.* in identitySource for λ %s", function)
	default:
		return fmt.Sprintf("Invalid declaration of λ %s: %s failed %s", function, fe.Namespace(), fe.Tag())
	}
}

// AuthorizerFunction resolves the function an authorizer refers to.
func (s *Service) AuthorizerFunction(name string) (*Function, error) {
	fn, ok := s.Functions[name]
	if !ok {
		return nil, &gateway.ConfigError{Function: name, Msg: fmt.Sprintf("Authorizer λ %s is undefined", name)}
	}
	if fn.Handler == "" {
		return nil, &gateway.ConfigError{Function: name, Msg: fmt.Sprintf("Authorizer λ %s has no handler", name)}
	}
	return fn, nil
}
