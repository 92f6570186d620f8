package server

import (
	"context"
	"fmt"
	"net/http"

	"apigw-local/internal/config"
	"apigw-local/internal/database"
	"apigw-local/internal/gateway"
	"apigw-local/internal/handlers"
	"apigw-local/internal/invoker"
	"apigw-local/internal/metrics"
	"apigw-local/internal/middleware"
	"apigw-local/internal/repositories/sqlite"
	"apigw-local/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Service  *config.Service
	Provider gateway.Provider
	Logger   *logrus.Logger

	Invoker *invoker.Invoker
	Router  *gateway.Router
	// Engine serves the service routes, Admin serves /__local/.
	Engine *gin.Engine
	Admin  *gin.Engine

	// Optional components; nil when disabled.
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Journal  *services.JournalService

	loader invoker.CodeLoader
	db     *database.ConnectionManager
}

// Option customizes a Container
type Option func(*Container)

// WithLoader replaces the loader chosen by configuration.
func WithLoader(loader invoker.CodeLoader) Option {
	return func(c *Container) { c.loader = loader }
}

// WithService uses svc instead of reading the configured service file.
func WithService(svc *config.Service) Option {
	return func(c *Container) { c.Service = svc }
}

// WithLogger replaces the logger built from configuration.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Container) { c.Logger = logger }
}

// binder is implemented by loaders that need per-function settings.
type binder interface {
	Bind(ref invoker.HandlerRef, fn invoker.Function)
}

// NewContainer creates a new dependency injection container. Route
// declarations that cannot be served are reported by BuildErrors and do
// not prevent the other routes from being mounted.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	c := &Container{Config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if c.Logger == nil {
		c.Logger = config.NewLogger(cfg.Log)
	}

	if c.Service == nil {
		svc, err := config.LoadService(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		c.Service = svc
	}

	stage, _ := lo.Coalesce(cfg.Stage, c.Service.Provider.Stage)
	region, _ := lo.Coalesce(cfg.Region, c.Service.Provider.Region)
	c.Provider = gateway.Provider{Stage: stage, Region: region}

	if err := c.initLoader(); err != nil {
		return nil, err
	}
	c.Invoker = invoker.New(c.loader, c.Logger)

	if err := c.initJournal(); err != nil {
		return nil, err
	}
	c.initMetrics()

	c.Engine = gin.New()
	c.Engine.Use(
		middleware.Recovery(c.Logger),
		middleware.RequestID(),
		middleware.StructuredLogger(c.Logger),
		middleware.PerformanceMonitor(c.Logger, 0),
	)
	c.Router = gateway.NewRouter(c.Engine, c.Logger)
	c.buildRoutes()

	if c.Metrics != nil {
		c.Metrics.Routes.Set(float64(len(c.Router.Routes())))
	}

	c.initAdmin()

	return c, nil
}

func (c *Container) initLoader() error {
	if c.loader != nil {
		return nil
	}

	switch c.Config.Loader {
	case config.LoaderExec:
		env := lo.Assign(
			map[string]string{"AWS_REGION": c.Provider.RegionName()},
			c.Service.Provider.Environment,
		)
		c.loader = invoker.NewExecLoader(env, c.Config.Offline, c.Logger)
		return nil
	default:
		return fmt.Errorf("loader %q needs handlers registered in process; use WithLoader", c.Config.Loader)
	}
}

func (c *Container) initJournal() error {
	if c.Config.Journal.Path == "" {
		return nil
	}

	c.db = database.NewConnectionManager(&database.ConnectionConfig{
		DatabasePath:    c.Config.Journal.Path,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: database.DefaultConnectionConfig().ConnMaxLifetime,
		Logger:          c.Logger,
	})
	if err := c.db.Connect(); err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	repo := sqlite.NewInvocationRepository(c.db.GetDB(), c.Logger)
	c.Journal = services.NewJournalService(repo, c.Logger)

	if retention := c.Config.Journal.Retention; retention > 0 {
		if _, err := c.Journal.Prune(context.Background(), retention); err != nil {
			c.Logger.WithError(err).Warn("Failed to prune journal")
		}
	}
	return nil
}

func (c *Container) initMetrics() {
	if !c.Config.Metrics.Enabled {
		return
	}

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewMetrics(c.Registry)
}

func (c *Container) observers() []gateway.Observer {
	var observers []gateway.Observer
	if c.Metrics != nil {
		observers = append(observers, c.Metrics)
	}
	if c.Journal != nil {
		observers = append(observers, c.Journal)
	}
	return observers
}

// buildRoutes mounts one endpoint per http event, in function name order.
func (c *Container) buildRoutes() {
	opts := gateway.EndpointOptions{
		Provider:  c.Provider,
		Logger:    c.Logger,
		Observers: c.observers(),
	}
	if policy, ok := gateway.ParseFailurePolicy(c.Config.FailurePolicy); ok {
		opts.FailurePolicy = policy
	}

	for _, name := range c.Service.FunctionNames() {
		if err := c.Service.ValidateFunction(name); err != nil {
			c.Router.AddBuildError(err)
			continue
		}

		fn := c.Service.Functions[name]
		ref, err := c.bind(name, fn)
		if err != nil {
			c.Router.AddBuildError(err)
			continue
		}

		for _, event := range fn.Events {
			if event.HTTP == nil {
				continue
			}
			route, err := c.routeDescriptor(name, ref, event.HTTP)
			if err != nil {
				c.Router.AddBuildError(err)
				continue
			}
			c.Router.Mount(gateway.NewEndpoint(route, c.Invoker, opts))
		}
	}
}

// bind resolves the handler of a function and hands its settings to the
// loader.
func (c *Container) bind(name string, fn *config.Function) (invoker.HandlerRef, error) {
	ref, err := invoker.ParseHandlerRef(c.Config.ServicePath, fn.Handler)
	if err != nil {
		return invoker.HandlerRef{}, &gateway.ConfigError{
			Function: name,
			Msg:      fmt.Sprintf("Invalid handler for λ %s: %v", name, err),
		}
	}

	if b, ok := c.loader.(binder); ok {
		b.Bind(ref, invoker.Function{Name: name, Environment: fn.Environment})
	}
	return ref, nil
}

func (c *Container) routeDescriptor(function string, ref invoker.HandlerRef, event *config.HTTPEvent) (*gateway.RouteDescriptor, error) {
	method, path := event.Method, event.Path
	if event.Shorthand != "" {
		var err error
		method, path, err = gateway.ParseHTTPEvent(function, event.Shorthand)
		if err != nil {
			return nil, err
		}
	}

	var authorizer *gateway.AuthorizerDescriptor
	if a := event.Authorizer; a != nil {
		authFn, err := c.Service.AuthorizerFunction(a.Name)
		if err != nil {
			return nil, err
		}
		authRef, err := c.bind(a.Name, authFn)
		if err != nil {
			return nil, err
		}
		authorizer, err = gateway.NewAuthorizerDescriptor(function, a.Name, a.IdentitySource, authRef)
		if err != nil {
			return nil, err
		}
	}

	return gateway.NewRouteDescriptor(function, method, path, ref, authorizer)
}

func (c *Container) initAdmin() {
	c.Admin = gin.New()
	c.Admin.Use(middleware.Recovery(c.Logger), middleware.RequestID())

	routerConfig := &handlers.RouterConfig{
		Service: c.Service.Name,
		Routes:  c.Router,
	}
	if c.Journal != nil {
		routerConfig.Journal = c.Journal
		routerConfig.JournalHealth = c.db
	}
	if c.Registry != nil {
		routerConfig.Gatherer = c.Registry
	}
	handlers.SetupRoutes(c.Admin, routerConfig)
}

// BuildErrors reports every route declaration that could not be mounted.
func (c *Container) BuildErrors() error {
	return c.Router.BuildErrors()
}

// Handler returns the gateway as an http.Handler.
func (c *Container) Handler() http.Handler {
	return c.Engine
}

// Close cleans up all resources
func (c *Container) Close() error {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return fmt.Errorf("failed to close journal: %w", err)
		}
	}
	return nil
}
