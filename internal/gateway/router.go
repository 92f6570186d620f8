package gateway

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Router registers endpoints on a gin engine and collects the errors found
// while the route table is built.
type Router struct {
	engine    *gin.Engine
	logger    logrus.FieldLogger
	endpoints []*Endpoint
	errors    []error
}

// NewRouter wraps engine. Unmatched requests answer 404.
func NewRouter(engine *gin.Engine, logger logrus.FieldLogger) *Router {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	engine.NoRoute(func(c *gin.Context) {
		WriteResponse(c, NotFound())
	})
	return &Router{
		engine: engine,
		logger: logger,
	}
}

// Register binds handler to method and path. gin panics on conflicting
// patterns; those come back as errors.
func (router *Router) Register(method, path string, handler gin.HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	if method == AnyMethod {
		router.engine.Any(path, handler)
	} else {
		router.engine.Handle(strings.ToUpper(method), path, handler)
	}
	return nil
}

// Mount registers e under its route.
func (router *Router) Mount(e *Endpoint) {
	route := e.Route()
	if err := router.Register(route.Method, route.Path, router.handle(e)); err != nil {
		router.AddBuildError(configErrorf(route.FunctionName, "Route %s for λ %s cannot be registered: %v", route, route.FunctionName, err))
		return
	}

	router.endpoints = append(router.endpoints, e)
	router.logger.Infof("Routing %s %s via λ %s", PadMethod(route.Method), route.GatewayPath, route.FunctionName)
}

// MountIfNoError mounts e unless err is set, in which case err is kept as a
// build error.
func (router *Router) MountIfNoError(e *Endpoint, err error) {
	if err != nil {
		router.AddBuildError(err)
		return
	}
	router.Mount(e)
}

// AddBuildError appends an error to the list of router errors.
func (router *Router) AddBuildError(err error) {
	router.errors = append(router.errors, err)
}

// BuildErrors returns a single error wrapping every error found while the
// route table was built, or nil.
func (router *Router) BuildErrors() error {
	if len(router.errors) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(router.errors))
	for _, err := range router.errors {
		msgs = append(msgs, err.Error())
	}
	return errors.Wrap(errors.New(strings.Join(msgs, "; ")), "failed building router")
}

// Routes lists the mounted routes in registration order.
func (router *Router) Routes() []*RouteDescriptor {
	routes := make([]*RouteDescriptor, 0, len(router.endpoints))
	for _, e := range router.endpoints {
		routes = append(routes, e.Route())
	}
	return routes
}

func (router *Router) handle(e *Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := NewRequest(c, e.Route())
		if err != nil {
			router.logger.WithError(err).Error("Failed to read request body")
			WriteResponse(c, CaughtError(e.Route().FunctionName, err))
			return
		}
		e.Process(c.Request.Context(), req, ginSink{c: c})
	}
}

// ginSink flushes the response so the client has it before the endpoint's
// observers run.
type ginSink struct {
	c *gin.Context
}

func (s ginSink) Write(resp Response) {
	WriteResponse(s.c, resp)
	s.c.Writer.Flush()
}

// WriteResponse writes resp to the client.
func WriteResponse(c *gin.Context, resp Response) {
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	if bodyAllowed(resp.StatusCode) {
		c.Header("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	c.Status(resp.StatusCode)
	if resp.Body != "" {
		_, _ = c.Writer.WriteString(resp.Body)
	}
}

// PadMethod pads a method name for the route table log.
func PadMethod(method string) string {
	if method == AnyMethod {
		method = "ANY"
	}
	return fmt.Sprintf("%-7s", strings.ToUpper(method))
}

func bodyAllowed(status int) bool {
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}
