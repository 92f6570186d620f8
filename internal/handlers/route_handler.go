package handlers

import (
	"net/http"
	"strings"

	"apigw-local/internal/gateway"

	"github.com/gin-gonic/gin"
)

// RouteLister exposes the mounted route table
type RouteLister interface {
	Routes() []*gateway.RouteDescriptor
}

// RouteInfo describes one mounted route
type RouteInfo struct {
	Function    string `json:"function"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	RouterPath  string `json:"router_path"`
	Handler     string `json:"handler"`
	Authorizer  string `json:"authorizer,omitempty"`
	IdentityHeader string `json:"identity_header,omitempty"`
}

// RouteHandler serves the route table
type RouteHandler struct {
	routes RouteLister
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(routes RouteLister) *RouteHandler {
	return &RouteHandler{routes: routes}
}

// ListRoutes returns every mounted route in registration order
func (h *RouteHandler) ListRoutes(c *gin.Context) {
	routes := h.routes.Routes()
	infos := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		info := RouteInfo{
			Function:   r.FunctionName,
			Method:     strings.TrimSpace(gateway.PadMethod(r.Method)),
			Path:       r.GatewayPath,
			RouterPath: r.Path,
			Handler:    r.Handler.String(),
		}
		if r.Authorizer != nil {
			info.Authorizer = r.Authorizer.Name
			info.IdentityHeader = r.Authorizer.HeaderName()
		}
		infos = append(infos, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"routes": infos,
		"count":  len(infos),
	})
}
