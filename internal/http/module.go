package http

import (
	"github.com/gin-gonic/gin"

	"fieldops_backend/platform/config"
	"fieldops_backend/platform/httpkit"
)

// Module is a bounded context that mounts its own routes. The router only
// knows the interface, never the endpoints.
type Module interface {
	// Name identifies the module in startup logs.
	Name() string
	// RegisterRoutes mounts the module's routes using the shared groups and
	// middleware in the RouterContext.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext bundles what modules need to register routes: the route
// groups, the auth middleware, and the limiter for login endpoints.
type RouterContext struct {
	// Engine is the root Gin engine, for modules needing engine-level access.
	Engine *gin.Engine
	// V1 is /api/v1, unauthenticated.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind the auth middleware.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin, restricted to the ADMIN role.
	Admin *gin.RouterGroup

	Config          config.JWTConfig
	AuthMiddleware  gin.HandlerFunc
	AuthRateLimiter *httpkit.AuthRateLimiter
}
