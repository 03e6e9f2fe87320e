// Package http defines how bounded contexts plug their routes into the
// shared gin engine.
package http

import (
	"github.com/gin-gonic/gin"
)

// Module is one bounded context with HTTP routes.
type Module interface {
	// Name shows up in the startup log line for the module.
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what a module gets to mount its routes on.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is /api/v1.
	V1 *gin.RouterGroup
	// WebhookRateLimit is the per-IP limiter for provider and lead-source
	// webhooks. It is never nil.
	WebhookRateLimit gin.HandlerFunc
}
