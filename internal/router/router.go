package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/handler"
)

// Validator adapts go-playground/validator to Echo's Validator
// interface so handlers can call c.Validate on bound DTOs.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance and installs the request validator.
func RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth; /v1/me requires a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1", jwtAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/auth/logout", a.Logout)
}

// RegisterPublic registers the unauthenticated browse and change-token
// endpoints. The limiter shields the token endpoints from enumeration.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, t *handler.ChangeTokenHandler, limiter echo.MiddlewareFunc) {
	e.GET("/v1/classes", p.ListClasses)
	e.GET("/v1/classes/:id/schedules", p.ListSchedules)

	g := e.Group("/v1/change-requests", limiter)
	g.GET("", t.View)
	g.POST("", t.Create)
}
