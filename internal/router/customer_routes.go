package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/handler"
	"github.com/kkayomi/class-reservation/internal/middleware"
)

func jwtAuth(secret string) echo.MiddlewareFunc {
	return middleware.JWTAuth(secret)
}

// RegisterCustomer registers customer-scoped endpoints under /v1. All
// routes require a valid JWT and the CUSTOMER role. Customers book
// classes, list their reservations, cancel and request date changes;
// the limiter throttles booking so a single client cannot flood slots.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	g.POST("/reservations", h.Book, limiter)
	g.GET("/my-reservations", h.MyReservations)
	g.POST("/reservations/:id/cancel-request", h.CancelRequest)
	g.POST("/reservations/:id/change-request", h.CreateChangeRequest)
}
