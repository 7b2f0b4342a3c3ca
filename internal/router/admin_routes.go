package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/handler"
	"github.com/kkayomi/class-reservation/internal/middleware"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
// All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(
	e *echo.Echo,
	r *handler.AdminReservationHandler,
	cr *handler.AdminChangeRequestHandler,
	cat *handler.AdminCatalogHandler,
	n *handler.AdminNotificationHandler,
	jwtSecret string,
) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Reservations ----
	g.GET("/reservations", r.List)
	g.GET("/reservations/:id", r.Get)
	g.PATCH("/reservations/:id", r.Patch)

	// ---- Change requests ----
	g.GET("/change-requests", cr.List)
	g.PATCH("/change-requests/:id", cr.Patch)

	// ---- Catalog ----
	g.GET("/classes", cat.ListClasses)
	g.POST("/classes", cat.CreateClass)
	g.PATCH("/classes/:id", cat.UpdateClass)
	g.GET("/classes/:id/schedules", cat.ListSchedules)
	g.POST("/classes/:id/schedules", cat.CreateSchedules)
	g.PATCH("/schedules/:id", cat.UpdateSchedule)
	g.DELETE("/schedules/:id", cat.DeleteSchedule)

	// ---- Notifications ----
	g.GET("/notifications", n.List)
	g.POST("/notifications/:id/resend", n.Resend)
}
