package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/service"
)

// ChangeTokenHandler serves the unauthenticated change-request flow.
// Customers reach it through the opaque token embedded in their
// confirmation message, so no login is required and the token itself is
// the capability.
type ChangeTokenHandler struct {
	Changes *service.ChangeRequestService
}

func NewChangeTokenHandler(cr *service.ChangeRequestService) *ChangeTokenHandler {
	return &ChangeTokenHandler{Changes: cr}
}

// View resolves ?token= into the reservation summary and its
// change-request history.
func (h *ChangeTokenHandler) View(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	view, err := h.Changes.ViewByToken(c.Request().Context(), token)
	if err != nil {
		return httpError(c, err)
	}
	hasPending := false
	for _, cr := range view.Requests {
		if cr.Status == model.ChangePending {
			hasPending = true
			break
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation":         toReservationResp(view.Reservation),
		"change_requests":     toChangeRequestList(view.Requests),
		"has_pending_request": hasPending,
	})
}

type tokenChangeReq struct {
	Token         string  `json:"token" validate:"required"`
	ScheduleID    *uint64 `json:"schedule_id"`
	RequestedDate string  `json:"requested_date" validate:"omitempty,datetime=2006-01-02"`
	RequestedTime string  `json:"requested_time" validate:"omitempty,datetime=15:04"`
	Reason        *string `json:"reason"`
}

// Create opens a change request identified by token instead of login.
func (h *ChangeTokenHandler) Create(c echo.Context) error {
	var req tokenChangeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed: " + err.Error()})
	}
	if req.ScheduleID == nil && (req.RequestedDate == "" || req.RequestedTime == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "schedule_id or requested_date/requested_time required"})
	}

	cr, err := h.Changes.Create(c.Request().Context(), service.CreateInput{
		Token:         strings.TrimSpace(req.Token),
		ScheduleID:    req.ScheduleID,
		RequestedDate: req.RequestedDate,
		RequestedTime: req.RequestedTime,
		Reason:        req.Reason,
	})
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, toChangeRequestResp(cr))
}
