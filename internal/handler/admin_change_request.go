package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/service"
)

// AdminChangeRequestHandler serves the admin change-request queue.
type AdminChangeRequestHandler struct {
	Changes *service.ChangeRequestService
}

func NewAdminChangeRequestHandler(cr *service.ChangeRequestService) *AdminChangeRequestHandler {
	return &AdminChangeRequestHandler{Changes: cr}
}

// List returns change requests, optionally filtered by ?status=.
func (h *AdminChangeRequestHandler) List(c echo.Context) error {
	status := model.ChangeRequestStatus(c.QueryParam("status"))
	switch status {
	case "", model.ChangePending, model.ChangeApproved, model.ChangeRejected:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	list, err := h.Changes.List(c.Request().Context(), status)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"change_requests": toChangeRequestList(list)})
}

type changePatchReq struct {
	Action       string  `json:"action" validate:"required,oneof=approve reject"`
	RejectReason *string `json:"reject_reason"`
}

// Patch settles one pending change request. Approval migrates the
// reservation atomically; a request settled by a racing admin or the
// cancel cascade comes back as 400.
func (h *AdminChangeRequestHandler) Patch(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req changePatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed: " + err.Error()})
	}

	ctx := c.Request().Context()
	if req.Action == "approve" {
		cr, res, err := h.Changes.Approve(ctx, id)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"change_request": toChangeRequestResp(cr),
			"reservation":    toReservationResp(res),
		})
	}

	reason := ""
	if req.RejectReason != nil {
		reason = *req.RejectReason
	}
	cr, err := h.Changes.Reject(ctx, id, reason)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"change_request": toChangeRequestResp(cr)})
}
