package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/service"
)

// AdminReservationHandler serves the admin reservation dashboard:
// listing, inspecting and driving the lifecycle of reservations.
type AdminReservationHandler struct {
	Reservations *service.ReservationService
}

func NewAdminReservationHandler(r *service.ReservationService) *AdminReservationHandler {
	return &AdminReservationHandler{Reservations: r}
}

// List returns reservations, optionally filtered by ?status=.
func (h *AdminReservationHandler) List(c echo.Context) error {
	status := model.ReservationStatus(c.QueryParam("status"))
	switch status {
	case "", model.StatusPending, model.StatusConfirmed, model.StatusRejected, model.StatusCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	list, err := h.Reservations.List(c.Request().Context(), status)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": toReservationList(list)})
}

// Get returns one reservation.
func (h *AdminReservationHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	res, err := h.Reservations.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

type adminPatchReq struct {
	Status        *string `json:"status" validate:"omitempty,oneof=confirmed rejected cancelled"`
	CancelRequest *string `json:"cancel_request" validate:"omitempty,oneof=approve reject"`
	RejectReason  *string `json:"reject_reason"`
	AdminMemo     *string `json:"admin_memo"`
}

// Patch drives the reservation lifecycle. Exactly one of status or
// cancel_request may be supplied; admin_memo can accompany either or
// stand alone. Illegal transitions come back as 400 with the offending
// pair named.
func (h *AdminReservationHandler) Patch(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req adminPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed: " + err.Error()})
	}
	if req.Status == nil && req.CancelRequest == nil && req.AdminMemo == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	if req.Status != nil && req.CancelRequest != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status and cancel_request are mutually exclusive"})
	}

	ctx := c.Request().Context()
	if req.AdminMemo != nil {
		if err := h.Reservations.UpdateAdminMemo(ctx, id, req.AdminMemo); err != nil {
			return httpError(c, err)
		}
	}

	reason := ""
	if req.RejectReason != nil {
		reason = *req.RejectReason
	}

	var (
		res      *model.Reservation
		cascaded int64
		err      error
	)
	switch {
	case req.CancelRequest != nil && *req.CancelRequest == "approve":
		res, cascaded, err = h.Reservations.Cancel(ctx, id)
	case req.CancelRequest != nil && *req.CancelRequest == "reject":
		res, err = h.Reservations.RejectCancellation(ctx, id, reason)
	case req.Status != nil && *req.Status == string(model.StatusConfirmed):
		res, err = h.Reservations.ApprovePayment(ctx, id)
	case req.Status != nil && *req.Status == string(model.StatusRejected):
		res, err = h.Reservations.RejectBooking(ctx, id, reason)
	case req.Status != nil && *req.Status == string(model.StatusCancelled):
		res, cascaded, err = h.Reservations.Cancel(ctx, id)
	default: // memo-only update
		res, err = h.Reservations.Get(ctx, id)
	}
	if err != nil {
		return httpError(c, err)
	}

	out := echo.Map{"reservation": toReservationResp(res)}
	if cascaded > 0 {
		out["cascaded_change_requests"] = cascaded
	}
	return c.JSON(http.StatusOK, out)
}
