package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/service"
)

// BookingHandler serves the authenticated customer surface: creating
// reservations, listing one's own, cancelling and requesting changes.
type BookingHandler struct {
	Reservations *service.ReservationService
	Changes      *service.ChangeRequestService
}

func NewBookingHandler(r *service.ReservationService, cr *service.ChangeRequestService) *BookingHandler {
	return &BookingHandler{Reservations: r, Changes: cr}
}

type bookReq struct {
	ClassID       uint64  `json:"class_id" validate:"required"`
	ScheduleID    *uint64 `json:"schedule_id"`
	Date          string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time          string  `json:"time" validate:"omitempty,datetime=15:04"`
	CustomerName  string  `json:"customer_name" validate:"required,max=100"`
	CustomerPhone string  `json:"customer_phone" validate:"required,max=20"`
	DepositorName string  `json:"depositor_name" validate:"max=100"`
	NumPeople     uint32  `json:"num_people" validate:"required,min=1"`
	Memo          *string `json:"memo"`
}

// Book creates a pending reservation. Either a schedule_id or an
// explicit date and time must be supplied; capacity is enforced only
// for slot-backed bookings.
func (h *BookingHandler) Book(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed: " + err.Error()})
	}
	if req.ScheduleID == nil && (req.Date == "" || req.Time == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "schedule_id or date/time required"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	depositor := req.DepositorName
	if depositor == "" {
		depositor = req.CustomerName
	}
	res, err := h.Reservations.Book(c.Request().Context(), service.BookInput{
		UserID:        &uid,
		ClassID:       req.ClassID,
		ScheduleID:    req.ScheduleID,
		DesiredDate:   req.Date,
		DesiredTime:   req.Time,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		DepositorName: depositor,
		NumPeople:     req.NumPeople,
		CustomerMemo:  req.Memo,
	})
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// MyReservations lists the caller's reservations, newest first.
func (h *BookingHandler) MyReservations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Reservations.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": toReservationList(list)})
}

type cancelReq struct {
	Reason string `json:"reason"` // empty is a valid "no reason given"
}

// CancelRequest cancels a pending reservation outright, or records a
// cancellation request on a confirmed one for an admin to decide.
func (h *BookingHandler) CancelRequest(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	res, err := h.Reservations.SelfCancel(c.Request().Context(), uid, id, req.Reason)
	if err != nil {
		return httpError(c, err)
	}
	if res.Status == model.StatusCancelled {
		return c.JSON(http.StatusOK, echo.Map{"status": "cancelled", "reservation": toReservationResp(res)})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancel_requested", "reservation": toReservationResp(res)})
}

type changeReq struct {
	ScheduleID    *uint64 `json:"schedule_id"`
	RequestedDate string  `json:"requested_date" validate:"omitempty,datetime=2006-01-02"`
	RequestedTime string  `json:"requested_time" validate:"omitempty,datetime=15:04"`
	Reason        *string `json:"reason"`
}

// CreateChangeRequest opens a date-change request against the caller's
// confirmed reservation.
func (h *BookingHandler) CreateChangeRequest(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changeReq
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
		ReservationID: &id,
		UserID:        &uid,
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
