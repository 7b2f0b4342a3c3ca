package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64: // JWT claims decode numbers as float64
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// paramID parses a numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// httpError translates service and repository errors into the JSON error
// responses the API contract promises. Unknown errors become opaque 500s
// so driver details never leak to clients.
func httpError(c echo.Context, err error) error {
	var te *model.TransitionError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats left"})
	case errors.Is(err, repository.ErrDuplicatePending):
		return c.JSON(http.StatusConflict, echo.Map{"error": "a pending change request already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrAlreadyProcessed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "change request already processed"})
	case errors.Is(err, repository.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &te):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": te.Error()})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// reservationResp is the JSON view of a reservation. Model structs carry
// no json tags; handlers own the wire shape.
type reservationResp struct {
	ID              uint64     `json:"id"`
	ClassID         uint64     `json:"class_id"`
	ScheduleID      *uint64    `json:"schedule_id,omitempty"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   string     `json:"customer_phone"`
	DepositorName   string     `json:"depositor_name,omitempty"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	NumPeople       uint32     `json:"num_people"`
	Status          string     `json:"status"`
	CustomerMemo    *string    `json:"customer_memo,omitempty"`
	AdminMemo       *string    `json:"admin_memo,omitempty"`
	RejectReason    *string    `json:"reject_reason,omitempty"`
	CancelRequested bool       `json:"cancel_requested"`
	CancelReason    *string    `json:"cancel_reason,omitempty"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toReservationResp(r *model.Reservation) reservationResp {
	return reservationResp{
		ID:              r.ID,
		ClassID:         r.ClassID,
		ScheduleID:      r.ScheduleID,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		DepositorName:   r.DepositorName,
		Date:            r.DesiredDate,
		Time:            r.DesiredTime,
		NumPeople:       r.NumPeople,
		Status:          string(r.Status),
		CustomerMemo:    r.CustomerMemo,
		AdminMemo:       r.AdminMemo,
		RejectReason:    r.RejectReason,
		CancelRequested: r.CancelRequested(),
		CancelReason:    r.CancelReason,
		ConfirmedAt:     r.ConfirmedAt,
		RejectedAt:      r.RejectedAt,
		CancelledAt:     r.CancelledAt,
		CreatedAt:       r.CreatedAt,
	}
}

func toReservationList(rs []*model.Reservation) []reservationResp {
	out := make([]reservationResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReservationResp(r))
	}
	return out
}

// changeRequestResp is the JSON view of a change request.
type changeRequestResp struct {
	ID            uint64     `json:"id"`
	ReservationID uint64     `json:"reservation_id"`
	ScheduleID    *uint64    `json:"schedule_id,omitempty"`
	OriginalDate  *string    `json:"original_date,omitempty"`
	OriginalTime  *string    `json:"original_time,omitempty"`
	RequestedDate string     `json:"requested_date"`
	RequestedTime string     `json:"requested_time"`
	Reason        *string    `json:"reason,omitempty"`
	Status        string     `json:"status"`
	RejectReason  *string    `json:"reject_reason,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toChangeRequestResp(cr *model.ChangeRequest) changeRequestResp {
	return changeRequestResp{
		ID:            cr.ID,
		ReservationID: cr.ReservationID,
		ScheduleID:    cr.ScheduleID,
		OriginalDate:  cr.OriginalDate,
		OriginalTime:  cr.OriginalTime,
		RequestedDate: cr.RequestedDate,
		RequestedTime: cr.RequestedTime,
		Reason:        cr.Reason,
		Status:        string(cr.Status),
		RejectReason:  cr.RejectReason,
		ProcessedAt:   cr.ProcessedAt,
		CreatedAt:     cr.CreatedAt,
	}
}

func toChangeRequestList(crs []*model.ChangeRequest) []changeRequestResp {
	out := make([]changeRequestResp, 0, len(crs))
	for _, cr := range crs {
		out = append(out, toChangeRequestResp(cr))
	}
	return out
}
