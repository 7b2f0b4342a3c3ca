package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/service"
)

// AdminNotificationHandler exposes the dispatch audit trail and the
// manual resend action.
type AdminNotificationHandler struct {
	Notifications *service.NotificationAdminService
}

func NewAdminNotificationHandler(n *service.NotificationAdminService) *AdminNotificationHandler {
	return &AdminNotificationHandler{Notifications: n}
}

type notificationResp struct {
	ID             uint64     `json:"id"`
	ReservationID  uint64     `json:"reservation_id"`
	Type           string     `json:"type"`
	Channel        string     `json:"channel"`
	RecipientPhone string     `json:"recipient_phone"`
	Message        string     `json:"message"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toNotificationResp(n model.Notification) notificationResp {
	return notificationResp{
		ID:             n.ID,
		ReservationID:  n.ReservationID,
		Type:           string(n.Type),
		Channel:        string(n.Channel),
		RecipientPhone: n.RecipientPhone,
		Message:        n.Message,
		Status:         string(n.Status),
		SentAt:         n.SentAt,
		ErrorMessage:   n.ErrorMessage,
		CreatedAt:      n.CreatedAt,
	}
}

// List returns dispatch attempts, newest first. ?reservation_id= scopes
// to one reservation; ?limit= caps the page size.
func (h *AdminNotificationHandler) List(c echo.Context) error {
	var reservationID uint64
	if s := c.QueryParam("reservation_id"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation_id"})
		}
		reservationID = n
	}
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}

	list, err := h.Notifications.List(c.Request().Context(), reservationID, limit)
	if err != nil {
		return httpError(c, err)
	}
	out := make([]notificationResp, 0, len(list))
	for _, n := range list {
		out = append(out, toNotificationResp(n))
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out})
}

// Resend replays a stored message verbatim through the channel chain.
func (h *AdminNotificationHandler) Resend(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	result, err := h.Notifications.Resend(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	out := echo.Map{"success": result.Success, "channel": string(result.Channel)}
	if result.Err != "" {
		out["error"] = result.Err
	}
	return c.JSON(http.StatusOK, out)
}
