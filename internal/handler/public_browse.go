package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/repository"
)

// PublicHandler serves the unauthenticated catalog: active classes and
// their monthly schedule slots with live seat counts.
type PublicHandler struct {
	Classes   *repository.ClassRepo
	Schedules *repository.ScheduleRepo
}

func NewPublicHandler(cl *repository.ClassRepo, sc *repository.ScheduleRepo) *PublicHandler {
	return &PublicHandler{Classes: cl, Schedules: sc}
}

type classResp struct {
	ID              uint64  `json:"id"`
	Name            string  `json:"name"`
	Description     *string `json:"description,omitempty"`
	DurationMinutes uint32  `json:"duration_minutes"`
	Price           uint32  `json:"price"`
	MaxParticipants uint32  `json:"max_participants"`
}

// ListClasses returns the active class catalog in display order.
func (h *PublicHandler) ListClasses(c echo.Context) error {
	classes, err := h.Classes.List(c.Request().Context(), true)
	if err != nil {
		return httpError(c, err)
	}
	out := make([]classResp, 0, len(classes))
	for _, cl := range classes {
		out = append(out, classResp{
			ID:              cl.ID,
			Name:            cl.Name,
			Description:     cl.Description,
			DurationMinutes: cl.DurationMinutes,
			Price:           cl.Price,
			MaxParticipants: cl.MaxParticipants,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"classes": out})
}

// ListSchedules returns one class's slots for a month (?year=&month=,
// defaulting to the current month) with remaining seats per slot.
func (h *PublicHandler) ListSchedules(c echo.Context) error {
	classID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	year, month, ok := yearMonth(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year/month"})
	}

	ctx := c.Request().Context()
	cls, err := h.Classes.GetByID(ctx, classID)
	if err != nil {
		return httpError(c, err)
	}
	if !cls.IsActive {
		return httpError(c, repository.ErrNotFound)
	}
	slots, err := h.Schedules.ListMonth(ctx, classID, year, month)
	if err != nil {
		return httpError(c, err)
	}
	if slots == nil {
		slots = []model.ScheduleSlot{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"class_id":  classID,
		"year":      year,
		"month":     month,
		"schedules": slots,
	})
}

// yearMonth parses the optional year/month query params, defaulting to
// the current UTC month.
func yearMonth(c echo.Context) (int, int, bool) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if ys := c.QueryParam("year"); ys != "" {
		y, err := strconv.Atoi(ys)
		if err != nil || y < 2000 || y > 2100 {
			return 0, 0, false
		}
		year = y
	}
	if ms := c.QueryParam("month"); ms != "" {
		m, err := strconv.Atoi(ms)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, false
		}
		month = m
	}
	return year, month, true
}
