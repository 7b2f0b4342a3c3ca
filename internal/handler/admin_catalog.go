package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/repository"
)

// AdminCatalogHandler manages the class catalog and its schedule slots.
type AdminCatalogHandler struct {
	Classes   *repository.ClassRepo
	Schedules *repository.ScheduleRepo
}

func NewAdminCatalogHandler(cl *repository.ClassRepo, sc *repository.ScheduleRepo) *AdminCatalogHandler {
	return &AdminCatalogHandler{Classes: cl, Schedules: sc}
}

type classReq struct {
	Name            string  `json:"name" validate:"required,max=100"`
	Description     *string `json:"description"`
	DurationMinutes uint32  `json:"duration_minutes" validate:"required,min=1"`
	Price           uint32  `json:"price"`
	MaxParticipants uint32  `json:"max_participants" validate:"required,min=1"`
	IsActive        *bool   `json:"is_active"`
	SortOrder       int     `json:"sort_order"`
}

// ListClasses returns the whole catalog, inactive classes included.
func (h *AdminCatalogHandler) ListClasses(c echo.Context) error {
	classes, err := h.Classes.List(c.Request().Context(), false)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"classes": classes2resp(classes)})
}

type adminClassResp struct {
	classResp
	IsActive  bool `json:"is_active"`
	SortOrder int  `json:"sort_order"`
}

func classes2resp(classes []model.Class) []adminClassResp {
	out := make([]adminClassResp, 0, len(classes))
	for _, cl := range classes {
		out = append(out, adminClassResp{
			classResp: classResp{
				ID:              cl.ID,
				Name:            cl.Name,
				Description:     cl.Description,
				DurationMinutes: cl.DurationMinutes,
				Price:           cl.Price,
				MaxParticipants: cl.MaxParticipants,
			},
			IsActive:  cl.IsActive,
			SortOrder: cl.SortOrder,
		})
	}
	return out
}

// CreateClass adds a class to the catalog.
func (h *AdminCatalogHandler) CreateClass(c echo.Context) error {
	var req classReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed: " + err.Error()})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	cls := model.Class{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		MaxParticipants: req.MaxParticipants,
		IsActive:        active,
		SortOrder:       req.SortOrder,
	}
	if err := h.Classes.Create(c.Request().Context(), &cls); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": cls.ID})
}

// UpdateClass rewrites a class's catalog entry.
func (h *AdminCatalogHandler) UpdateClass(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req classReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed: " + err.Error()})
	}
	ctx := c.Request().Context()
	cls, err := h.Classes.GetByID(ctx, id)
	if err != nil {
		return httpError(c, err)
	}
	cls.Name = req.Name
	cls.Description = req.Description
	cls.DurationMinutes = req.DurationMinutes
	cls.Price = req.Price
	cls.MaxParticipants = req.MaxParticipants
	if req.IsActive != nil {
		cls.IsActive = *req.IsActive
	}
	cls.SortOrder = req.SortOrder
	if err := h.Classes.Update(ctx, &cls); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

type slotReq struct {
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string  `json:"time" validate:"required,datetime=15:04"`
	MaxParticipants *uint32 `json:"max_participants" validate:"omitempty,min=1"`
}

type createSchedulesReq struct {
	Slots []slotReq `json:"slots" validate:"required,min=1,max=100,dive"`
}

// ListSchedules returns one class's slots for a month with live seat
// counts, inactive slots excluded.
func (h *AdminCatalogHandler) ListSchedules(c echo.Context) error {
	classID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	year, month, ok := yearMonth(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year/month"})
	}
	ctx := c.Request().Context()
	if _, err := h.Classes.GetByID(ctx, classID); err != nil {
		return httpError(c, err)
	}
	slots, err := h.Schedules.ListMonth(ctx, classID, year, month)
	if err != nil {
		return httpError(c, err)
	}
	if slots == nil {
		slots = []model.ScheduleSlot{}
	}
	return c.JSON(http.StatusOK, echo.Map{"schedules": slots})
}

// CreateSchedules bulk-creates slots for a class. A duplicate
// (date, time) within the class fails the whole batch with 409.
func (h *AdminCatalogHandler) CreateSchedules(c echo.Context) error {
	classID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req createSchedulesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed: " + err.Error()})
	}
	ctx := c.Request().Context()
	if _, err := h.Classes.GetByID(ctx, classID); err != nil {
		return httpError(c, err)
	}
	slots := make([]model.Schedule, 0, len(req.Slots))
	for _, s := range req.Slots {
		slots = append(slots, model.Schedule{
			ScheduleDate:    s.Date,
			StartTime:       s.Time,
			MaxParticipants: s.MaxParticipants,
		})
	}
	if err := h.Schedules.CreateBulk(ctx, classID, slots); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"created": len(slots)})
}

type slotPatchReq struct {
	Date            *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time            *string `json:"time" validate:"omitempty,datetime=15:04"`
	MaxParticipants *uint32 `json:"max_participants" validate:"omitempty,min=1"`
	IsActive        *bool   `json:"is_active"`
}

// UpdateSchedule rewrites a slot's date, time, capacity override or
// active flag.
func (h *AdminCatalogHandler) UpdateSchedule(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req slotPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed: " + err.Error()})
	}
	if req.Date == nil && req.Time == nil && req.MaxParticipants == nil && req.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx := c.Request().Context()
	sched, err := h.Schedules.GetByID(ctx, id)
	if err != nil {
		return httpError(c, err)
	}
	if req.Date != nil {
		sched.ScheduleDate = *req.Date
	}
	if req.Time != nil {
		sched.StartTime = *req.Time
	}
	if req.MaxParticipants != nil {
		sched.MaxParticipants = req.MaxParticipants
	}
	if req.IsActive != nil {
		sched.IsActive = *req.IsActive
	}
	if err := h.Schedules.Update(ctx, &sched); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// DeleteSchedule removes a slot that has no active reservations. Slots
// that do return 409; deactivate them with PATCH instead.
func (h *AdminCatalogHandler) DeleteSchedule(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Schedules.Delete(c.Request().Context(), id); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "deleted"})
}
