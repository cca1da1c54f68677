package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-reservation/internal/model"
	"github.com/iliyamo/cinema-reservation/internal/service"
)

// ScheduleAdmin is the write side of the schedule catalogue.
type ScheduleAdmin interface {
	Create(ctx context.Context, in service.NewSchedule) (uint64, error)
	Update(ctx context.Context, scheduleID uint64, changes service.ScheduleChanges, force bool) error
	Delete(ctx context.Context, scheduleID uint64, force bool) error
	CinemaDay(ctx context.Context, locationID, cinemaID uint64, day time.Time) ([]model.CinemaSlot, error)
}

// ScheduleAdminHandler serves the admin schedule endpoints.
type ScheduleAdminHandler struct {
	schedules ScheduleAdmin
	logger    hclog.Logger
	now       func() time.Time
}

func NewScheduleAdminHandler(schedules ScheduleAdmin, logger hclog.Logger) *ScheduleAdminHandler {
	return &ScheduleAdminHandler{schedules: schedules, logger: logger.Named("schedule-admin"), now: time.Now}
}

type createScheduleReq struct {
	MovieID    uint64    `json:"movie_id"`
	LocationID uint64    `json:"location_id"`
	CinemaID   uint64    `json:"cinema_id"`
	StartTime  time.Time `json:"start_time"`
}

type updateScheduleReq struct {
	MovieID    *uint64    `json:"movie_id"`
	LocationID *uint64    `json:"location_id"`
	CinemaID   *uint64    `json:"cinema_id"`
	StartTime  *time.Time `json:"start_time"`
}

// Create handles PUT /schedule.
func (h *ScheduleAdminHandler) Create(c echo.Context) error {
	var req createScheduleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.MovieID == 0 || req.LocationID == 0 || req.CinemaID == 0 || req.StartTime.IsZero() {
		return badRequest(c, "movie_id, location_id, cinema_id and start_time are required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	id, err := h.schedules.Create(ctx, service.NewSchedule{
		MovieID: req.MovieID, LocationID: req.LocationID, CinemaID: req.CinemaID, StartTime: req.StartTime,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Update handles POST /schedule/:schedule_id?force=. Omitted fields keep
// their value.
func (h *ScheduleAdminHandler) Update(c echo.Context) error {
	id, ok := idParam(c, "schedule_id")
	if !ok {
		return badRequest(c, "invalid schedule id")
	}
	var req updateScheduleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	err := h.schedules.Update(ctx, id, service.ScheduleChanges{
		MovieID: req.MovieID, LocationID: req.LocationID, CinemaID: req.CinemaID, StartTime: req.StartTime,
	}, forceParam(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /schedule/:schedule_id?force=.
func (h *ScheduleAdminHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "schedule_id")
	if !ok {
		return badRequest(c, "invalid schedule id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.schedules.Delete(ctx, id, forceParam(c)); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CinemaDay handles GET /schedule/:location_id/:cinema_id?date=. The date
// defaults to today (UTC).
func (h *ScheduleAdminHandler) CinemaDay(c echo.Context) error {
	loc, ok := idParam(c, "location_id")
	if !ok {
		return badRequest(c, "invalid location id")
	}
	cinema, ok := idParam(c, "cinema_id")
	if !ok {
		return badRequest(c, "invalid cinema id")
	}
	day := h.now().UTC()
	if v := c.QueryParam("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		day = d
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	slots, err := h.schedules.CinemaDay(ctx, loc, cinema, day)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, slots)
}
