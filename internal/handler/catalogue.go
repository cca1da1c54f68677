package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-reservation/internal/model"
	"github.com/iliyamo/cinema-reservation/internal/repository"
)

// Movies is the movie side of the core.
type Movies interface {
	List(ctx context.Context, genre string) ([]model.Movie, error)
	Get(ctx context.Context, movieID uint64) (model.Movie, error)
}

// Locations lists venues.
type Locations interface {
	List(ctx context.Context) ([]model.Location, error)
}

// ScheduleReader is the read side of the schedule catalogue.
type ScheduleReader interface {
	Overview(ctx context.Context, scheduleID uint64) (model.ScheduleOverview, error)
	Upcoming(ctx context.Context, f repository.ScheduleFilter) ([]model.Schedule, error)
}

// Seats resolves seat availability.
type Seats interface {
	Availability(ctx context.Context, scheduleID uint64) ([]model.SeatAvailability, error)
}

// CatalogueHandler serves the public browse endpoints.
type CatalogueHandler struct {
	movies    Movies
	locations Locations
	schedules ScheduleReader
	seats     Seats
	logger    hclog.Logger
}

func NewCatalogueHandler(movies Movies, locations Locations, schedules ScheduleReader, seats Seats, logger hclog.Logger) *CatalogueHandler {
	return &CatalogueHandler{movies: movies, locations: locations, schedules: schedules, seats: seats, logger: logger.Named("catalogue")}
}

// Locations lists every location with its cinemas.
func (h *CatalogueHandler) Locations(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	locs, err := h.locations.List(ctx)
	if err != nil {
		h.logger.Error("list locations failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed"})
	}
	return c.JSON(http.StatusOK, locs)
}

// Movies lists available movies, optionally filtered by ?genre=.
func (h *CatalogueHandler) Movies(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	movies, err := h.movies.List(ctx, c.QueryParam("genre"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, movies)
}

// Movie returns one available movie.
func (h *CatalogueHandler) Movie(c echo.Context) error {
	id, ok := idParam(c, "movie_id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	movie, err := h.movies.Get(ctx, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, movie)
}

// Schedule returns the overview of one showtime.
func (h *CatalogueHandler) Schedule(c echo.Context) error {
	id, ok := idParam(c, "schedule_id")
	if !ok {
		return badRequest(c, "invalid schedule id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	o, err := h.schedules.Overview(ctx, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, o)
}

// ScheduleSeats lists the seats of a showtime with their availability.
func (h *CatalogueHandler) ScheduleSeats(c echo.Context) error {
	id, ok := idParam(c, "schedule_id")
	if !ok {
		return badRequest(c, "invalid schedule id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	seats, err := h.seats.Availability(ctx, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, seats)
}

// Upcoming lists showtimes that have not started, filtered by the optional
// movie_id, location_id and date (YYYY-MM-DD, UTC) query parameters.
func (h *CatalogueHandler) Upcoming(c echo.Context) error {
	var f repository.ScheduleFilter
	var err error
	if v := c.QueryParam("movie_id"); v != "" {
		if f.MovieID, err = strconv.ParseUint(v, 10, 64); err != nil {
			return badRequest(c, "invalid movie_id")
		}
	}
	if v := c.QueryParam("location_id"); v != "" {
		if f.LocationID, err = strconv.ParseUint(v, 10, 64); err != nil {
			return badRequest(c, "invalid location_id")
		}
	}
	if v := c.QueryParam("date"); v != "" {
		if f.Day, err = time.Parse(time.DateOnly, v); err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.schedules.Upcoming(ctx, f)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, out)
}
