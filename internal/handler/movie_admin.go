package handler

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-reservation/internal/service"
)

// MovieAdmin is the write side of the movie catalogue.
type MovieAdmin interface {
	Create(ctx context.Context, in service.NewMovie) (uint64, error)
	Update(ctx context.Context, movieID uint64, in service.NewMovie) error
	Reactivate(ctx context.Context, movieID uint64) error
	Delete(ctx context.Context, movieID uint64, force bool) error
}

// MovieAdminHandler serves the admin movie endpoints.
type MovieAdminHandler struct {
	movies MovieAdmin
	logger hclog.Logger
}

func NewMovieAdminHandler(movies MovieAdmin, logger hclog.Logger) *MovieAdminHandler {
	return &MovieAdminHandler{movies: movies, logger: logger.Named("movie-admin")}
}

type movieReq struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    uint32   `json:"duration"`
	Genres      []string `json:"genres"`
}

func (r movieReq) toNew() service.NewMovie {
	return service.NewMovie{Title: r.Title, Description: r.Description, DurationMin: r.Duration, Genres: r.Genres}
}

// Create handles PUT /movie.
func (h *MovieAdminHandler) Create(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	id, err := h.movies.Create(ctx, req.toNew())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Update handles POST /movie/:movie_id.
func (h *MovieAdminHandler) Update(c echo.Context) error {
	id, ok := idParam(c, "movie_id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.movies.Update(ctx, id, req.toNew()); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reactivate handles PATCH /movie/:movie_id.
func (h *MovieAdminHandler) Reactivate(c echo.Context) error {
	id, ok := idParam(c, "movie_id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.movies.Reactivate(ctx, id); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /movie/:movie_id?force=.
func (h *MovieAdminHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "movie_id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.movies.Delete(ctx, id, forceParam(c)); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
