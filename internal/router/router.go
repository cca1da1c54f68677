// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-reservation/internal/handler"
	"github.com/iliyamo/cinema-reservation/internal/middleware"
	"github.com/iliyamo/cinema-reservation/internal/model"
)

// Handlers bundles every HTTP handler the API serves.
type Handlers struct {
	Health        echo.HandlerFunc
	Auth          *handler.AuthHandler
	Catalogue     *handler.CatalogueHandler
	MovieAdmin    *handler.MovieAdminHandler
	ScheduleAdmin *handler.ScheduleAdminHandler
	Orders        *handler.OrderHandler
}

// Middleware bundles the shared middleware built from configuration.
type Middleware struct {
	RateLimit  echo.MiddlewareFunc // every route
	OrderLimit echo.MiddlewareFunc // /order, on top of RateLimit
	Cache      echo.MiddlewareFunc // public catalogue reads
	PurgeCache echo.MiddlewareFunc // admin catalogue writes
}

// Register mounts the whole API.
func Register(e *echo.Echo, jwtSecret string, h Handlers, mw Middleware) {
	e.Use(mw.RateLimit)
	e.GET("/health", h.Health)

	auth := middleware.JWTAuth(jwtSecret)
	admin := []echo.MiddlewareFunc{auth, middleware.RequireRole(string(model.UserAdmin))}

	registerAccount(e, h.Auth, auth, admin)
	registerCatalogue(e, h, mw, admin)
	registerOrders(e, h.Orders, auth, mw.OrderLimit)
}

func registerAccount(e *echo.Echo, a *handler.AuthHandler, auth echo.MiddlewareFunc, admin []echo.MiddlewareFunc) {
	g := e.Group("/account")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a refresh token in the body or a bearer token,
	// so it sits outside JWTAuth.
	g.POST("/logout", a.Logout)
	g.POST("/password", a.ChangePassword, auth)
	g.GET("/me", a.Me, auth)

	g.GET("", a.SearchAccounts, admin...)
	g.GET("/:account_id", a.Account, admin...)
}

func registerCatalogue(e *echo.Echo, h Handlers, mw Middleware, admin []echo.MiddlewareFunc) {
	write := append(admin[:len(admin):len(admin)], mw.PurgeCache)

	e.GET("/location", h.Catalogue.Locations, mw.Cache)

	e.GET("/movie", h.Catalogue.Movies, mw.Cache)
	e.GET("/movie/:movie_id", h.Catalogue.Movie, mw.Cache)
	e.PUT("/movie", h.MovieAdmin.Create, write...)
	e.POST("/movie/:movie_id", h.MovieAdmin.Update, write...)
	e.PATCH("/movie/:movie_id", h.MovieAdmin.Reactivate, write...)
	e.DELETE("/movie/:movie_id", h.MovieAdmin.Delete, write...)

	// Seat availability changes with every reservation and is never cached.
	e.GET("/schedule", h.Catalogue.Upcoming, mw.Cache)
	e.GET("/schedule/:schedule_id", h.Catalogue.Schedule, mw.Cache)
	e.GET("/schedule/:schedule_id/seats", h.Catalogue.ScheduleSeats)
	e.GET("/schedule/:location_id/:cinema_id", h.ScheduleAdmin.CinemaDay, admin...)
	e.PUT("/schedule", h.ScheduleAdmin.Create, write...)
	e.POST("/schedule/:schedule_id", h.ScheduleAdmin.Update, write...)
	e.DELETE("/schedule/:schedule_id", h.ScheduleAdmin.Delete, write...)
}
