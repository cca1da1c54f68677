package handler

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-reservation/internal/model"
)

// Orders is the reservation lifecycle.
type Orders interface {
	Reserve(ctx context.Context, userID, scheduleID uint64, labels []string) (uint64, error)
	Confirm(ctx context.Context, userID, reservationID uint64) (bool, error)
	Cancel(ctx context.Context, userID, reservationID uint64) (bool, error)
	History(ctx context.Context, userID uint64) ([]model.OrderSummary, error)
}

// OrderHandler serves the customer /order endpoints. Every route requires
// JWTAuth.
type OrderHandler struct {
	orders Orders
	logger hclog.Logger
}

func NewOrderHandler(orders Orders, logger hclog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger.Named("orders")}
}

type reserveReq struct {
	ScheduleID uint64   `json:"schedule_id"`
	Seats      []string `json:"seats"`
}

type reservationReq struct {
	ReservationID uint64 `json:"reservation_id"`
}

// Reserve handles POST /order/reserve.
func (h *OrderHandler) Reserve(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil || req.ScheduleID == 0 {
		return badRequest(c, "schedule_id and seats are required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	id, err := h.orders.Reserve(ctx, uid, req.ScheduleID, req.Seats)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservation_id": id})
}

// Confirm handles POST /order/confirm.
func (h *OrderHandler) Confirm(c echo.Context) error {
	return h.transition(c, h.orders.Confirm)
}

// Cancel handles POST /order/cancel.
func (h *OrderHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.orders.Cancel)
}

// transition runs confirm or cancel. A transition that did not apply is
// answered with 409 and {"success": false}.
func (h *OrderHandler) transition(c echo.Context, fn func(ctx context.Context, userID, reservationID uint64) (bool, error)) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reservationReq
	if err := c.Bind(&req); err != nil || req.ReservationID == 0 {
		return badRequest(c, "reservation_id is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	done, err := fn(ctx, uid, req.ReservationID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if !done {
		return c.JSON(http.StatusConflict, echo.Map{"success": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// History handles GET /order/history.
func (h *OrderHandler) History(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	orders, err := h.orders.History(ctx, uid)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if orders == nil {
		orders = []model.OrderSummary{}
	}
	return c.JSON(http.StatusOK, orders)
}
