package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/middleware"
	"github.com/charlene/kitchen-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

func NewOrderHandler(orderService *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, log: log}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	created(c, "order placed", order)
}

func (h *OrderHandler) List(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.orderService.ListForUser(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "", resp)
}

func (h *OrderHandler) GetByID(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "", order)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	order, err := h.orderService.Cancel(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "order cancelled", order)
}

func (h *OrderHandler) Rate(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	var req dto.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	score := int(req.Score)
	if float64(score) != req.Score {
		badRequest(c, "score must be a whole number")
		return
	}

	order, err := h.orderService.RateOrder(c.Request.Context(), middleware.CurrentUser(c), id, score, req.Comment)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "order rated", order)
}

func (h *OrderHandler) AdminList(c *gin.Context) {
	var req dto.AdminListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.orderService.ListForAdmin(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "", resp)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, parsed := parseObjectID(c)
	if !parsed {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), id, req.Status, req.Note)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "order status updated", order)
}

func (h *OrderHandler) Statistics(c *gin.Context) {
	resp, err := h.orderService.Statistics(c.Request.Context(), c.DefaultQuery("period", "today"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "", resp)
}
