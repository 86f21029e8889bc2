package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/models"
	"topup-gateway/internal/services"
	"topup-gateway/internal/storage"
	"topup-gateway/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
	log          *logger.Logger
}

func NewOrderHandler(orderService *services.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidOrder) {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
			return
		}
		h.log.Error("ORDER", "Failed to create order: "+err.Error())
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create order", ""))
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Order created", order))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Order ID is required", ""))
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found", ""))
			return
		}
		h.log.Error("ORDER", "Failed to get order: "+err.Error())
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve order", ""))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Order retrieved", order))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid limit", err.Error()))
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid offset", err.Error()))
		return
	}

	status := models.OrderStatus(c.Query("status"))
	orders, err := h.orderService.ListOrders(c.Request.Context(), status, limit, offset)
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid status filter", err.Error()))
			return
		}
		h.log.Error("ORDER", "Failed to list orders: "+err.Error())
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list orders", ""))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Orders retrieved", gin.H{
		"orders": orders,
		"count":  len(orders),
	}))
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.StatusMessage)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, utils.SuccessResponse("Order status updated", order))
	case errors.Is(err, storage.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found", ""))
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, utils.ErrorResponse("Status change rejected", err.Error()))
	case errors.Is(err, services.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, utils.ErrorResponse("Order was modified concurrently, retry", ""))
	default:
		h.log.Error("ORDER", "Failed to update order status: "+err.Error())
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update order status", ""))
	}
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
