package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/models"
	"topup-gateway/internal/services"
	"topup-gateway/internal/utils"
)

type GatewayHandler struct {
	gatewayService *services.GatewayService
	log            *logger.Logger
}

func NewGatewayHandler(gatewayService *services.GatewayService, log *logger.Logger) *GatewayHandler {
	return &GatewayHandler{
		gatewayService: gatewayService,
		log:            log,
	}
}

// UpdateSecret rotates the webhook secret of a payment gateway.
func (h *GatewayHandler) UpdateSecret(c *gin.Context) {
	var req models.UpdateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	slug := c.Param("slug")
	err := h.gatewayService.UpdateWebhookSecret(c.Request.Context(), slug, req.WebhookSecret)
	if errors.Is(err, services.ErrInvalidSecret) {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
		return
	}
	if err != nil {
		h.log.Error("GATEWAY", "Failed to update webhook secret: "+err.Error())
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update webhook secret", ""))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Webhook secret updated", gin.H{"slug": slug}))
}

// RotateSecret generates a new webhook secret and returns it once.
func (h *GatewayHandler) RotateSecret(c *gin.Context) {
	slug := c.Param("slug")
	secret, err := h.gatewayService.RotateWebhookSecret(c.Request.Context(), slug)
	if err != nil {
		h.log.Error("GATEWAY", "Failed to rotate webhook secret: "+err.Error())
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to rotate webhook secret", ""))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Webhook secret rotated", gin.H{
		"slug":           slug,
		"webhook_secret": secret,
	}))
}
