package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/middleware"
	"topup-gateway/internal/services"
	"topup-gateway/internal/utils"
)

const (
	msgUnauthorized  = "Unauthorized: Invalid secret key."
	msgNotConfigured = "Webhook authentication is not configured."
	msgNotFound      = "Order not found or could not be resolved."
	msgPaymentError  = "Internal Server Error during payment processing."
	msgUnexpected    = "An unexpected error occurred"
)

type WebhookHandler struct {
	webhookService *services.WebhookService
	log            *logger.Logger
}

func NewWebhookHandler(webhookService *services.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		log:            log,
	}
}

// HandleIkhodeWebhook receives payment confirmations from the Ikhode gateway.
// The order id is the last segment of the request path.
func (h *WebhookHandler) HandleIkhodeWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.log.Error("WEBHOOK", fmt.Sprintf("Failed to read request body: %v", err))
		c.JSON(http.StatusInternalServerError, utils.WebhookResponse("error", msgUnexpected))
		return
	}

	outcome, err := h.webhookService.HandlePayment(c.Request.Context(), services.WebhookRequest{
		OrderID: orderIDFromPath(c.Request.URL.Path),
		Token:   middleware.BearerToken(c.GetHeader("Authorization")),
		Body:    body,
	})
	if err != nil {
		status, message := webhookError(err)
		if status == http.StatusInternalServerError {
			h.log.Error("WEBHOOK", fmt.Sprintf("Webhook failed: %v", err))
		}
		c.JSON(status, utils.WebhookResponse("error", message))
		return
	}

	c.JSON(http.StatusOK, utils.WebhookResponse("success", outcome.Message()))
}

func webhookError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrSecretNotConfigured):
		return http.StatusServiceUnavailable, msgNotConfigured
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, services.ErrOrderNotResolved):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, services.ErrTransitionFailed):
		return http.StatusInternalServerError, msgPaymentError
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}

func orderIDFromPath(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
