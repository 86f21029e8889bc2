package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the envelope used by the order and gateway APIs.
func ErrorResponse(message, detail string) gin.H {
	resp := gin.H{
		"success": false,
		"message": message,
	}
	if detail != "" {
		resp["error"] = detail
	}
	return resp
}

func SuccessResponse(message string, data any) gin.H {
	resp := gin.H{
		"success": true,
		"message": message,
	}
	if data != nil {
		resp["data"] = data
	}
	return resp
}

// WebhookResponse is the {status, message} body the payment provider expects.
func WebhookResponse(status, message string) gin.H {
	return gin.H{
		"status":  status,
		"message": message,
	}
}
