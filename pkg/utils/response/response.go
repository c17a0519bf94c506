package response

import (
	"net/http"

	"execbox/pkg/errors"
	"execbox/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response represents a standard API response
type Response struct {
	Code    errors.ErrorCode `json:"code"`              // Error code
	Message string           `json:"message"`           // Error message
	Data    interface{}      `json:"data,omitempty"`    // Response data (omit if nil)
	Details interface{}      `json:"details,omitempty"` // Additional details (omit if nil)
}

// Success sends a successful response with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.Success,
		Message: "Success",
		Data:    data,
	})
}

// Error sends an error response
// It automatically extracts error code and message from the error
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)

	logger.Warn(c.Request.Context(), "request rejected",
		zap.Int("code", int(customErr.Code)),
		zap.String("message", customErr.Error()),
	)

	c.JSON(customErr.Code.HTTPStatus(), Response{
		Code:    customErr.Code,
		Message: customErr.Error(),
		Details: customErr.Details,
	})
}

// BadRequest sends a 400 response with a custom message
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    errors.InvalidParams,
		Message: message,
	})
}
