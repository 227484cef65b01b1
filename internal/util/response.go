package util

import (
	"errors"
	"learning_progress_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// HandleError 按错误类别映射 HTTP 状态码
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		Error(c, http.StatusBadRequest, Message(err))
	case errors.Is(err, ErrNotFound):
		Error(c, http.StatusNotFound, Message(err))
	case errors.Is(err, ErrForbidden):
		Error(c, http.StatusForbidden, Message(err))
	case errors.Is(err, ErrConflict):
		Error(c, http.StatusConflict, Message(err))
	case errors.Is(err, ErrConcurrency):
		logger.Log.Warn("Concurrent update gave up after retries", zap.Error(err))
		Error(c, http.StatusServiceUnavailable, "Resource is busy, please retry")
	default:
		LogInternalError(c, err)
	}
}
