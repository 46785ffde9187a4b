package response

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	CodeOK             = 0
	CodeBadRequest     = 40000
	CodeNotFound       = 40400
	CodeConflict       = 40900
	CodeTooManyRequest = 42900
	CodeInternal       = 50000
	CodeUnavailable    = 50300
)

func write(c *gin.Context, status, code int, msg string, data interface{}) {
	c.JSON(status, Response{Code: code, Message: msg, Data: data})
}

// Success 200
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, CodeOK, "success", data)
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, CodeOK, "created", data)
}

// BadRequest 400
func BadRequest(c *gin.Context, msg string) {
	write(c, http.StatusBadRequest, CodeBadRequest, msg, nil)
}

// NotFound 404
func NotFound(c *gin.Context, msg string) {
	write(c, http.StatusNotFound, CodeNotFound, msg, nil)
}

// Conflict 409
func Conflict(c *gin.Context, msg string) {
	write(c, http.StatusConflict, CodeConflict, msg, nil)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{Code: CodeTooManyRequest, Message: "too many requests"})
}

// ServiceUnavailable 503
func ServiceUnavailable(c *gin.Context, msg string) {
	write(c, http.StatusServiceUnavailable, CodeUnavailable, msg, nil)
}

// InternalError 500：记录日志并上报 Sentry，不向客户端暴露内部错误
func InternalError(c *gin.Context, err error) {
	logger.Error("internal error",
		zap.Error(err),
		zap.String("request_id", c.GetString(RequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	_ = c.Error(err)
	write(c, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
}
