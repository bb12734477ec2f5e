package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoreminder/pkg/logger"
	"todoreminder/pkg/util"
)

// statusFor maps an error kind onto an HTTP status code.
func statusFor(kind util.ErrorKind) int {
	switch kind {
	case util.ErrorKindValidation:
		return http.StatusBadRequest
	case util.ErrorKindNotFound:
		return http.StatusNotFound
	case util.ErrorKindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes {"error": ...}. Internal details stay in
// the log for 5xx responses.
func respondError(c *gin.Context, log *zap.Logger, action string, err error) {
	kind := util.ClassifyError(err)
	status := statusFor(kind)

	logger.WithTrace(c.Request.Context(), log).Error("Request failed",
		zap.String("action", action),
		zap.String("error_kind", string(kind)),
		zap.Int("status", status),
		zap.Error(err),
	)

	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = "reminder store unavailable"
	case http.StatusInternalServerError:
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
