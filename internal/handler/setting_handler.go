package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoreminder/pkg/util"
)

// ReminderSettings is implemented by *service.SettingService.
type ReminderSettings interface {
	GetReminderEnabled(ctx context.Context) (bool, error)
	SetReminderEnabled(ctx context.Context, enabled bool) error
}

type SettingHandler struct {
	settings ReminderSettings
	logger   *zap.Logger
}

func NewSettingHandler(settings ReminderSettings, logger *zap.Logger) *SettingHandler {
	return &SettingHandler{settings: settings, logger: logger}
}

// GetReminderSetting handles GET /api/settings/reminder
func (h *SettingHandler) GetReminderSetting(c *gin.Context) {
	enabled, err := h.settings.GetReminderEnabled(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "get reminder setting", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

// SetReminderSetting handles POST /api/settings/reminder?enabled=true|false
// The value may also come as a JSON body {"enabled": bool}.
func (h *SettingHandler) SetReminderSetting(c *gin.Context) {
	enabled, err := parseEnabled(c)
	if err != nil {
		respondError(c, h.logger, "set reminder setting", err)
		return
	}

	if err := h.settings.SetReminderEnabled(c.Request.Context(), enabled); err != nil {
		respondError(c, h.logger, "set reminder setting", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func parseEnabled(c *gin.Context) (bool, error) {
	if raw, ok := c.GetQuery("enabled"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return false, fmt.Errorf("%w: enabled=%q is not a boolean", util.ErrValidation, raw)
		}
		return v, nil
	}

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return false, fmt.Errorf("%w: invalid request body", util.ErrValidation)
	}
	if req.Enabled == nil {
		return false, fmt.Errorf("%w: enabled is required", util.ErrValidation)
	}
	return *req.Enabled, nil
}
