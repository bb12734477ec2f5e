package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoreminder/internal/model"
)

// ReminderPoller is implemented by *service.ReminderRunner.
type ReminderPoller interface {
	Poll(ctx context.Context) ([]model.Reminder, error)
}

type ReminderHandler struct {
	poller ReminderPoller
	logger *zap.Logger
}

func NewReminderHandler(poller ReminderPoller, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{poller: poller, logger: logger}
}

// GetReminders handles GET /api/reminders
// 每次调用都会执行一次扫描，返回本次抢到锁的提醒
func (h *ReminderHandler) GetReminders(c *gin.Context) {
	reminders, err := h.poller.Poll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "poll reminders", err)
		return
	}
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}
