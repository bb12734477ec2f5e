package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"todoreminder/internal/kvstore"
)

const (
	ReminderEnabledKey = "setting:reminder:enabled"
	DefaultSettingTTL  = 365 * 24 * time.Hour
)

// SettingService holds the global "reminders enabled" flag in the key/value store.
type SettingService struct {
	store  kvstore.Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewSettingService(store kvstore.Store, ttl time.Duration, logger *zap.Logger) *SettingService {
	if ttl <= 0 {
		ttl = DefaultSettingTTL
	}
	return &SettingService{store: store, ttl: ttl, logger: logger}
}

// GetReminderEnabled reads the flag. The first read of an absent key persists
// "true" and reports enabled.
func (s *SettingService) GetReminderEnabled(ctx context.Context) (bool, error) {
	raw, found, err := s.store.Get(ctx, ReminderEnabledKey)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", ReminderEnabledKey, err)
	}
	if !found {
		s.logger.Info("Reminder setting absent, initializing to enabled")
		if err := s.SetReminderEnabled(ctx, true); err != nil {
			return false, err
		}
		return true, nil
	}
	// anything other than "true" (any case) reads as disabled
	return strings.EqualFold(strings.TrimSpace(raw), "true"), nil
}

// SetReminderEnabled overwrites the flag and restarts its expiry.
func (s *SettingService) SetReminderEnabled(ctx context.Context, enabled bool) error {
	if err := s.store.Set(ctx, ReminderEnabledKey, strconv.FormatBool(enabled), s.ttl); err != nil {
		return fmt.Errorf("set %s: %w", ReminderEnabledKey, err)
	}
	s.logger.Info("Reminder setting updated", zap.Bool("enabled", enabled))
	return nil
}
