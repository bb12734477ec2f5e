package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoreminder/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePoller struct {
	reminders []model.Reminder
	err       error
}

func (f *fakePoller) Poll(context.Context) ([]model.Reminder, error) {
	return f.reminders, f.err
}

type fakeSettings struct {
	enabled bool
	getErr  error
	setErr  error
	sets    []bool
}

func (f *fakeSettings) GetReminderEnabled(context.Context) (bool, error) {
	return f.enabled, f.getErr
}

func (f *fakeSettings) SetReminderEnabled(_ context.Context, enabled bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets = append(f.sets, enabled)
	f.enabled = enabled
	return nil
}

func serve(method, target, body string, register func(r *gin.Engine)) *httptest.ResponseRecorder {
	r := gin.New()
	register(r)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetReminders(t *testing.T) {
	due := time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC)
	poller := &fakePoller{reminders: []model.Reminder{{
		TaskID:  42,
		Title:   "pay rent",
		DueTime: &due,
		Policy:  model.PolicyPreDue,
		Message: model.MessagePreDue,
	}}}
	h := NewReminderHandler(poller, zap.NewNop())

	w := serve(http.MethodGet, "/api/reminders", "", func(r *gin.Engine) {
		r.GET("/api/reminders", h.GetReminders)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Reminders []map[string]any `json:"reminders"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Reminders) != 1 {
		t.Fatalf("reminders = %v", resp.Reminders)
	}
	got := resp.Reminders[0]
	if got["task_id"] != float64(42) || got["title"] != "pay rent" ||
		got["reminder_type"] != "before30min" || got["message"] != model.MessagePreDue ||
		got["due_time"] != "2026-03-03T09:30:00Z" {
		t.Fatalf("unexpected reminder JSON %v", got)
	}
}

func TestGetRemindersEmpty(t *testing.T) {
	h := NewReminderHandler(&fakePoller{}, zap.NewNop())

	w := serve(http.MethodGet, "/api/reminders", "", func(r *gin.Engine) {
		r.GET("/api/reminders", h.GetReminders)
	})
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"reminders":[]}` {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestGetRemindersErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"store unavailable", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"internal", errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReminderHandler(&fakePoller{err: tt.err}, zap.NewNop())
			w := serve(http.MethodGet, "/api/reminders", "", func(r *gin.Engine) {
				r.GET("/api/reminders", h.GetReminders)
			})
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Fatalf("body %s has no error field", w.Body.String())
			}
		})
	}
}

func TestReminderSettingEndpoints(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		body        string
		wantStatus  int
		wantEnabled *bool
	}{
		{"get", http.MethodGet, "/api/settings/reminder", "", http.StatusOK, ptr(true)},
		{"set via query", http.MethodPost, "/api/settings/reminder?enabled=false", "", http.StatusOK, ptr(false)},
		{"set via body", http.MethodPost, "/api/settings/reminder", `{"enabled":false}`, http.StatusOK, ptr(false)},
		{"bad query value", http.MethodPost, "/api/settings/reminder?enabled=maybe", "", http.StatusBadRequest, nil},
		{"missing value", http.MethodPost, "/api/settings/reminder", `{}`, http.StatusBadRequest, nil},
		{"no body", http.MethodPost, "/api/settings/reminder", "", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := &fakeSettings{enabled: true}
			h := NewSettingHandler(settings, zap.NewNop())

			w := serve(tt.method, tt.target, tt.body, func(r *gin.Engine) {
				r.GET("/api/settings/reminder", h.GetReminderSetting)
				r.POST("/api/settings/reminder", h.SetReminderSetting)
			})
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantEnabled == nil {
				if len(settings.sets) != 0 {
					t.Fatalf("setting written on rejected request: %v", settings.sets)
				}
				return
			}

			var resp struct {
				Enabled bool `json:"enabled"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Enabled != *tt.wantEnabled {
				t.Fatalf("enabled = %v, want %v", resp.Enabled, *tt.wantEnabled)
			}
		})
	}
}

func TestSetReminderSettingStoreDown(t *testing.T) {
	settings := &fakeSettings{setErr: context.DeadlineExceeded}
	h := NewSettingHandler(settings, zap.NewNop())

	w := serve(http.MethodPost, "/api/settings/reminder?enabled=true", "", func(r *gin.Engine) {
		r.POST("/api/settings/reminder", h.SetReminderSetting)
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func ptr(b bool) *bool { return &b }
