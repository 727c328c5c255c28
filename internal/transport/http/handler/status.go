package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/schedule"
)

// ConfigSource yields the current schedule snapshot.
type ConfigSource interface {
	Load() (*domain.ScheduleConfig, error)
}

type StatusHandler struct {
	source ConfigSource
	logger *slog.Logger
}

func NewStatusHandler(source ConfigSource, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{source: source, logger: logger.With("component", "status_handler")}
}

type dayResponse struct {
	OpenTime *string  `json:"open_time"`
	Breaks   []string `json:"breaks,omitempty"`
}

type statusResponse struct {
	Timezone        string                 `json:"timezone"`
	ScheduleEnabled bool                   `json:"schedule_enabled"`
	Days            map[string]dayResponse `json:"days"`
	NextOpening     *time.Time             `json:"next_opening,omitempty"`
}

func toStatusResponse(cfg *domain.ScheduleConfig, now time.Time) statusResponse {
	resp := statusResponse{
		Timezone:        cfg.Timezone,
		ScheduleEnabled: cfg.ScheduleEnabled,
		Days:            make(map[string]dayResponse, len(domain.Weekdays)),
	}
	for _, day := range domain.Weekdays {
		var d dayResponse
		if open := cfg.OpenTimes[day]; open != nil {
			s := open.String()
			d.OpenTime = &s
		}
		for _, br := range cfg.Breaks[day] {
			d.Breaks = append(d.Breaks, br.String())
		}
		resp.Days[string(day)] = d
	}
	if next, ok := schedule.NextOpening(now, cfg); ok {
		resp.NextOpening = &next
	}
	return resp
}

func (h *StatusHandler) Get(ctx *gin.Context) {
	cfg, err := h.source.Load()
	if err != nil {
		h.logger.Error("load schedule config", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, toStatusResponse(cfg, time.Now()))
}
