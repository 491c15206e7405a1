package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
	"github.com/adrian-glinqvist/ideasvault/internal/service"
)

type StatsHandler struct {
	svc     *service.VoteService
	startAt time.Time
}

func NewStatsHandler(svc *service.VoteService) *StatsHandler {
	return &StatsHandler{svc: svc, startAt: time.Now()}
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(c fiber.Ctx) error {
	ideas, votes, subscribers := h.svc.Counts()
	return c.JSON(model.StatsResponse{
		Ideas:             ideas,
		Votes:             votes,
		ActiveSubscribers: subscribers,
		UptimeSeconds:     int64(time.Since(h.startAt).Seconds()),
	})
}
