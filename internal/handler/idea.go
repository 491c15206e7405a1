package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/adrian-glinqvist/ideasvault/internal/middleware"
	"github.com/adrian-glinqvist/ideasvault/internal/model"
	"github.com/adrian-glinqvist/ideasvault/internal/service"
	"github.com/adrian-glinqvist/ideasvault/pkg/hash"
)

type IdeaHandler struct {
	svc    *service.VoteService
	cache  *service.CacheService
	limit  int
	ipSalt string
}

func NewIdeaHandler(svc *service.VoteService, cache *service.CacheService, trendingLimit int, ipSalt string) *IdeaHandler {
	return &IdeaHandler{svc: svc, cache: cache, limit: trendingLimit, ipSalt: ipSalt}
}

// Create handles POST /api/ideas
// Registers an idea with the engine: 201 when created, 200 when it already
// existed. The ideaId is optional; one is generated when absent.
func (h *IdeaHandler) Create(c fiber.Ctx) error {
	var req model.CreateIdeaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if req.IdeaID != "" {
		ideaID, errMsg := middleware.ValidateIdeaID(req.IdeaID)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
		}
		req.IdeaID = ideaID
	}

	title, errMsg := middleware.ValidateTitle(req.Title)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	snap, created, err := h.svc.RegisterIdea(c.Context(), req.IdeaID, title)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register idea")
	}

	// A brand-new idea should show up without waiting out the cache TTL.
	if err := h.cache.InvalidateTrending(c.Context()); err != nil {
		log.Warn().Err(err).Msg("trending cache invalidation failed")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(snap)
}

// ideaResponse is an idea snapshot plus the requesting user's own vote when
// a userId query parameter was supplied.
type ideaResponse struct {
	model.IdeaSnapshot
	UserVote *int `json:"userVote,omitempty"`
}

// Get handles GET /api/ideas/:ideaId
func (h *IdeaHandler) Get(c fiber.Ctx) error {
	ideaID, errMsg := middleware.ValidateIdeaID(c.Params("ideaId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	snap, err := h.svc.Snapshot(ideaID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Idea not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch idea")
	}

	resp := ideaResponse{IdeaSnapshot: snap}
	if userID := fiber.Query[string](c, "userId"); userID != "" {
		if userID, errMsg := middleware.ValidateUserID(userID); errMsg == "" {
			v := h.svc.UserVote(userID, ideaID)
			resp.UserVote = &v
		}
	}

	return c.JSON(resp)
}

// Trending handles GET /api/ideas/trending
// Cache-aside on the rendered response body; every vote moves the ranking,
// so the TTL is short and registration invalidates explicitly.
func (h *IdeaHandler) Trending(c fiber.Ctx) error {
	ctx := c.Context()

	if data, err := h.cache.GetTrending(ctx); err == nil && len(data) > 0 {
		Metrics.CacheHits.Inc()
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}
	Metrics.CacheMisses.Inc()

	resp := model.TrendingResponse{
		Ideas:       h.svc.Trending(h.limit),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.cache.SetTrending(ctx, resp); err != nil {
		log.Warn().Err(err).Msg("trending cache store failed")
	}

	return c.JSON(resp)
}

// RecordView handles POST /api/ideas/:ideaId/view
// Views never publish events; the next vote or reconcile sweep carries the
// updated counter out. The viewer IP is hashed before it touches the logs.
func (h *IdeaHandler) RecordView(c fiber.Ctx) error {
	ideaID, errMsg := middleware.ValidateIdeaID(c.Params("ideaId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	snap, err := h.svc.RecordView(ideaID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Idea not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record view")
	}

	log.Debug().
		Str("idea_id", ideaID).
		Str("viewer_hash", hash.HashIP(c.IP(), h.ipSalt)).
		Msg("view recorded")

	return c.JSON(fiber.Map{"viewCount": snap.ViewCount})
}
