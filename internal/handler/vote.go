package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/adrian-glinqvist/ideasvault/internal/middleware"
	"github.com/adrian-glinqvist/ideasvault/internal/model"
	"github.com/adrian-glinqvist/ideasvault/internal/service"
)

type VoteHandler struct {
	svc *service.VoteService
}

func NewVoteHandler(svc *service.VoteService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// Submit handles POST /api/votes
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	// Validate ideaId
	ideaID, errMsg := middleware.ValidateIdeaID(req.IdeaID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.IdeaID = ideaID

	// Validate userId
	userID, errMsg := middleware.ValidateUserID(req.UserID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.UserID = userID

	// Validate voteType before the engine sees it
	if errMsg := middleware.ValidateVoteType(req.VoteType); errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_VOTE", errMsg)
	}

	resp, err := h.svc.Submit(c.Context(), req)
	if err != nil {
		return voteError(c, err, "Failed to submit vote")
	}

	return c.JSON(resp)
}

// Retract handles DELETE /api/votes
func (h *VoteHandler) Retract(c fiber.Ctx) error {
	var req model.RetractRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	// Validate ideaId
	ideaID, errMsg := middleware.ValidateIdeaID(req.IdeaID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.IdeaID = ideaID

	// Validate userId
	userID, errMsg := middleware.ValidateUserID(req.UserID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.UserID = userID

	resp, err := h.svc.Retract(c.Context(), req)
	if err != nil {
		return voteError(c, err, "Failed to retract vote")
	}

	return c.JSON(resp)
}

// voteError maps engine errors onto the response envelope. Contention gets a
// 503 with Retry-After: the vote was not applied and the client may resend.
func voteError(c fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, model.ErrInvalidVote):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_VOTE", "voteType must be +1 or -1")
	case errors.Is(err, model.ErrNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Idea not found")
	case errors.Is(err, model.ErrConflictRetry):
		c.Set("Retry-After", "1")
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "VOTE_CONTENDED", "Vote is contended, retry shortly")
	default:
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}
