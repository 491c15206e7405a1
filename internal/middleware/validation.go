package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Field length limits matching database schema constraints.
const (
	MaxIdeaIDLen = 64  // ideas.idea_id TEXT, capped at the API edge
	MaxUserIDLen = 64  // votes.user_id TEXT, capped at the API edge
	MaxTitleLen  = 200 // ideas.title
)

var (
	// ideaIDRe matches idea identifiers: alphanumeric, dash, underscore.
	ideaIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// userIDRe matches user identifiers: alphanumeric, dash, underscore.
	userIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateIdeaID checks that an idea ID is well-formed and within limits.
func ValidateIdeaID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "ideaId is required"
	}
	if len(id) > MaxIdeaIDLen {
		return "", "ideaId must be at most 64 characters"
	}
	if !ideaIDRe.MatchString(id) {
		return "", "ideaId contains invalid characters"
	}
	return id, ""
}

// ValidateUserID checks that a user ID is well-formed and within limits.
func ValidateUserID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "userId is required"
	}
	if len(id) > MaxUserIDLen {
		return "", "userId must be at most 64 characters"
	}
	if !userIDRe.MatchString(id) {
		return "", "userId contains invalid characters"
	}
	return id, ""
}

// ValidateVoteType checks that a vote value is exactly +1 or -1.
func ValidateVoteType(voteType int) string {
	if voteType != 1 && voteType != -1 {
		return "voteType must be 1 or -1"
	}
	return ""
}

// ValidateTitle trims and bounds an idea title. Titles are optional.
func ValidateTitle(title string) (string, string) {
	title = strings.TrimSpace(title)
	if len(title) > MaxTitleLen {
		return "", "title must be at most 200 characters"
	}
	return title, ""
}
