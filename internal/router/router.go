package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/adrian-glinqvist/ideasvault/internal/handler"
	"github.com/adrian-glinqvist/ideasvault/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Vote   *handler.VoteHandler
	Idea   *handler.IdeaHandler
	Events *handler.EventsHandler
	Stats  *handler.StatsHandler
	Health *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))
	app.Use(handler.MetricsMiddleware())

	// Probes and metrics (before API group, no limits)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	voteLimit := middleware.NewVoteRateLimiter()
	viewLimit := middleware.NewViewRateLimiter()
	subscribeLimit := middleware.NewSubscribeRateLimiter()
	ideaLimit := middleware.NewIdeaRateLimiter()
	statsLimit := middleware.NewStatsRateLimiter()

	// API routes
	api := app.Group("/api")

	// Vote routes; submit and retract share the per-user budget
	api.Post("/votes", h.Vote.Submit, voteLimit.Handler())
	api.Delete("/votes", h.Vote.Retract, voteLimit.Handler())

	// Idea routes; trending must be registered before :ideaId to win the match
	api.Get("/ideas/trending", h.Idea.Trending)
	api.Get("/ideas/:ideaId", h.Idea.Get)
	api.Post("/ideas", h.Idea.Create, ideaLimit.Handler())
	api.Post("/ideas/:ideaId/view", h.Idea.RecordView, viewLimit.Handler())

	// Stats routes
	api.Get("/stats", h.Stats.GetStats, statsLimit.Handler())

	// Event streams
	events := app.Group("/events")
	events.Get("/ideas", h.Events.GlobalFeed, subscribeLimit.Handler())
	events.Get("/votes/:ideaId", h.Events.IdeaVotes, subscribeLimit.Handler())
}
