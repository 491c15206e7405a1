package handler

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/adrian-glinqvist/ideasvault/internal/middleware"
	"github.com/adrian-glinqvist/ideasvault/internal/model"
	"github.com/adrian-glinqvist/ideasvault/internal/service"
)

// keepaliveInterval spaces the SSE comment lines that hold idle connections
// open through proxies.
const keepaliveInterval = 15 * time.Second

type EventsHandler struct {
	hub *service.HubService
}

func NewEventsHandler(hub *service.HubService) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// GlobalFeed handles GET /events/ideas
// Streams re-ranking updates for every idea on the feed:global topic.
func (h *EventsHandler) GlobalFeed(c fiber.Ctx) error {
	return h.stream(c, model.TopicGlobalFeed, "idea_update")
}

// IdeaVotes handles GET /events/votes/:ideaId
// Streams vote updates for a single idea on its item topic.
func (h *EventsHandler) IdeaVotes(c fiber.Ctx) error {
	ideaID, errMsg := middleware.ValidateIdeaID(c.Params("ideaId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	return h.stream(c, model.TopicForIdea(ideaID), "vote_update")
}

// stream subscribes to the topic and writes SSE frames until the client goes
// away or the hub drops the subscriber. The first frame is a snapshot event
// carrying the topic's current state; every frame's id is the topic sequence
// number, so clients can spot gaps after a reconnect and re-snapshot.
func (h *EventsHandler) stream(c fiber.Ctx, topic, eventName string) error {
	sub, snap, err := h.hub.Subscribe(topic)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Idea not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to subscribe")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unsubscribe(sub)

		if err := writeEvent(w, "snapshot", snap.Sequence, snap); err != nil {
			return
		}

		keepalive := time.NewTicker(keepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					// Dropped by the hub for falling behind. Ending the
					// stream makes the client reconnect and re-snapshot.
					return
				}
				if err := writeEvent(w, eventName, ev.Sequence, ev); err != nil {
					return
				}
			case <-keepalive.C:
				if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

// writeEvent frames one SSE message and flushes it to the client.
func writeEvent(w *bufio.Writer, event string, id uint64, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data); err != nil {
		return err
	}
	return w.Flush()
}
