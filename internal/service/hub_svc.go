package service

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
)

// SnapshotSource supplies the state a new subscriber needs before it starts
// consuming deltas. Implemented by the coordinator over the tally store.
type SnapshotSource interface {
	IdeaSnapshot(ideaID string) (model.IdeaSnapshot, error)
	TrendingSnapshot() []model.TrendingEntry
}

// Subscriber is one consumer of a topic's event stream. Its channel is
// closed by the hub: on unsubscribe, or forcibly when the queue overflows.
type Subscriber struct {
	ID    string
	Topic string

	hub    *HubService
	events chan model.DeltaEvent
}

// Events is the subscriber's delivery queue. The channel closes when the
// subscriber is dropped or unsubscribed; consumers should treat close as
// end of stream.
func (s *Subscriber) Events() <-chan model.DeltaEvent {
	return s.events
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscriber) Close() {
	s.hub.Unsubscribe(s)
}

// topicState carries a topic's sequence counter and live subscribers. States
// persist for the process lifetime so a topic's sequence is never reused,
// even after its last subscriber leaves.
type topicState struct {
	mu   sync.Mutex
	seq  uint64
	subs map[string]*Subscriber
}

// HubService fans out delta events to subscribers with per-topic ordering.
// Publishing never blocks: a subscriber that cannot keep up is dropped.
type HubService struct {
	source  SnapshotSource
	bufSize int
	metrics *EngineMetrics

	mu     sync.RWMutex
	topics map[string]*topicState
}

func NewHubService(source SnapshotSource, bufSize int, metrics *EngineMetrics) *HubService {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &HubService{
		source:  source,
		bufSize: bufSize,
		metrics: metrics,
		topics:  make(map[string]*topicState),
	}
}

func (h *HubService) state(topic string) *topicState {
	h.mu.RLock()
	ts, ok := h.topics[topic]
	h.mu.RUnlock()
	if ok {
		return ts
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if ts, ok = h.topics[topic]; ok {
		return ts
	}
	ts = &topicState{subs: make(map[string]*Subscriber)}
	h.topics[topic] = ts
	return ts
}

// Subscribe registers a consumer and returns it together with the topic's
// current snapshot. Registration happens before the snapshot is read, so
// every mutation after the snapshot is guaranteed to reach the queue; a
// delta may be both reflected in the snapshot and queued, which is harmless
// because events carry absolute counter state.
func (h *HubService) Subscribe(topic string) (*Subscriber, model.TopicSnapshot, error) {
	isFeed := topic == model.TopicGlobalFeed
	var ideaID string
	if !isFeed {
		var ok bool
		ideaID, ok = strings.CutPrefix(topic, "item:")
		if !ok || ideaID == "" {
			return nil, model.TopicSnapshot{}, model.ErrNotFound
		}
		if _, err := h.source.IdeaSnapshot(ideaID); err != nil {
			return nil, model.TopicSnapshot{}, err
		}
	}

	ts := h.state(topic)
	sub := &Subscriber{
		ID:     uuid.NewString(),
		Topic:  topic,
		hub:    h,
		events: make(chan model.DeltaEvent, h.bufSize),
	}

	ts.mu.Lock()
	ts.subs[sub.ID] = sub
	seq := ts.seq
	ts.mu.Unlock()
	h.metrics.SubscriberConnected()

	snap := model.TopicSnapshot{Topic: topic, Sequence: seq}
	if isFeed {
		snap.Trending = h.source.TrendingSnapshot()
	} else {
		idea, err := h.source.IdeaSnapshot(ideaID)
		if err != nil {
			h.Unsubscribe(sub)
			return nil, model.TopicSnapshot{}, err
		}
		snap.Idea = &idea
	}
	return sub, snap, nil
}

// Unsubscribe removes the subscriber and closes its channel. Idempotent.
func (h *HubService) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	ts := h.state(sub.Topic)

	ts.mu.Lock()
	if _, ok := ts.subs[sub.ID]; ok {
		delete(ts.subs, sub.ID)
		close(sub.events)
		h.metrics.SubscriberGone()
	}
	ts.mu.Unlock()
}

// Publish assigns the topic's next sequence number to ev and enqueues it to
// every subscriber. Enqueues are non-blocking; a subscriber with a full
// queue is dropped and its channel closed rather than stalling the topic.
// The whole operation runs under the topic lock, so subscribers observe
// events in sequence order with no interleaving.
func (h *HubService) Publish(topic string, ev model.DeltaEvent) uint64 {
	ts := h.state(topic)

	ts.mu.Lock()
	ts.seq++
	ev.Topic = topic
	ev.Sequence = ts.seq
	stampTime(&ev)

	var dropped []*Subscriber
	for id, sub := range ts.subs {
		select {
		case sub.events <- ev:
		default:
			delete(ts.subs, id)
			close(sub.events)
			dropped = append(dropped, sub)
		}
	}
	seq := ts.seq
	ts.mu.Unlock()

	for _, sub := range dropped {
		h.metrics.SubscriberGone()
		h.metrics.SubscriberOverflow()
		log.Warn().
			Str("component", "hub").
			Str("topic", topic).
			Str("subscriber", sub.ID).
			Uint64("seq", seq).
			Msg("subscriber queue overflow, dropping")
	}

	h.metrics.ObservePublish(topicKind(topic))
	return seq
}

// Sequence reports the topic's current sequence number.
func (h *HubService) Sequence(topic string) uint64 {
	ts := h.state(topic)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.seq
}

// SubscriberCount reports live subscribers across all topics.
func (h *HubService) SubscriberCount() int {
	h.mu.RLock()
	states := make([]*topicState, 0, len(h.topics))
	for _, ts := range h.topics {
		states = append(states, ts)
	}
	h.mu.RUnlock()

	n := 0
	for _, ts := range states {
		ts.mu.Lock()
		n += len(ts.subs)
		ts.mu.Unlock()
	}
	return n
}

func topicKind(topic string) string {
	if topic == model.TopicGlobalFeed {
		return "feed"
	}
	return "item"
}

// stampTime fills the event timestamp if the caller left it zero.
func stampTime(ev *model.DeltaEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
}
