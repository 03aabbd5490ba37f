package operator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

// CallHandle is the hub's view of one live call: a narrow, serializable
// facade over the orchestrator, isolating the hub's one piece of shared
// mutable state (the registry itself) from the call's internals so test
// doubles are trivial.
type CallHandle interface {
	ID() string
	Snapshot() CallSnapshot
	History() []orchestrator.Turn
	RequestHistorySnapshot()
	ApplyConfigUpdate(next orchestrator.CallConfig) error
	CurrentConfig() orchestrator.CallConfig
}

// CallSnapshot is a point-in-time, read-only view of a call for
// active_calls_list / ari_call_status_update.
type CallSnapshot struct {
	CallID   string          `json:"callId"`
	CallerID string          `json:"callerId"`
	State    orchestrator.CallState `json:"state"`
}

// Hub is the process-wide registry `Map<CallId, CallHandle>` with
// read-copy semantics: mutations go through a dedicated mutex;
// observer fan-out reads a snapshot of both the registry and its observer
// list, so broadcasting never holds the registry lock.
type Hub struct {
	mu        sync.RWMutex
	calls     map[string]CallHandle
	observers map[string]chan Envelope

	logger orchestrator.Logger
}

// NewHub builds an empty, ready-to-use hub.
func NewHub(logger orchestrator.Logger) *Hub {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &Hub{
		calls:     make(map[string]CallHandle),
		observers: make(map[string]chan Envelope),
		logger:    logger,
	}
}

// RegisterCall adds a call to the registry and announces it to every
// connected observer.
func (h *Hub) RegisterCall(handle CallHandle) {
	h.mu.Lock()
	h.calls[handle.ID()] = handle
	h.mu.Unlock()

	h.Broadcast(Envelope{Type: EventCallResourcesInitialized, CallID: handle.ID(), Timestamp: time.Now()})
}

// UnregisterCall removes a call once it has reached Closed.
func (h *Hub) UnregisterCall(callID string) {
	h.mu.Lock()
	delete(h.calls, callID)
	h.mu.Unlock()
}

// ActiveCalls returns a read-snapshot of every registered call.
func (h *Hub) ActiveCalls() []CallSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]CallSnapshot, 0, len(h.calls))
	for _, c := range h.calls {
		out = append(out, c.Snapshot())
	}
	return out
}

// Subscribe registers a new observer and returns its event channel plus an
// unsubscribe func. The channel is closed by Unsubscribe, never by a
// broadcaster, so broadcasting never races a close.
func (h *Hub) Subscribe(observerID string) (<-chan Envelope, func()) {
	ch := make(chan Envelope, 64)
	h.mu.Lock()
	h.observers[observerID] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		if existing, ok := h.observers[observerID]; ok && existing == ch {
			delete(h.observers, observerID)
			close(ch)
		}
		h.mu.Unlock()
	}
}

// Broadcast fans an event out to every connected observer concurrently,
// bounded by a small worker pool so one slow observer cannot stall the
// others. Ordering is only guaranteed per-observer, not across observers.
func (h *Hub) Broadcast(env Envelope) {
	h.mu.RLock()
	observers := make([]chan Envelope, 0, len(h.observers))
	for _, ch := range h.observers {
		observers = append(observers, ch)
	}
	h.mu.RUnlock()

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(8)
	for _, ch := range observers {
		ch := ch
		g.Go(func() error {
			select {
			case ch <- env:
			case <-time.After(time.Second):
				h.logger.Warn("operator observer slow, dropping event", "type", env.Type)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// HandleClientMessage processes one inbound client→server message and
// returns its immediate reply envelope. Every message type, including an
// unrecognized one, gets a reply.
func (h *Hub) HandleClientMessage(msg ClientMessage) *Envelope {
	h.mu.RLock()
	handle, ok := h.calls[msg.CallID]
	h.mu.RUnlock()

	switch msg.Type {
	case ClientGetCallConfiguration:
		if !ok {
			return &Envelope{Type: EventError, CallID: msg.CallID, Timestamp: time.Now(), Payload: "unknown call"}
		}
		return &Envelope{Type: EventConfigUpdateAck, CallID: msg.CallID, Timestamp: time.Now(), Payload: handle.CurrentConfig()}

	case ClientGetConversationHistory:
		if !ok {
			return &Envelope{Type: EventError, CallID: msg.CallID, Timestamp: time.Now(), Payload: "unknown call"}
		}
		handle.RequestHistorySnapshot()
		return &Envelope{Type: EventConversationHistory, CallID: msg.CallID, Timestamp: time.Now(), Payload: handle.History()}

	case ClientSessionUpdate:
		if !ok {
			return &Envelope{Type: EventError, CallID: msg.CallID, Timestamp: time.Now(), Payload: "unknown call"}
		}
		next, err := mergeSessionUpdate(handle.CurrentConfig(), msg.Session)
		if err != nil {
			return &Envelope{Type: EventConfigUpdateAck, CallID: msg.CallID, Timestamp: time.Now(), Payload: map[string]string{"error": err.Error()}}
		}
		if err := handle.ApplyConfigUpdate(next); err != nil {
			return &Envelope{Type: EventConfigUpdateAck, CallID: msg.CallID, Timestamp: time.Now(), Payload: map[string]string{"error": err.Error()}}
		}
		return &Envelope{Type: EventConfigUpdateAck, CallID: msg.CallID, Timestamp: time.Now(), Payload: next}

	default:
		return &Envelope{Type: EventError, Timestamp: time.Now(), Payload: "unrecognized client message type"}
	}
}
