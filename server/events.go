package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is a single server-sent event.
type Event struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type eventClient struct {
	id     string
	events chan Event
}

// Events fans deploy notifications out to connected SSE clients so frontends know
// when to refresh their cached indices.
type Events struct {
	logger     *zap.Logger
	mu         sync.RWMutex
	clients    map[string]*eventClient
	keepalive  time.Duration
	bufferSize int
}

func NewEvents(logger *zap.Logger) *Events {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Events{
		logger:     logger,
		clients:    make(map[string]*eventClient),
		keepalive:  30 * time.Second,
		bufferSize: 16,
	}
}

func newEvent(name string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Event:     name,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Publish sends an event to every connected client. Slow clients miss events instead of blocking.
func (e *Events) Publish(name string, data interface{}) {
	event := newEvent(name, data)
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, client := range e.clients {
		select {
		case client.events <- event:
		default:
			e.logger.Warn("event buffer full, dropping event", zap.String("clientID", client.id), zap.String("event", name))
		}
	}
}

// Deployed announces a finished deployment.
func (e *Events) Deployed(sender string) {
	e.Publish("deployed", map[string]string{"sender": sender})
}

func (e *Events) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients)
}

func (e *Events) addClient() *eventClient {
	client := &eventClient{
		id:     uuid.NewString(),
		events: make(chan Event, e.bufferSize),
	}
	e.mu.Lock()
	e.clients[client.id] = client
	e.mu.Unlock()
	e.logger.Debug("SSE client connected", zap.String("clientID", client.id))
	return client
}

func (e *Events) removeClient(id string) {
	e.mu.Lock()
	delete(e.clients, id)
	e.mu.Unlock()
	e.logger.Debug("SSE client disconnected", zap.String("clientID", id))
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Event, eventJSON); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// HandleSSE streams events until the client goes away.
func (e *Events) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := e.addClient()
	defer e.removeClient(client.id)

	if err := writeEvent(w, flusher, newEvent("connected", map[string]string{"clientID": client.id})); err != nil {
		e.logger.Error("failed to send connection event", zap.String("clientID", client.id), zap.Error(err))
		return
	}

	ticker := time.NewTicker(e.keepalive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-client.events:
			if err := writeEvent(w, flusher, event); err != nil {
				e.logger.Error("failed to send event to client", zap.String("clientID", client.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
