// Package mapview pushes the navigator's marker and field updates to every
// connected browser over WebSocket. A Hub is both the navigator's MapView and
// its Display.
package mapview

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	ws "github.com/gorilla/websocket"

	"github.com/tropicly/labeler/internal/navigator"
	"github.com/tropicly/labeler/pkg/core"
	"github.com/tropicly/labeler/pkg/streaming"
)

// replayOrder is the order cached messages are sent to a new browser.
var replayOrder = []string{
	streaming.TypeLoaded,
	streaming.TypeDrawMarker,
	streaming.TypeCenter,
	streaming.TypeLabel,
	streaming.TypeValidation,
	streaming.TypeProgress,
}

// Hub fans display events out to browsers.
type Hub struct {
	logger   *slog.Logger
	upgrader ws.Upgrader

	nextMarkerID atomic.Uint64

	mu      sync.Mutex
	clients map[*connection]struct{}
	latest  map[string][]byte
	marker  core.Marker
	closed  bool
	wg      sync.WaitGroup
}

// NewHub creates a hub with no browsers attached.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*connection]struct{}),
		latest:  make(map[string][]byte),
	}
}

// DrawMarkerAt assigns an auto-increment ID and sends the marker.
func (h *Hub) DrawMarkerAt(c core.Coordinate) core.Marker {
	m := core.Marker{ID: h.nextMarkerID.Add(1), Position: c}

	h.mu.Lock()
	h.marker = m
	h.mu.Unlock()

	h.publish(streaming.TypeDrawMarker, streaming.MarkerPayload{ID: m.ID, Lat: c.Lat, Lng: c.Lng})
	return m
}

// ClearMarker removes the marker from every browser.
func (h *Hub) ClearMarker(m core.Marker) {
	h.mu.Lock()
	if h.marker.ID == m.ID {
		h.marker = core.Marker{}
		delete(h.latest, streaming.TypeDrawMarker)
	}
	h.mu.Unlock()

	h.broadcast(streaming.TypeClearMarker, streaming.MarkerPayload{ID: m.ID, Lat: m.Position.Lat, Lng: m.Position.Lng})
}

// CenterOn moves the map view.
func (h *Hub) CenterOn(c core.Coordinate) {
	h.publish(streaming.TypeCenter, streaming.CenterPayload{Lat: c.Lat, Lng: c.Lng})
}

// ShowLabel sets the label field.
func (h *Hub) ShowLabel(label string) {
	h.publish(streaming.TypeLabel, streaming.FieldPayload{Value: label})
}

// ShowValidation sets the validation field.
func (h *Hub) ShowValidation(validation string) {
	h.publish(streaming.TypeValidation, streaming.FieldPayload{Value: validation})
}

// ShowProgress sets the progress fields.
func (h *Hub) ShowProgress(current, total int) {
	h.publish(streaming.TypeProgress, streaming.ProgressPayload{Current: current, Total: total})
}

// Observe keeps browsers in step with loads and edits that do not go
// through a display refresh.
func (h *Hub) Observe(e navigator.Event) {
	switch e.Kind {
	case navigator.EventLoaded:
		h.mu.Lock()
		clear(h.latest)
		h.mu.Unlock()
		h.publish(streaming.TypeLoaded, streaming.LoadedPayload{FileName: e.FileName, Total: e.Total})
	case navigator.EventLabelEdited:
		h.ShowLabel(e.Value)
	case navigator.EventValidationEdited:
		h.ShowValidation(e.Value)
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and replays the current view to the new browser.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	c := newConnection(conn, h.logger)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	for _, t := range replayOrder {
		if data, ok := h.latest[t]; ok {
			c.send(data)
		}
	}
	h.wg.Add(1)
	h.mu.Unlock()

	h.logger.Debug("Browser connected", "remote", r.RemoteAddr)

	go func() {
		defer h.wg.Done()
		done := make(chan struct{})
		go func() {
			c.readLoop()
			close(done)
		}()
		c.writeLoop()
		_ = conn.Close()
		<-done

		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		h.logger.Debug("Browser disconnected", "remote", r.RemoteAddr)
	}()
}

// Close disconnects every browser and waits for their loops to end.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		c.close()
	}
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

// publish broadcasts and remembers the message for replay.
func (h *Hub) publish(msgType string, payload any) {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		h.logger.Error("Failed to encode display event", "type", msgType, "error", err)
		return
	}

	h.mu.Lock()
	h.latest[msgType] = data
	h.sendAll(data)
	h.mu.Unlock()
}

func (h *Hub) broadcast(msgType string, payload any) {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		h.logger.Error("Failed to encode display event", "type", msgType, "error", err)
		return
	}

	h.mu.Lock()
	h.sendAll(data)
	h.mu.Unlock()
}

// sendAll requires h.mu.
func (h *Hub) sendAll(data []byte) {
	for c := range h.clients {
		c.send(data)
	}
}
