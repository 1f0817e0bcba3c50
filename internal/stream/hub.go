package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/eleven-am/burst-camera/internal/session"
	"github.com/gorilla/websocket"
)

type Topic string

const (
	TopicEvents  Topic = "events"
	TopicPreview Topic = "preview"
)

type Stats struct {
	EventViewers   int    `json:"event_viewers"`
	PreviewViewers int    `json:"preview_viewers"`
	FramesSent     uint64 `json:"frames_sent"`
	Dropped        uint64 `json:"dropped"`
}

// Hub fans camera output out to websocket viewers. It is the preview surface
// handed to the camera and an observer on the notification bus.
type Hub struct {
	size   camera.Size
	logger *slog.Logger

	mu      sync.RWMutex
	viewers map[Topic]map[*Conn]struct{}

	framesSent atomic.Uint64
	dropped    atomic.Uint64
}

func NewHub(previewSize camera.Size, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	viewers := map[Topic]map[*Conn]struct{}{
		TopicEvents:  {},
		TopicPreview: {},
	}
	return &Hub{
		size:    previewSize,
		logger:  logger.With("component", "stream_hub"),
		viewers: viewers,
	}
}

func (h *Hub) Size() camera.Size {
	return h.size
}

// Present forwards one JPEG preview frame to every preview viewer.
func (h *Hub) Present(frame []byte) {
	if h.broadcast(TopicPreview, websocket.BinaryMessage, frame) > 0 {
		h.framesSent.Add(1)
	}
}

func (h *Hub) Observe(_ context.Context, n session.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		h.logger.Error("failed to marshal notification", "error", err, "kind", n.Kind)
		return
	}
	h.broadcast(TopicEvents, websocket.TextMessage, data)
}

func (h *Hub) broadcast(topic Topic, kind int, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for conn := range h.viewers[topic] {
		if conn.Send(kind, data) {
			sent++
			continue
		}
		h.dropped.Add(1)
	}
	return sent
}

func (h *Hub) Register(topic Topic, conn *Conn) {
	h.mu.Lock()
	h.viewers[topic][conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("viewer registered", "topic", topic, "viewer_id", conn.ID())
}

func (h *Hub) Unregister(topic Topic, conn *Conn) {
	h.mu.Lock()
	delete(h.viewers[topic], conn)
	h.mu.Unlock()
	h.logger.Debug("viewer unregistered", "topic", topic, "viewer_id", conn.ID())
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		EventViewers:   len(h.viewers[TopicEvents]),
		PreviewViewers: len(h.viewers[TopicPreview]),
		FramesSent:     h.framesSent.Load(),
		Dropped:        h.dropped.Load(),
	}
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	var conns []*Conn
	for topic, set := range h.viewers {
		for conn := range set {
			conns = append(conns, conn)
		}
		h.viewers[topic] = map[*Conn]struct{}{}
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
