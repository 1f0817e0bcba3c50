package stream

import (
	"log/slog"

	"github.com/eleven-am/burst-camera/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/events", h.Events)
	g.GET("/preview", h.Preview)
}

// @Summary      Stream camera notifications
// @Description  Upgrades to a websocket that carries state, progress, result and fault notifications as JSON text messages
// @Tags         stream
// @Success      101  "Switching Protocols"
// @Router       /camera/events [get]
func (h *Handler) Events(c echo.Context) error {
	return h.serve(c, TopicEvents)
}

// @Summary      Stream preview frames
// @Description  Upgrades to a websocket that carries downscaled JPEG preview frames as binary messages
// @Tags         stream
// @Success      101  "Switching Protocols"
// @Router       /camera/preview [get]
func (h *Handler) Preview(c echo.Context) error {
	return h.serve(c, TopicPreview)
}

func (h *Handler) serve(c echo.Context, topic Topic) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err, "topic", topic)
		return err
	}

	conn := NewConn(ws, shared.NewID("viewer_"), h.logger)
	h.hub.Register(topic, conn)
	defer h.hub.Unregister(topic, conn)

	h.logger.Info("viewer connected", "topic", topic, "viewer_id", conn.ID())

	ctx := c.Request().Context()
	go conn.writePump(ctx)
	conn.readPump(ctx)

	h.logger.Info("viewer disconnected", "topic", topic, "viewer_id", conn.ID())
	return nil
}
