package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/eleven-am/burst-camera/internal/session"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func newTestServer(t *testing.T) (*Hub, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(camera.Size{Width: 1280, Height: 720}, logger)

	e := echo.New()
	NewHandler(hub, logger).RegisterRoutes(e.Group("/v1/camera"))
	server := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	return hub, "ws" + server.URL[4:] + "/v1/camera"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitForViewers(t *testing.T, hub *Hub, events, preview int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := hub.Stats()
		if st.EventViewers == events && st.PreviewViewers == preview {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for viewers, have %+v", hub.Stats())
}

func TestHub_Size(t *testing.T) {
	hub := NewHub(camera.Size{Width: 640, Height: 480}, nil)
	if hub.Size() != (camera.Size{Width: 640, Height: 480}) {
		t.Errorf("unexpected size %v", hub.Size())
	}
}

func TestHub_EventsReachViewer(t *testing.T) {
	hub, url := newTestServer(t)
	ws := dial(t, url+"/events")
	waitForViewers(t, hub, 1, 0)

	hub.Observe(context.Background(), session.Notification{
		Kind:   session.NotifyState,
		Status: session.Status{State: session.StatePreviewing, CameraID: "0"},
	})

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Errorf("expected text message, got %d", kind)
	}

	var n session.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if n.Kind != session.NotifyState || n.Status.State != session.StatePreviewing {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestHub_PreviewReachesViewer(t *testing.T) {
	hub, url := newTestServer(t)
	events := dial(t, url+"/events")
	preview := dial(t, url+"/preview")
	waitForViewers(t, hub, 1, 1)

	frame := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	hub.Present(frame)

	_ = preview.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := preview.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if kind != websocket.BinaryMessage || !bytes.Equal(data, frame) {
		t.Errorf("unexpected frame kind=%d data=%v", kind, data)
	}

	_ = events.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := events.ReadMessage(); err == nil {
		t.Error("event viewer should not receive preview frames")
	}

	if sent := hub.Stats().FramesSent; sent != 1 {
		t.Errorf("expected 1 frame sent, got %d", sent)
	}
}

func TestHub_PresentWithoutViewers(t *testing.T) {
	hub := NewHub(camera.Size{}, nil)
	hub.Present([]byte{1, 2, 3})

	if st := hub.Stats(); st.FramesSent != 0 || st.Dropped != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestHub_ViewerDisconnectUnregisters(t *testing.T) {
	hub, url := newTestServer(t)
	ws := dial(t, url+"/preview")
	waitForViewers(t, hub, 0, 1)

	ws.Close()
	waitForViewers(t, hub, 0, 0)
}

func TestHub_CloseDisconnectsViewers(t *testing.T) {
	hub, url := newTestServer(t)
	ws := dial(t, url+"/events")
	waitForViewers(t, hub, 1, 0)

	hub.Close()

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}
}

func TestConn_SendBufferFull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:], nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	conn := NewConn(ws, "viewer_test", slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < sendBuffer; i++ {
		if !conn.Send(websocket.TextMessage, []byte("x")) {
			t.Fatalf("send %d should be accepted", i)
		}
	}
	if conn.Send(websocket.TextMessage, []byte("x")) {
		t.Error("send should be rejected when the buffer is full")
	}

	if err := conn.Close(); err != nil {
		t.Errorf("close error: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second close error: %v", err)
	}
	if conn.Send(websocket.TextMessage, []byte("x")) {
		t.Error("send after close should be rejected")
	}
	select {
	case <-conn.Done():
	default:
		t.Error("done should be closed")
	}
}
