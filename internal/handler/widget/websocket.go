package widget

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/healthcare-site/backend/internal/widget"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsWriteWait  = 10 * time.Second
)

// Command is an inbound websocket frame: toggle, input or send.
type Command struct {
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket streams snapshots to the client and applies its commands.
// The connection ends when the client leaves or the widget is closed.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wid, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("session", wid.ID()))
	logger.Debug("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := wid.Subscribe()
	defer unsubscribe()

	outgoing := make(chan outgoingMessage, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		h.writeLoop(ctx, conn, wid, updates, outgoing, logger)
	}()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if msg, reply := applyCommand(wid, cmd); reply {
			select {
			case outgoing <- msg:
			case <-ctx.Done():
			}
		}
	}

	cancel()
	<-writerDone
	logger.Debug("websocket disconnected")
}

// applyCommand mutates the widget. Commands whose effect is visible through the
// next snapshot produce no direct reply.
func applyCommand(wid *widget.Widget, cmd Command) (outgoingMessage, bool) {
	switch cmd.Type {
	case "toggle":
		wid.ToggleOpen()
	case "input":
		if cmd.Text == nil {
			return errorMessage("text is required"), true
		}
		wid.SetInput(*cmd.Text)
	case "send":
		var accepted bool
		if cmd.Text != nil {
			accepted = wid.Send(*cmd.Text)
		} else {
			accepted = wid.Submit()
		}
		return outgoingMessage{
			Type:      "send",
			SessionID: wid.ID(),
			Data:      map[string]bool{"accepted": accepted},
			Timestamp: time.Now().Unix(),
		}, true
	default:
		return errorMessage("unsupported message type: " + cmd.Type), true
	}
	return outgoingMessage{}, false
}

// writeLoop owns every write on conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, wid *widget.Widget, updates <-chan widget.State, outgoing <-chan outgoingMessage, logger *zap.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	// unblock the reader once writing stops
	defer conn.Close()

	if err := writeJSON(conn, stateMessage(wid.Snapshot())); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-updates:
			if !ok {
				deadline := time.Now().Add(wsWriteWait)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "widget closed"), deadline)
				return
			}
			if err := writeJSON(conn, stateMessage(state)); err != nil {
				logger.Debug("websocket write state failed", zap.Error(err))
				return
			}
		case msg := <-outgoing:
			if err := writeJSON(conn, msg); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, msg outgoingMessage) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}

func stateMessage(state widget.State) outgoingMessage {
	return outgoingMessage{
		Type:      "state",
		SessionID: state.ID,
		Data:      state,
		Timestamp: time.Now().Unix(),
	}
}

func errorMessage(message string) outgoingMessage {
	return outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
}
