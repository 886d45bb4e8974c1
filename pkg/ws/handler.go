// Package ws implements the per-connection websocket handler: register on
// upgrade, serve the read loop, and guarantee unregister + presence rebroadcast
// on every exit path.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"chatrelay/pkg/ingest"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/presence"
	"chatrelay/pkg/registry"
	"chatrelay/pkg/utils"
)

// Options tunes per-connection behavior; zero values fall back to defaults.
type Options struct {
	QueueSize    int           // outbound frames buffered per connection
	WriteTimeout time.Duration // per-frame write deadline
	EchoToSender bool          // ack sends by echoing the persisted record
}

type Handler struct {
	reg      *registry.Registry
	bc       *presence.Broadcaster
	pipe     *ingest.Pipeline
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(reg *registry.Registry, bc *presence.Broadcaster, pipe *ingest.Pipeline, opts Options) *Handler {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Handler{
		reg:  reg,
		bc:   bc,
		pipe: pipe,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origin policy is enforced by the CORS middleware upstream
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// sendRequest is the inbound client frame.
type sendRequest struct {
	Content  string `json:"content"`
	Receiver string `json:"receiver"`
}

// maxFrameBytes caps inbound frames; oversized frames fail the read loop and
// close the connection.
const maxFrameBytes = 1 << 20

// ServeWS upgrades GET /ws/{username} and runs the connection to completion.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(mux.Vars(r)["username"])
	if username == "" {
		utils.JSONError(w, http.StatusBadRequest, "username required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		logger.Warn("ws_upgrade_failed", "actor", username, "error", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	t := newTransport(conn, h.opts.QueueSize, h.opts.WriteTimeout)
	go t.writeLoop()

	if prev := h.reg.Register(username, t); prev != nil {
		// last connect wins; the superseded socket is closed and its
		// handler's conditional unregister becomes a no-op
		_ = prev.Close()
	}
	h.bc.Broadcast()
	logger.Info("ws_connected", "actor", username)

	defer func() {
		_ = t.Close()
		h.reg.Unregister(username, t)
		h.bc.Broadcast()
		logger.Info("ws_disconnected", "actor", username)
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("ws_read_error", "actor", username, "error", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if string(data) == "ping" {
			// keepalive answered directly, never enters the pipeline
			_ = t.trySendRaw([]byte("pong"))
			continue
		}

		var req sendRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = t.TrySend(models.NewErrorFrame("malformed frame: expected JSON with content and receiver"))
			logger.Warn("ws_malformed_frame", "actor", username)
			return
		}

		m, err := h.pipe.Ingest(r.Context(), username, req.Receiver, req.Content)
		if err != nil {
			var pe *ingest.PersistenceError
			if errors.As(err, &pe) {
				logger.Error("ws_persist_failed", "actor", username, "error", err)
				_ = t.TrySend(models.NewErrorFrame("message could not be stored"))
				continue
			}
			// validation reject: report and keep the connection
			_ = t.TrySend(models.NewErrorFrame(err.Error()))
			continue
		}
		if h.opts.EchoToSender {
			_ = t.TrySend(models.NewDeliveryFrame(m))
		}
	}
}
