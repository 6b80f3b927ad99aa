package stream

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/healthcare-site/backend/internal/service/chat"
	"github.com/zhouzirui/healthcare-site/backend/pkg/utils"
)

const defaultKeepAlive = 15 * time.Second

// Handler pushes widget snapshots over Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	logger    *zap.Logger
	keepAlive time.Duration
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:   chatSvc,
		logger:    logger,
		keepAlive: defaultKeepAlive,
	}
}

// RegisterRoutes mounts GET /widget/{sessionID}/events.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widget/{sessionID}/events", h.handleEvents)
}

// handleEvents emits a "state" event with the current snapshot, then one per
// change. Replies arrive as whole messages. A "closed" event ends the stream
// when the widget is unmounted.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	wid, err := h.chatSvc.GetWidget(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, unsubscribe := wid.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	logger := h.logger.With(zap.String("session", sessionID))
	logger.Debug("opening widget event stream")
	defer logger.Debug("closing widget event stream")

	if err := utils.SendSSEEvent(w, flusher, "state", wid.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-updates:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, "closed", map[string]string{"sessionId": sessionID})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "state", state); err != nil {
				logger.Debug("sse write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
				return
			}
		}
	}
}
