package widget

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/healthcare-site/backend/internal/service/chat"
	"github.com/zhouzirui/healthcare-site/backend/internal/widget"
	"github.com/zhouzirui/healthcare-site/backend/pkg/utils"
)

// Handler 聊天组件会话的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建组件处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			// origin checks happen in the CORS layer for REST; the widget
			// script is served from the same host.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册组件相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/widget/session", h.handleCreateSession)
	r.Get("/widget/{sessionID}", h.handleSnapshot)
	r.Delete("/widget/{sessionID}", h.handleClose)
	r.Get("/widget/{sessionID}/session", h.handleSession)
	r.Post("/widget/{sessionID}/toggle", h.handleToggle)
	r.Put("/widget/{sessionID}/input", h.handleInput)
	r.Post("/widget/{sessionID}/messages", h.handleSend)
	r.Get("/widget/{sessionID}/ws", h.handleWebSocket)
}

type textPayload struct {
	Text *string `json:"text"`
}

// SendResult reports whether a send was accepted. A dropped send is not an error.
type SendResult struct {
	Accepted bool         `json:"accepted"`
	State    widget.State `json:"state"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	_, wid, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, wid.Snapshot())
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	wid, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, wid.Snapshot())
}

// handleSession reports when the widget was mounted and last changed.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	wid, ok := h.lookup(w, r)
	if !ok {
		return
	}
	wid.ToggleOpen()
	utils.RespondJSON(w, http.StatusOK, wid.Snapshot())
}

func (h *Handler) handleInput(w http.ResponseWriter, r *http.Request) {
	wid, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload textPayload
	if err := utils.DecodeJSON(w, r, &payload); err != nil || payload.Text == nil {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	wid.SetInput(*payload.Text)
	utils.RespondJSON(w, http.StatusOK, wid.Snapshot())
}

// handleSend appends the user turn and returns before the provider settles.
// Without a text field the current input buffer is submitted.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	wid, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload textPayload
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(w, r, &payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var accepted bool
	if payload.Text != nil {
		accepted = wid.Send(*payload.Text)
	} else {
		accepted = wid.Submit()
	}

	status := http.StatusOK
	if accepted {
		status = http.StatusAccepted
	}
	utils.RespondJSON(w, status, SendResult{Accepted: accepted, State: wid.Snapshot()})
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.CloseSession(r.Context(), sessionID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*widget.Widget, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	wid, err := h.chatSvc.GetWidget(r.Context(), sessionID)
	if err != nil {
		h.respondServiceError(w, err)
		return nil, false
	}
	return wid, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrProviderMissing):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("widget request failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
