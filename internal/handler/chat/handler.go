package chat

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/healthcare-site/backend/internal/service/ai"
	"github.com/zhouzirui/healthcare-site/backend/pkg/utils"
)

// Handler 无状态单轮聊天的HTTP处理器
type Handler struct {
	provider ai.Provider
	logger   *zap.Logger
}

// New 创建聊天处理器；provider 为空时接口返回 503。
func New(provider ai.Provider, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		provider: provider,
		logger:   logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// handleChat forwards one message and answers with the reply or the fallback.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai provider is not configured")
		return
	}

	var payload chatRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, _ := ai.ReplyOrFallback(r.Context(), h.provider, payload.Message, h.logger)
	utils.RespondJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
