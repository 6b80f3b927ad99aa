package meds

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	medsModel "github.com/zhouzirui/healthcare-site/backend/internal/model/meds"
	medsService "github.com/zhouzirui/healthcare-site/backend/internal/service/meds"
	"github.com/zhouzirui/healthcare-site/backend/pkg/utils"
)

// Searcher is the lookup the handler needs.
type Searcher interface {
	Search(ctx context.Context, query string) (medsService.SearchResult, error)
	Interactions(ctx context.Context, name string) ([]string, error)
}

// HistoryLister lists past queries. Implemented by *store.DB.
type HistoryLister interface {
	RecentQueries(ctx context.Context, limit int) ([]medsModel.QueryRecord, error)
}

// Handler 药品查询的HTTP处理器；svc 为空时接口返回 503。
type Handler struct {
	svc     Searcher
	history HistoryLister
	logger  *zap.Logger
}

// New 创建药品查询处理器
func New(svc Searcher, history HistoryLister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, history: history, logger: logger}
}

// RegisterRoutes 注册药品查询相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/medications", func(r chi.Router) {
		r.Get("/search", h.handleSearch)
		r.Get("/history", h.handleHistory)
		r.Get("/{name}/interactions", h.handleInteractions)
	})
}

type interactionsResponse struct {
	Name         string   `json:"name"`
	Interactions []string `json:"interactions"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "medication lookup is not configured")
		return
	}

	res, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleInteractions(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "medication lookup is not configured")
		return
	}

	name := chi.URLParam(r, "name")
	out, err := h.svc.Interactions(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, interactionsResponse{Name: name, Interactions: out})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "medication lookup is not configured")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	records, err := h.history.RecentQueries(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if records == nil {
		records = []medsModel.QueryRecord{}
	}
	utils.RespondJSON(w, http.StatusOK, records)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, medsService.ErrQueryRequired), errors.Is(err, medsService.ErrNameRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, medsService.ErrFDARequest):
		h.logger.Warn("openfda unavailable", zap.Error(err))
		utils.RespondError(w, http.StatusServiceUnavailable, "medication database unavailable")
	default:
		h.logger.Error("medication lookup failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
