package clinic

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/clinic"
	"github.com/zhouzirui/healthcare-site/backend/pkg/utils"
)

// Handler 诊所信息的HTTP处理器
type Handler struct {
	services clinic.Store
	profile  clinic.Profile
}

// New 创建诊所处理器
func New(services clinic.Store, profile clinic.Profile) *Handler {
	return &Handler{
		services: services,
		profile:  profile,
	}
}

// RegisterRoutes 注册诊所相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/services", h.handleListServices)
	r.Get("/services/{serviceID}", h.handleGetService)
	r.Get("/clinic", h.handleProfile)
}

func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.services.List())
}

func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.services.FindByID(chi.URLParam(r, "serviceID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "service not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, svc)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.profile)
}
