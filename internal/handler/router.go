package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/healthcare-site/backend/internal/handler/chat"
	"github.com/zhouzirui/healthcare-site/backend/internal/handler/clinic"
	"github.com/zhouzirui/healthcare-site/backend/internal/handler/meds"
	siteHandler "github.com/zhouzirui/healthcare-site/backend/internal/handler/site"
	"github.com/zhouzirui/healthcare-site/backend/internal/handler/stream"
	"github.com/zhouzirui/healthcare-site/backend/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/healthcare-site/backend/internal/middleware"
	clinicModel "github.com/zhouzirui/healthcare-site/backend/internal/model/clinic"
	chatService "github.com/zhouzirui/healthcare-site/backend/internal/service/chat"
	"github.com/zhouzirui/healthcare-site/backend/internal/site"
	"github.com/zhouzirui/healthcare-site/backend/pkg/utils"
)

// Deps collects what the router hands to the feature handlers. Meds and
// MedsHistory may be nil when the medication lookup is disabled.
type Deps struct {
	Site           *site.Site
	Clinic         clinicModel.Store
	Profile        clinicModel.Profile
	Chat           *chatService.Service
	Meds           meds.Searcher
	MedsHistory    meds.HistoryLister
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		widget.New(deps.Chat, logger.Named("widget")).RegisterRoutes(api)
		stream.New(deps.Chat, logger.Named("stream")).RegisterRoutes(api)
		chat.New(deps.Chat.Provider(), logger.Named("chat")).RegisterRoutes(api)
		clinic.New(deps.Clinic, deps.Profile).RegisterRoutes(api)
		meds.New(deps.Meds, deps.MedsHistory, logger.Named("meds")).RegisterRoutes(api)
	})

	siteHandler.New(deps.Site).RegisterRoutes(r)

	return r
}
