package api

import (
	"context"
	"net/http"
	"time"

	"educontrol/api/handlers"
	"educontrol/config"
	"educontrol/core/auth"
	"educontrol/core/rbac"
	"educontrol/core/services"
	"educontrol/core/store"
	"educontrol/core/utils"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	cfg            *config.AppConfig
	logger         *utils.Logger
	policy         *rbac.Policy
	sessionManager *auth.SessionManager
	users          store.UsersStore
	masters        store.MastersStore
	audit          store.AuditStore
	incidentsSvc   *services.IncidentsService

	httpServer *http.Server
}

func NewServer(cfg *config.AppConfig, logger *utils.Logger, policy *rbac.Policy, sessionManager *auth.SessionManager,
	users store.UsersStore, masters store.MastersStore, audit store.AuditStore,
	incidentsSvc *services.IncidentsService) *Server {
	return &Server{
		cfg:            cfg,
		logger:         logger,
		policy:         policy,
		sessionManager: sessionManager,
		users:          users,
		masters:        masters,
		audit:          audit,
		incidentsSvc:   incidentsSvc,
	}
}

// Handler builds the full route tree. Exposed separately from
// ListenAndServe so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.jsonMiddleware)
	s.registerRoutes(r)
	return r
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Printf("listening on %s", s.cfg.ListenAddr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type routeHandlers struct {
	auth      *handlers.AuthHandler
	users     *handlers.UsersHandler
	incidents *handlers.IncidentsHandler
	masters   *handlers.MastersHandler
	dashboard *handlers.DashboardHandler
	logs      *handlers.LogsHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		auth:      handlers.NewAuthHandler(s.cfg, s.users, s.sessionManager, s.audit, s.logger),
		users:     handlers.NewUsersHandler(s.cfg, s.users, s.audit, s.logger),
		incidents: handlers.NewIncidentsHandler(s.incidentsSvc, s.logger, s.cfg.Incidents.ListLimit),
		masters:   handlers.NewMastersHandler(s.masters, s.audit, s.logger),
		dashboard: handlers.NewDashboardHandler(s.incidentsSvc, s.logger),
		logs:      handlers.NewLogsHandler(s.audit),
	}
}
