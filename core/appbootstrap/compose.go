package appbootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"educontrol/api"
	"educontrol/config"
	"educontrol/core/auth"
	"educontrol/core/rbac"
	"educontrol/core/reminders"
	"educontrol/core/services"
	"educontrol/core/store"
	"educontrol/core/utils"
)

// App holds every composed dependency. Compose wires the whole tree
// once; nothing constructs its own collaborators after that.
type App struct {
	Cfg    *config.AppConfig
	Logger *utils.Logger
	DB     *sql.DB

	Users     store.UsersStore
	Masters   store.MastersStore
	Sessions  store.SessionsStore
	Audit     store.AuditStore
	Incidents store.IncidentsStore

	Policy         *rbac.Policy
	SessionManager *auth.SessionManager
	IncidentsSvc   *services.IncidentsService
	Server         *api.Server
	Reminders      *reminders.Scheduler
}

func Compose(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := utils.NewLogger()

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	users := store.NewUsersStore(db)
	masters := store.NewMastersStore(db)
	sessions := store.NewSessionsStore(db)
	audit := store.NewAuditStore(db)
	incidentsStore := store.NewIncidentsStore(db)

	policy, err := rbac.NewPolicy()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("rbac policy: %w", err)
	}
	sessionManager := auth.NewSessionManager(sessions, users, cfg.EffectiveSessionTTL(), logger)
	incidentsSvc := services.NewIncidentsService(incidentsStore, users, masters, audit, logger, cfg.Incidents.DefaultEventTitle)
	server := api.NewServer(cfg, logger, policy, sessionManager, users, masters, audit, incidentsSvc)
	scheduler := reminders.NewScheduler(cfg.Reminders, incidentsStore, sessions, audit, logger)

	return &App{
		Cfg:            cfg,
		Logger:         logger,
		DB:             db,
		Users:          users,
		Masters:        masters,
		Sessions:       sessions,
		Audit:          audit,
		Incidents:      incidentsStore,
		Policy:         policy,
		SessionManager: sessionManager,
		IncidentsSvc:   incidentsSvc,
		Server:         server,
		Reminders:      scheduler,
	}, nil
}

func (a *App) Close() error {
	if a.Reminders != nil {
		a.Reminders.Stop()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
