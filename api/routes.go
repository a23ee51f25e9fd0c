package api

import (
	"educontrol/core/rbac"

	"github.com/go-chi/chi/v5"
)

func (s *Server) registerRoutes(r chi.Router) {
	h := s.newRouteHandlers()

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Route("/auth", func(authRouter chi.Router) {
			authRouter.MethodFunc("POST", "/login", h.auth.Login)
			authRouter.MethodFunc("POST", "/logout", s.withSession(h.auth.Logout))
			authRouter.MethodFunc("GET", "/me", s.withSession(h.auth.Me))
		})

		apiRouter.Route("/users", func(usersRouter chi.Router) {
			usersRouter.MethodFunc("GET", "/", s.sessionPerm(rbac.PermUsersList, h.users.List))
			usersRouter.MethodFunc("POST", "/", s.sessionPerm(rbac.PermUsersManage, h.users.Create))
			usersRouter.MethodFunc("PUT", "/{id:[0-9]+}/assignments", s.sessionPerm(rbac.PermUsersManage, h.users.SetAssignments))
		})

		apiRouter.Route("/incidents", func(incidentsRouter chi.Router) {
			incidentsRouter.MethodFunc("GET", "/", s.sessionPerm(rbac.PermIncidentsView, h.incidents.List))
			incidentsRouter.MethodFunc("POST", "/", s.sessionPerm(rbac.PermIncidentsCreate, h.incidents.Create))
			incidentsRouter.MethodFunc("GET", "/{id:[0-9]+}", s.sessionPerm(rbac.PermIncidentsView, h.incidents.Get))
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/events", s.sessionPerm(rbac.PermIncidentsEdit, h.incidents.AddEvent))
			incidentsRouter.MethodFunc("PUT", "/{id:[0-9]+}/events/{event_id}", s.sessionPerm(rbac.PermIncidentsEdit, h.incidents.EditEvent))
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/close", s.sessionPerm(rbac.PermIncidentsClose, h.incidents.Close))
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/reopen", s.sessionPerm(rbac.PermIncidentsReopen, h.incidents.Reopen))
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/derive", s.sessionPerm(rbac.PermIncidentsDerive, h.incidents.Derive))
		})

		apiRouter.MethodFunc("GET", "/dashboard/stats", s.sessionPerm(rbac.PermDashboardView, h.dashboard.Stats))
		apiRouter.MethodFunc("GET", "/calendar/events", s.sessionPerm(rbac.PermCalendarView, h.dashboard.Calendar))

		apiRouter.Route("/masters", func(mastersRouter chi.Router) {
			mastersRouter.MethodFunc("GET", "/grades", s.sessionPerm(rbac.PermIncidentsView, h.masters.ListGrades))
			mastersRouter.MethodFunc("POST", "/grades", s.sessionPerm(rbac.PermMastersManage, h.masters.CreateGrade))
			mastersRouter.MethodFunc("DELETE", "/grades/{id:[0-9]+}", s.sessionPerm(rbac.PermMastersManage, h.masters.DeleteGrade))
			mastersRouter.MethodFunc("GET", "/courses", s.sessionPerm(rbac.PermIncidentsView, h.masters.ListCourses))
			mastersRouter.MethodFunc("POST", "/courses", s.sessionPerm(rbac.PermMastersManage, h.masters.CreateCourse))
			mastersRouter.MethodFunc("DELETE", "/courses/{id:[0-9]+}", s.sessionPerm(rbac.PermMastersManage, h.masters.DeleteCourse))
			mastersRouter.MethodFunc("GET", "/students", s.sessionPerm(rbac.PermIncidentsView, h.masters.ListStudents))
			mastersRouter.MethodFunc("POST", "/students", s.sessionPerm(rbac.PermMastersManage, h.masters.CreateStudent))
			mastersRouter.MethodFunc("PUT", "/students/{id:[0-9]+}", s.sessionPerm(rbac.PermMastersManage, h.masters.UpdateStudent))
			mastersRouter.MethodFunc("DELETE", "/students/{id:[0-9]+}", s.sessionPerm(rbac.PermMastersManage, h.masters.DeleteStudent))
		})

		apiRouter.MethodFunc("GET", "/logs", s.sessionPerm(rbac.PermLogsView, h.logs.List))
	})
}
