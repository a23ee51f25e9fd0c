package rbac

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const (
	PermIncidentsView   = "incidents.view"
	PermIncidentsCreate = "incidents.create"
	PermIncidentsEdit   = "incidents.edit"
	PermIncidentsClose  = "incidents.close"
	PermIncidentsReopen = "incidents.reopen"
	PermIncidentsDerive = "incidents.derive"
	PermDashboardView   = "dashboard.view"
	PermCalendarView    = "calendar.view"
	PermUsersList       = "users.list"
	PermUsersManage     = "users.manage"
	PermMastersManage   = "masters.manage"
	PermLogsView        = "logs.view"
)

const modelText = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// Policy answers "may this role perform this action". Per-incident
// visibility is not decided here; that stays with the incident access
// rule. This layer only gates whole feature areas.
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	staffPerms := []string{
		PermIncidentsView, PermIncidentsCreate, PermIncidentsEdit,
		PermIncidentsClose, PermIncidentsReopen, PermIncidentsDerive,
		PermDashboardView, PermCalendarView, PermUsersList,
	}
	for _, perm := range staffPerms {
		if _, err := e.AddPolicy("staff", perm); err != nil {
			return nil, err
		}
	}
	for _, perm := range []string{PermUsersManage, PermMastersManage, PermLogsView} {
		if _, err := e.AddPolicy("ADMIN", perm); err != nil {
			return nil, err
		}
	}
	for _, role := range []string{"ADMIN", "TEACHER", "PSYCHOLOGIST", "STAFF"} {
		if _, err := e.AddGroupingPolicy(role, "staff"); err != nil {
			return nil, err
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role, permission string) bool {
	ok, err := p.enforcer.Enforce(role, permission)
	return err == nil && ok
}
