package rbac

import "testing"

func TestPolicyAllowed(t *testing.T) {
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	for _, role := range []string{"ADMIN", "TEACHER", "PSYCHOLOGIST", "STAFF"} {
		if !p.Allowed(role, PermIncidentsView) {
			t.Errorf("%s should view incidents", role)
		}
		if !p.Allowed(role, PermIncidentsCreate) {
			t.Errorf("%s should create incidents", role)
		}
		if !p.Allowed(role, PermCalendarView) {
			t.Errorf("%s should view the calendar", role)
		}
	}

	for _, perm := range []string{PermMastersManage, PermUsersManage, PermLogsView} {
		if !p.Allowed("ADMIN", perm) {
			t.Errorf("ADMIN should hold %s", perm)
		}
		for _, role := range []string{"TEACHER", "PSYCHOLOGIST", "STAFF"} {
			if p.Allowed(role, perm) {
				t.Errorf("%s must not hold %s", role, perm)
			}
		}
	}

	if p.Allowed("UNKNOWN", PermIncidentsView) {
		t.Error("unknown role must not be granted anything")
	}
}
