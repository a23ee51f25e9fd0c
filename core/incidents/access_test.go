package incidents

import "testing"

func TestCanAccess(t *testing.T) {
	inc := &Incident{ID: 9, ReporterID: 1, AssignedToIDs: []int64{1, 2}}

	cases := []struct {
		name string
		user Actor
		want bool
	}{
		{"admin sees everything", Actor{ID: 99, Role: RoleAdmin}, true},
		{"reporter", Actor{ID: 1, Role: RoleTeacher}, true},
		{"assignee", Actor{ID: 2, Role: RolePsychologist}, true},
		{"outsider", Actor{ID: 3, Role: RoleTeacher}, false},
		{"outsider staff", Actor{ID: 4, Role: RoleStaff}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccess(tc.user, inc); got != tc.want {
				t.Fatalf("CanAccess = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanAccessReporterOutsideAssignees(t *testing.T) {
	// The reporter keeps access even when absent from the responder set.
	inc := &Incident{ID: 9, ReporterID: 7, AssignedToIDs: []int64{2}}
	if !CanAccess(Actor{ID: 7, Role: RoleTeacher}, inc) {
		t.Fatal("reporter must always access their incident")
	}
}
