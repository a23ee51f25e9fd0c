package incidents

// CanAccess is the single visibility rule for incidents. ADMIN sees
// everything; everyone else sees only incidents they reported or were
// derived onto. Event visibility follows the parent incident.
func CanAccess(user Actor, inc *Incident) bool {
	if user.Role == RoleAdmin {
		return true
	}
	if inc.ReporterID == user.ID {
		return true
	}
	for _, id := range inc.AssignedToIDs {
		if id == user.ID {
			return true
		}
	}
	return false
}
