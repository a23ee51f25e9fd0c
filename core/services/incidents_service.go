package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"educontrol/core/incidents"
	"educontrol/core/store"
	"educontrol/core/utils"
)

// IncidentsService wraps the pure incident engine with persistence,
// visibility filtering and audit. Every mutation goes through
// load -> transform -> Save so the store's version check can reject
// concurrent writers.
type IncidentsService struct {
	incidents store.IncidentsStore
	users     store.UsersStore
	masters   store.MastersStore
	audit     store.AuditStore
	logger    *utils.Logger

	defaultEventTitle string
}

func NewIncidentsService(inc store.IncidentsStore, users store.UsersStore, masters store.MastersStore,
	audit store.AuditStore, logger *utils.Logger, defaultEventTitle string) *IncidentsService {
	return &IncidentsService{
		incidents:         inc,
		users:             users,
		masters:           masters,
		audit:             audit,
		logger:            logger,
		defaultEventTitle: defaultEventTitle,
	}
}

// List returns every incident the actor may see, newest first.
func (s *IncidentsService) List(ctx context.Context, actor incidents.Actor) ([]incidents.Incident, error) {
	all, err := s.incidents.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]incidents.Incident, 0, len(all))
	for i := range all {
		if incidents.CanAccess(actor, &all[i]) {
			visible = append(visible, all[i])
		}
	}
	return visible, nil
}

// Get hides inaccessible incidents behind the same error as missing
// ones so callers cannot probe for existence.
func (s *IncidentsService) Get(ctx context.Context, actor incidents.Actor, id int64) (*incidents.Incident, error) {
	inc, err := s.incidents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc == nil {
		return nil, incidents.NotFoundError("incident not found")
	}
	if !incidents.CanAccess(actor, inc) {
		return nil, incidents.ForbiddenError("incident not found")
	}
	return inc, nil
}

func (s *IncidentsService) Create(ctx context.Context, actor incidents.Actor, draft incidents.Draft) (*incidents.Incident, error) {
	student, err := s.masters.GetStudent(ctx, draft.StudentID)
	if err != nil {
		return nil, err
	}
	if draft.StudentID > 0 && student == nil {
		return nil, incidents.NotFoundError("student not found")
	}
	if draft.InitialEventTitle == "" {
		draft.InitialEventTitle = s.defaultEventTitle
	}
	inc, err := incidents.New(draft, actor, utils.NowUTC())
	if err != nil {
		return nil, err
	}
	if _, err := s.incidents.Create(ctx, inc); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "incidents.create", inc.ID)
	return inc, nil
}

func (s *IncidentsService) AddEvent(ctx context.Context, actor incidents.Actor, incidentID int64, draft incidents.EventDraft) (*incidents.Event, error) {
	inc, err := s.Get(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	ev, err := inc.AppendEvent(draft, actor, utils.NowUTC())
	if err != nil {
		return nil, err
	}
	if err := s.incidents.Save(ctx, inc); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "incidents.event.add", inc.ID)
	return ev, nil
}

func (s *IncidentsService) EditEvent(ctx context.Context, actor incidents.Actor, incidentID int64, eventID string, patch incidents.EventPatch) (*incidents.Event, error) {
	inc, err := s.Get(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	ev, err := inc.AmendEvent(eventID, patch, utils.NowUTC())
	if err != nil {
		return nil, err
	}
	if err := s.incidents.Save(ctx, inc); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "incidents.event.edit", inc.ID)
	return ev, nil
}

func (s *IncidentsService) Close(ctx context.Context, actor incidents.Actor, incidentID int64) (*incidents.Incident, error) {
	inc, err := s.Get(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	if err := inc.Close(utils.NowUTC()); err != nil {
		return nil, err
	}
	if err := s.incidents.Save(ctx, inc); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "incidents.close", inc.ID)
	return inc, nil
}

func (s *IncidentsService) Reopen(ctx context.Context, actor incidents.Actor, incidentID int64) (*incidents.Incident, error) {
	inc, err := s.Get(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	if inc.Status == incidents.StatusOpen {
		return inc, nil
	}
	inc.Reopen(utils.NowUTC())
	if err := s.incidents.Save(ctx, inc); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "incidents.reopen", inc.ID)
	return inc, nil
}

// Derive adds a staff member to the responder set. The target must be
// a known active user; deriving someone already present is a no-op.
func (s *IncidentsService) Derive(ctx context.Context, actor incidents.Actor, incidentID, targetUserID int64) (*incidents.Incident, error) {
	inc, err := s.Get(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	target, err := s.users.Get(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, incidents.NotFoundError("user not found")
	}
	before := len(inc.AssignedToIDs)
	inc.Derive(targetUserID, utils.NowUTC())
	if len(inc.AssignedToIDs) == before {
		return inc, nil
	}
	if err := s.incidents.Save(ctx, inc); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "incidents.derive", inc.ID)
	return inc, nil
}

const (
	recentIncidentsLimit = 5
	upcomingEventsLimit  = 4
)

// RecentIncident is the summary card shown on the dashboard.
type RecentIncident struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	Type      string             `json:"type"`
	Priority  incidents.Priority `json:"priority"`
	Status    incidents.Status   `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

// Stats aggregates the actor's visible incidents for the dashboard:
// the four stat cards, the five most recent incidents and the next
// four future-dated events.
type Stats struct {
	Open       int              `json:"open"`
	Urgent     int              `json:"urgent"`
	Assigned   int              `json:"assigned"`
	Total      int              `json:"total"`
	ByStatus   map[string]int   `json:"by_status"`
	ByPriority map[string]int   `json:"by_priority"`
	Overdue    int              `json:"overdue"`
	Recent     []RecentIncident `json:"recent"`
	Upcoming   []CalendarEntry  `json:"upcoming"`
}

func (s *IncidentsService) Stats(ctx context.Context, actor incidents.Actor) (*Stats, error) {
	visible, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	now := utils.NowUTC()
	st := &Stats{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		Recent:     []RecentIncident{},
		Upcoming:   []CalendarEntry{},
	}
	for i := range visible {
		inc := &visible[i]
		st.Total++
		st.ByStatus[string(inc.Status)]++
		st.ByPriority[string(inc.Priority)]++
		if inc.Status == incidents.StatusOpen {
			st.Open++
			if inc.Priority == incidents.PriorityUrgent {
				st.Urgent++
			}
			if inc.Deadline != nil && inc.Deadline.Before(now) {
				st.Overdue++
			}
		}
		for _, id := range inc.AssignedToIDs {
			if id == actor.ID {
				st.Assigned++
				break
			}
		}
		if len(st.Recent) < recentIncidentsLimit {
			st.Recent = append(st.Recent, RecentIncident{
				ID:        inc.ID,
				Title:     inc.Title,
				Type:      inc.Type,
				Priority:  inc.Priority,
				Status:    inc.Status,
				CreatedAt: inc.CreatedAt,
			})
		}
		// SortedEvents is newest first, so future events sit at the
		// front of the slice.
		for _, ev := range inc.SortedEvents() {
			if !ev.Date.After(now) {
				break
			}
			st.Upcoming = append(st.Upcoming, CalendarEntry{
				IncidentID:    inc.ID,
				IncidentTitle: inc.Title,
				Event:         ev,
				Status:        inc.Status,
			})
		}
	}
	sort.SliceStable(st.Upcoming, func(i, j int) bool {
		return st.Upcoming[i].Event.Date.Before(st.Upcoming[j].Event.Date)
	})
	if len(st.Upcoming) > upcomingEventsLimit {
		st.Upcoming = st.Upcoming[:upcomingEventsLimit]
	}
	return st, nil
}

// CalendarEntry is a flattened timeline event for the calendar view.
// Visibility follows the parent incident.
type CalendarEntry struct {
	IncidentID    int64            `json:"incident_id"`
	IncidentTitle string           `json:"incident_title"`
	Event         incidents.Event  `json:"event"`
	Status        incidents.Status `json:"status"`
}

func (s *IncidentsService) Calendar(ctx context.Context, actor incidents.Actor, from, to time.Time) ([]CalendarEntry, error) {
	visible, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	var out []CalendarEntry
	for i := range visible {
		inc := &visible[i]
		for _, ev := range inc.SortedEvents() {
			if ev.Date.Before(from) || ev.Date.After(to) {
				continue
			}
			out = append(out, CalendarEntry{
				IncidentID:    inc.ID,
				IncidentTitle: inc.Title,
				Event:         ev,
				Status:        inc.Status,
			})
		}
	}
	return out, nil
}

func (s *IncidentsService) record(ctx context.Context, actor incidents.Actor, action string, incidentID int64) {
	if err := s.audit.Append(ctx, actor.Name, action, fmt.Sprintf("incident=%d", incidentID)); err != nil {
		s.logger.Errorf("audit append: %v", err)
	}
}
