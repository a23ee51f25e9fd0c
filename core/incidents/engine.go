package incidents

import (
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

const (
	DefaultInitialEventTitle = "Initial report"
	defaultEventDescription  = "No detailed description provided."
	defaultInitialDesc       = "No additional description provided."
)

// Draft is the input for creating a new incident.
type Draft struct {
	Title              string
	Type               string
	Priority           Priority
	StudentID          int64
	AssignedToIDs      []int64
	Deadline           *time.Time
	IsSimple           bool
	InitialEventTitle  string
	InitialDescription string
}

// EventDraft is the input for appending a timeline event. A nil Date
// means "now".
type EventDraft struct {
	Type        EventType
	Title       string
	Description string
	Date        *time.Time
	Agreements  string
}

// EventPatch replaces the mutable fields of an existing event. A nil
// Date resets the event to "now".
type EventPatch struct {
	Type        EventType
	Title       string
	Description string
	Date        *time.Time
	Agreements  string
}

// New builds an incident from a draft. The reporter is always part of
// the responder set and authors the initial registration event. Simple
// incidents start out CLOSED.
func New(draft Draft, reporter Actor, now time.Time) (*Incident, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, ValidationError("title is required")
	}
	if draft.StudentID <= 0 {
		return nil, ValidationError("student is required")
	}
	priority := draft.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return nil, ValidationError("unknown priority " + string(priority))
	}

	assignees := make([]int64, 0, len(draft.AssignedToIDs)+1)
	seen := make(map[int64]struct{}, len(draft.AssignedToIDs)+1)
	for _, id := range draft.AssignedToIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		assignees = append(assignees, id)
	}
	if _, ok := seen[reporter.ID]; !ok {
		assignees = append(assignees, reporter.ID)
	}

	status := StatusOpen
	if draft.IsSimple {
		status = StatusClosed
	}

	initialTitle := strings.TrimSpace(draft.InitialEventTitle)
	if initialTitle == "" {
		initialTitle = DefaultInitialEventTitle
	}
	initialDesc := strings.TrimSpace(draft.InitialDescription)
	if initialDesc == "" {
		initialDesc = defaultInitialDesc
	}

	inc := &Incident{
		Title:         title,
		Type:          strings.TrimSpace(draft.Type),
		Priority:      priority,
		Status:        status,
		StudentID:     draft.StudentID,
		ReporterID:    reporter.ID,
		AssignedToIDs: assignees,
		Deadline:      draft.Deadline,
		IsSimple:      draft.IsSimple,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
		Events: []Event{{
			ID:          newEventID(),
			Type:        EventObservation,
			Title:       initialTitle,
			Description: initialDesc,
			Date:        now,
			AuthorID:    reporter.ID,
			AuthorName:  reporter.Name,
			CreatedAt:   now,
		}},
	}
	return inc, nil
}

// AppendEvent adds a timeline entry authored by the given actor. The
// incident must be OPEN. Author identity is snapshotted on the event.
func (inc *Incident) AppendEvent(draft EventDraft, author Actor, now time.Time) (*Event, error) {
	if inc.Status != StatusOpen {
		return nil, InvalidStateError("events can only be added to an open incident")
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, ValidationError("event title is required")
	}
	evType := draft.Type
	if evType == "" {
		evType = EventObservation
	}
	if !ValidEventType(evType) {
		return nil, ValidationError("unknown event type " + string(evType))
	}
	date := now
	if draft.Date != nil {
		date = *draft.Date
	}
	desc := strings.TrimSpace(draft.Description)
	if desc == "" {
		desc = defaultEventDescription
	}
	agreements := ""
	if evType == EventMeeting {
		agreements = strings.TrimSpace(draft.Agreements)
	}

	ev := Event{
		ID:          newEventID(),
		Type:        evType,
		Title:       title,
		Description: desc,
		Date:        date,
		AuthorID:    author.ID,
		AuthorName:  author.Name,
		Agreements:  agreements,
		CreatedAt:   now,
	}
	inc.Events = append(inc.Events, ev)
	inc.UpdatedAt = now
	return &ev, nil
}

// AmendEvent rewrites the mutable fields of an event in place. The id
// and author snapshot never change. The incident must be OPEN.
func (inc *Incident) AmendEvent(eventID string, patch EventPatch, now time.Time) (*Event, error) {
	if inc.Status != StatusOpen {
		return nil, InvalidStateError("events can only be edited on an open incident")
	}
	idx := -1
	for i := range inc.Events {
		if inc.Events[i].ID == eventID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, NotFoundError("event not found")
	}
	title := strings.TrimSpace(patch.Title)
	if title == "" {
		return nil, ValidationError("event title is required")
	}
	evType := patch.Type
	if evType == "" {
		evType = inc.Events[idx].Type
	}
	if !ValidEventType(evType) {
		return nil, ValidationError("unknown event type " + string(evType))
	}
	date := now
	if patch.Date != nil {
		date = *patch.Date
	}

	ev := &inc.Events[idx]
	ev.Type = evType
	ev.Title = title
	ev.Description = strings.TrimSpace(patch.Description)
	ev.Date = date
	if evType == EventMeeting {
		ev.Agreements = strings.TrimSpace(patch.Agreements)
	} else {
		ev.Agreements = ""
	}
	inc.UpdatedAt = now
	out := *ev
	return &out, nil
}

// Close transitions OPEN -> CLOSED. A regular incident needs at least
// two events; a simple one closes regardless. If the latest event is
// dated in the future its date is pulled back to now, so a case never
// closes with an outstanding future entry.
func (inc *Incident) Close(now time.Time) error {
	if inc.Status == StatusClosed {
		return InvalidStateError("incident is already closed")
	}
	if !inc.IsSimple && len(inc.Events) < 2 {
		return PreconditionError("at least two events, an opening and a closing record, are required to close a regular incident; add a resolution event or mark it simple")
	}
	if len(inc.Events) > 0 {
		latest := inc.latestEventIndex()
		if inc.Events[latest].Date.After(now) {
			inc.Events[latest].Date = now
		}
	}
	inc.Status = StatusClosed
	inc.UpdatedAt = now
	return nil
}

// Reopen transitions CLOSED -> OPEN. Reopening an already open
// incident is a no-op.
func (inc *Incident) Reopen(now time.Time) {
	if inc.Status == StatusOpen {
		return
	}
	inc.Status = StatusOpen
	inc.UpdatedAt = now
}

// Derive adds a user to the responder set. Idempotent; order of the
// existing set is preserved.
func (inc *Incident) Derive(userID int64, now time.Time) {
	for _, id := range inc.AssignedToIDs {
		if id == userID {
			return
		}
	}
	inc.AssignedToIDs = append(inc.AssignedToIDs, userID)
	inc.UpdatedAt = now
}

// SortedEvents returns the timeline in presentation order: strictly
// descending by date, ties broken by most recent insertion first. The
// stored slice stays in insertion order.
func (inc *Incident) SortedEvents() []Event {
	out := make([]Event, len(inc.Events))
	copy(out, inc.Events)
	idx := make(map[string]int, len(inc.Events))
	for i, ev := range inc.Events {
		idx[ev.ID] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return idx[out[i].ID] > idx[out[j].ID]
	})
	return out
}

// latestEventIndex picks the event Close may rewrite: max date, with
// the most recently inserted winning a tie.
func (inc *Incident) latestEventIndex() int {
	best := 0
	for i := 1; i < len(inc.Events); i++ {
		if !inc.Events[i].Date.Before(inc.Events[best].Date) {
			best = i
		}
	}
	return best
}

func newEventID() string {
	return uuid.Must(uuid.NewV4()).String()
}
