package incidents

import "time"

type Status string

const (
	StatusOpen          Status = "OPEN"
	StatusClosed        Status = "CLOSED"
	StatusPendingReview Status = "PENDING_REVIEW"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type EventType string

const (
	EventObservation EventType = "OBSERVATION"
	EventMeeting     EventType = "MEETING"
	EventCall        EventType = "CALL"
	EventFollowUp    EventType = "FOLLOW_UP"
	EventResolution  EventType = "RESOLUTION"
)

func ValidEventType(t EventType) bool {
	switch t {
	case EventObservation, EventMeeting, EventCall, EventFollowUp, EventResolution:
		return true
	}
	return false
}

// Event is one timestamped, authored entry in an incident's timeline.
// AuthorID and AuthorName are snapshotted at authoring time and never
// change afterwards, even if the author's profile does.
type Event struct {
	ID              string    `json:"id"`
	Type            EventType `json:"type"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            time.Time `json:"date"`
	AuthorID        int64     `json:"author_id"`
	AuthorName      string    `json:"author_name"`
	Agreements      string    `json:"agreements,omitempty"`
	ReportGenerated bool      `json:"report_generated"`
	CreatedAt       time.Time `json:"created_at"`
}

// Incident is the aggregate root. Events are owned exclusively by the
// incident and kept in insertion order; AssignedToIDs is an
// insertion-ordered set that always contains ReporterID.
type Incident struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Type          string     `json:"type"`
	Priority      Priority   `json:"priority"`
	Status        Status     `json:"status"`
	StudentID     int64      `json:"student_id"`
	ReporterID    int64      `json:"reporter_id"`
	AssignedToIDs []int64    `json:"assigned_to_ids"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	IsSimple      bool       `json:"is_simple"`
	Events        []Event    `json:"events"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Version       int64      `json:"version"`
}

// Actor identifies the user performing an operation.
type Actor struct {
	ID   int64
	Name string
	Role string
}

const (
	RoleAdmin        = "ADMIN"
	RoleTeacher      = "TEACHER"
	RolePsychologist = "PSYCHOLOGIST"
	RoleStaff        = "STAFF"
)

func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleTeacher, RolePsychologist, RoleStaff:
		return true
	}
	return false
}
