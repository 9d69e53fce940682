package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is what happened.
type Action string

const (
	ActionLogin        Action = "login"
	ActionLoginFailed  Action = "login_failed"
	ActionSetProgress  Action = "set_progress"
	ActionSetStatus    Action = "set_status"
	ActionAddUpdate    Action = "add_update"
	ActionDeleteUpdate Action = "delete_update"
	ActionAddComment   Action = "add_comment"
	ActionExport       Action = "export"
	ActionResetState   Action = "reset_state"
)

// Actor identifies who acted. The dashboard has one shared passphrase, so
// actors are roles rather than people.
type Actor string

const (
	ActorAdmin  Actor = "admin"
	ActorPublic Actor = "public"
	ActorCLI    Actor = "cli"
)

// Event is one audit log entry.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	Actor        Actor     `json:"actor"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Description  string    `json:"description,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
}

// NewEvent creates an event stamped with now.
// PRE: action and actor are non-empty
// POST: Returns an Event with a fresh random ID
func NewEvent(actor Actor, action Action, now time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Action:    action,
		Actor:     actor,
	}
}

// WithResource sets what the action touched, e.g. ("category", "2").
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets a human-readable summary.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithIP records the client address.
func (e Event) WithIP(ip string) Event {
	e.IPAddress = ip
	return e
}
