package automation

import (
	"fmt"

	"apptrackr/internal/models"
)

// Transition is one of the status changes the engine is allowed to make.
// The set is closed; anything else is a user edit.
type Transition int

const (
	// FollowUpDue moves an active application back to pending once its
	// follow-up date has arrived.
	FollowUpDue Transition = iota + 1
	// NoResponse marks a followed-up application as not responded once the
	// grace period has elapsed.
	NoResponse
)

type transitionDef struct {
	name    string
	from    models.Status
	to      models.Status
	message string
}

var transitionDefs = map[Transition]transitionDef{
	FollowUpDue: {
		name:    "followup_due",
		from:    models.StatusActive,
		to:      models.StatusPending,
		message: "Follow-up date reached for %s",
	},
	NoResponse: {
		name:    "no_response",
		from:    models.StatusFollowedUp,
		to:      models.StatusNotResponded,
		message: "No response from %s",
	},
}

func (t Transition) def() transitionDef {
	def, ok := transitionDefs[t]
	if !ok {
		panic(fmt.Sprintf("automation: unknown transition %d", int(t)))
	}
	return def
}

// Name is the metric and log label of the transition.
func (t Transition) Name() string { return t.def().name }

// From is the status a row must hold for the transition to apply.
func (t Transition) From() models.Status { return t.def().from }

// To is the status the transition writes.
func (t Transition) To() models.Status { return t.def().to }

// Message renders the notification text for app.
func (t Transition) Message(app *models.Application) string {
	return fmt.Sprintf(t.def().message, app.Label())
}

func (t Transition) String() string {
	def, ok := transitionDefs[t]
	if !ok {
		return fmt.Sprintf("Transition(%d)", int(t))
	}
	return def.name
}
