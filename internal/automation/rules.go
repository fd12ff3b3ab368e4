package automation

import (
	"errors"
	"fmt"
	"time"

	"apptrackr/internal/models"
)

// ErrMissingFollowedUpAt marks a followed-up row that has no follow-up timestamp.
var ErrMissingFollowedUpAt = errors.New("followed_up_at is not set")

// rule pairs a transition with the predicate that decides whether a
// candidate row is due. A predicate error skips that row only.
type rule struct {
	transition Transition
	due        func(app *models.Application, now time.Time) (bool, error)
}

func followUpDueRule() rule {
	return rule{
		transition: FollowUpDue,
		due: func(app *models.Application, now time.Time) (bool, error) {
			if app.FollowupDate == nil {
				return false, nil
			}
			return !models.DateOf(*app.FollowupDate).After(models.DateOf(now)), nil
		},
	}
}

func noResponseRule(grace time.Duration) rule {
	return rule{
		transition: NoResponse,
		due: func(app *models.Application, now time.Time) (bool, error) {
			if app.FollowedUpAt == nil {
				return false, ErrMissingFollowedUpAt
			}
			followedUpAt, err := models.ParseTimestamp(*app.FollowedUpAt)
			if err != nil {
				return false, fmt.Errorf("followed_up_at: %w", err)
			}
			return now.Sub(followedUpAt) >= grace, nil
		},
	}
}
