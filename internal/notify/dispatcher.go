// Package notify delivers committed automation notifications to external
// channels. Delivery is best effort; the in-app notification is the record.
package notify

import (
	"context"
	"strconv"

	"apptrackr/internal/common/errors"
	"apptrackr/internal/common/logger"
	"apptrackr/internal/common/metrics"
	"apptrackr/internal/models"
)

const (
	ChannelEmail = "email"
	ChannelSNS   = "sns"

	emailSubject = "Application status update"
)

type EmailSender interface {
	SendText(ctx context.Context, to, subject, body string) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, subject, message string, attrs map[string]string) error
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Dependencies wires the dispatcher. A nil Email or Events disables that
// channel.
type Dependencies struct {
	Email  EmailSender
	Events EventPublisher
	Users  UserLookup
	Logger logger.Logger
}

type Dispatcher struct {
	email  EmailSender
	events EventPublisher
	users  UserLookup
	logger logger.Logger
}

func NewDispatcher(deps Dependencies) *Dispatcher {
	return &Dispatcher{
		email:  deps.Email,
		events: deps.Events,
		users:  deps.Users,
		logger: deps.Logger.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Enabled reports whether any channel is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && (d.email != nil || d.events != nil)
}

// Dispatch sends every notification on each enabled channel and returns the
// number of successful deliveries. Failures are logged and counted only.
func (d *Dispatcher) Dispatch(ctx context.Context, notes []models.AppNotification) int {
	if !d.Enabled() || len(notes) == 0 {
		return 0
	}

	recipients := make(map[int64]string)
	delivered := 0

	for _, n := range notes {
		if d.events != nil {
			err := d.events.PublishEvent(ctx, emailSubject, n.Message, map[string]string{
				"applicationId": strconv.FormatInt(n.ApplicationID, 10),
				"userId":        strconv.FormatInt(n.UserID, 10),
			})
			if d.record(ChannelSNS, n, err) {
				delivered++
			}
		}

		if d.email != nil {
			to, ok := recipients[n.UserID]
			if !ok {
				to = d.lookupEmail(ctx, n.UserID)
				recipients[n.UserID] = to
			}
			if to == "" {
				continue
			}
			if d.record(ChannelEmail, n, d.email.SendText(ctx, to, emailSubject, n.Message)) {
				delivered++
			}
		}
	}

	return delivered
}

func (d *Dispatcher) lookupEmail(ctx context.Context, userID int64) string {
	if d.users == nil {
		return ""
	}
	user, err := d.users.GetUserByID(ctx, userID)
	if err != nil {
		metrics.NotificationsDispatched.WithLabelValues(ChannelEmail, "no_recipient").Inc()
		d.logger.Warn("Could not resolve notification recipient", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
		return ""
	}
	return user.Email
}

func (d *Dispatcher) record(channel string, n models.AppNotification, err error) bool {
	if err != nil {
		metrics.NotificationsDispatched.WithLabelValues(channel, "failure").Inc()
		d.logger.Warn("Notification delivery failed", map[string]interface{}{
			"notificationId": n.ID,
			"error":          errors.NewNotificationSendFailedError(channel, err),
		})
		return false
	}
	metrics.NotificationsDispatched.WithLabelValues(channel, "success").Inc()
	return true
}
