// internal/models/application.go
package models

import (
	"fmt"
	"time"
)

// Status is the controlling state of an application.
type Status string

const (
	StatusPending      Status = "pending"
	StatusActive       Status = "active"
	StatusFollowedUp   Status = "followed-up"
	StatusNotResponded Status = "not-responded"
	StatusRejected     Status = "rejected"
	StatusAccepted     Status = "accepted"
)

// Statuses lists the full vocabulary in display order.
var Statuses = []Status{
	StatusPending,
	StatusActive,
	StatusFollowedUp,
	StatusNotResponded,
	StatusRejected,
	StatusAccepted,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether automation must leave the status alone.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusAccepted
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown application status %q", raw)
	}
	return s, nil
}

// Application is a tracked job application.
type Application struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	CompanyName    string     `json:"company_name"`
	RoleTitle      string     `json:"role_title"`
	City           string     `json:"city"`
	Country        string     `json:"country"`
	Salary         *string    `json:"salary"` // free-form: "Comp", "Unknown", "900000"
	AppliedDate    time.Time  `json:"applied_date"`
	FollowupDate   *time.Time `json:"followup_date"`
	FollowedUpAt   *string    `json:"followed_up_at"` // stored as text, see ParseTimestamp
	Status         Status     `json:"status"`
	FollowupMethod *string    `json:"followup_method"`
	Notes          *string    `json:"notes"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Label is the "{company} - {role}" text used in notification messages.
func (a *Application) Label() string {
	return a.CompanyName + " - " + a.RoleTitle
}
