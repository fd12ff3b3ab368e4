package models

import "time"

// Nullable carries an optional update to a nullable column. Set distinguishes
// "leave unchanged" from "set to null".
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// NullableOf is a convenience for a Nullable that sets a value.
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// ApplicationPatch lists every field a user may change on an application.
// Ownership, id and updated_at are not editable.
type ApplicationPatch struct {
	CompanyName    *string
	RoleTitle      *string
	City           *string
	Country        *string
	Salary         Nullable[string]
	AppliedDate    *time.Time
	FollowupDate   Nullable[time.Time]
	FollowedUpAt   Nullable[string]
	Status         *Status
	FollowupMethod Nullable[string]
	Notes          Nullable[string]
}

// Empty reports whether the patch changes nothing.
func (p ApplicationPatch) Empty() bool {
	return p.CompanyName == nil && p.RoleTitle == nil && p.City == nil && p.Country == nil &&
		!p.Salary.Set && p.AppliedDate == nil && !p.FollowupDate.Set && !p.FollowedUpAt.Set &&
		p.Status == nil && !p.FollowupMethod.Set && !p.Notes.Set
}

// ApplyTo writes the patch onto app. Moving into followed-up stamps
// followed_up_at with now unless the patch provides one, replacing any stamp
// left from an earlier follow-up.
func (p ApplicationPatch) ApplyTo(app *Application, now time.Time) {
	if p.CompanyName != nil {
		app.CompanyName = *p.CompanyName
	}
	if p.RoleTitle != nil {
		app.RoleTitle = *p.RoleTitle
	}
	if p.City != nil {
		app.City = *p.City
	}
	if p.Country != nil {
		app.Country = *p.Country
	}
	if p.Salary.Set {
		app.Salary = p.Salary.Value
	}
	if p.AppliedDate != nil {
		app.AppliedDate = *p.AppliedDate
	}
	if p.FollowupDate.Set {
		app.FollowupDate = p.FollowupDate.Value
	}
	if p.FollowedUpAt.Set {
		app.FollowedUpAt = p.FollowedUpAt.Value
	}
	if p.FollowupMethod.Set {
		app.FollowupMethod = p.FollowupMethod.Value
	}
	if p.Notes.Set {
		app.Notes = p.Notes.Value
	}
	if p.Status != nil {
		if *p.Status == StatusFollowedUp && app.Status != StatusFollowedUp && !p.FollowedUpAt.Set {
			stamp := FormatTimestamp(now)
			app.FollowedUpAt = &stamp
		}
		app.Status = *p.Status
	}
	app.UpdatedAt = now
}
