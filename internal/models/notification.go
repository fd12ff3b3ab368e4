// internal/models/notification.go
package models

import "time"

// AppNotification is a user visible event created when automation moves an application.
type AppNotification struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	UserID        int64     `json:"user_id"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
	IsRead        bool      `json:"is_read"`
}

// CronLog records the last successful completion of a named job.
type CronLog struct {
	JobName string    `json:"job_name"`
	LastRun time.Time `json:"last_run"`
}
