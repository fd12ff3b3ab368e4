package models

import "time"

// Session represents a bearer session held in Redis
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired checks if session has expired
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
