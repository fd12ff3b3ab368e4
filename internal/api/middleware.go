package api

import (
	"context"
	"net/http"
	"strings"

	"apptrackr/internal/models"
)

type sessionKey struct{}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// requireAuth resolves the bearer token and stores the session on the request
// context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			s.errors.WriteError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	}
}

func sessionFrom(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey{}).(*models.Session)
	return session
}
