package api

import (
	"net/http"

	"apptrackr/internal/common/validation"
)

type signupRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := readValidated(r, validation.SignupSchema, &req); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}

	user, err := s.auth.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readValidated(r, validation.LoginSchema, &req); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}

	out, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
