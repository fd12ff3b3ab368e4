package api

import (
	"encoding/json"
	"net/http"
	"time"

	"apptrackr/internal/common/errors"
	"apptrackr/internal/common/validation"
	"apptrackr/internal/models"
)

type applicationRequest struct {
	CompanyName    string  `json:"company_name"`
	RoleTitle      string  `json:"role_title"`
	City           string  `json:"city"`
	Country        string  `json:"country"`
	Salary         *string `json:"salary"`
	AppliedDate    string  `json:"applied_date"`
	FollowupDate   *string `json:"followup_date"`
	FollowedUpAt   *string `json:"followed_up_at"`
	Status         *string `json:"status"`
	FollowupMethod *string `json:"followup_method"`
	Notes          *string `json:"notes"`
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := models.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, errors.NewValidationError(field + ": " + err.Error())
	}
	return t, nil
}

func (req applicationRequest) toApplication(userID int64, now time.Time) (*models.Application, error) {
	applied, err := parseDate("applied_date", req.AppliedDate)
	if err != nil {
		return nil, err
	}
	app := &models.Application{
		UserID:         userID,
		CompanyName:    req.CompanyName,
		RoleTitle:      req.RoleTitle,
		City:           req.City,
		Country:        req.Country,
		Salary:         req.Salary,
		AppliedDate:    applied,
		FollowedUpAt:   req.FollowedUpAt,
		Status:         models.StatusPending,
		FollowupMethod: req.FollowupMethod,
		Notes:          req.Notes,
		UpdatedAt:      now,
	}
	if req.FollowupDate != nil {
		d, err := parseDate("followup_date", *req.FollowupDate)
		if err != nil {
			return nil, err
		}
		d = models.DateOf(d)
		app.FollowupDate = &d
	}
	if req.Status != nil {
		status, err := models.ParseStatus(*req.Status)
		if err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
		app.Status = status
	}
	if app.Status == models.StatusFollowedUp && app.FollowedUpAt == nil {
		stamp := models.FormatTimestamp(now)
		app.FollowedUpAt = &stamp
	}
	return app, nil
}

// decodePatch turns a validated update body into a patch. Explicit nulls
// clear nullable columns.
func decodePatch(fields map[string]json.RawMessage) (models.ApplicationPatch, error) {
	var patch models.ApplicationPatch

	str := func(key string, dst **string) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return errors.NewValidationError(key + ": " + err.Error())
		}
		*dst = &v
		return nil
	}
	nullable := func(key string, dst *models.Nullable[string]) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return errors.NewValidationError(key + ": " + err.Error())
		}
		*dst = models.Nullable[string]{Set: true, Value: v}
		return nil
	}

	for key, dst := range map[string]**string{
		"company_name": &patch.CompanyName,
		"role_title":   &patch.RoleTitle,
		"city":         &patch.City,
		"country":      &patch.Country,
	} {
		if err := str(key, dst); err != nil {
			return patch, err
		}
	}
	for key, dst := range map[string]*models.Nullable[string]{
		"salary":          &patch.Salary,
		"followed_up_at":  &patch.FollowedUpAt,
		"followup_method": &patch.FollowupMethod,
		"notes":           &patch.Notes,
	} {
		if err := nullable(key, dst); err != nil {
			return patch, err
		}
	}

	var applied *string
	if err := str("applied_date", &applied); err != nil {
		return patch, err
	}
	if applied != nil {
		t, err := parseDate("applied_date", *applied)
		if err != nil {
			return patch, err
		}
		patch.AppliedDate = &t
	}

	var followup models.Nullable[string]
	if err := nullable("followup_date", &followup); err != nil {
		return patch, err
	}
	if followup.Set {
		patch.FollowupDate.Set = true
		if followup.Value != nil {
			t, err := parseDate("followup_date", *followup.Value)
			if err != nil {
				return patch, err
			}
			d := models.DateOf(t)
			patch.FollowupDate.Value = &d
		}
	}

	var status *string
	if err := str("status", &status); err != nil {
		return patch, err
	}
	if status != nil {
		parsed, err := models.ParseStatus(*status)
		if err != nil {
			return patch, errors.NewValidationError(err.Error())
		}
		patch.Status = &parsed
	}

	return patch, nil
}

func (s *Server) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	var req applicationRequest
	if err := readValidated(r, validation.ApplicationCreateSchema, &req); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	app, err := req.toApplication(session.UserID, s.now().UTC())
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	if err := s.store.CreateApplication(r.Context(), app); err != nil {
		s.errors.WriteError(w, r, storeError("create application", err))
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.store.ListApplications(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.errors.WriteError(w, r, storeError("list applications", err))
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	app, err := s.store.GetApplication(r.Context(), sessionFrom(r.Context()).UserID, id)
	if err != nil {
		s.errors.WriteError(w, r, storeError("get application", err))
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleUpdateApp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}

	var fields map[string]json.RawMessage
	if err := readValidated(r, validation.ApplicationUpdateSchema, &fields); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	patch, err := decodePatch(fields)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}

	app, err := s.store.UpdateApplication(r.Context(), sessionFrom(r.Context()).UserID, id, patch, s.now().UTC())
	if err != nil {
		s.errors.WriteError(w, r, storeError("update application", err))
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	if err := s.store.DeleteApplication(r.Context(), sessionFrom(r.Context()).UserID, id); err != nil {
		s.errors.WriteError(w, r, storeError("delete application", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
