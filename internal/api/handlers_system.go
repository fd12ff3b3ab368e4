package api

import (
	"net/http"

	"apptrackr/internal/automation"
	"apptrackr/internal/common/errors"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
		return
	}
	backends, ok := s.health.Check(r.Context())
	status, code := "ready", http.StatusOK
	if !ok {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{"status": status, "backends": backends})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unread") == "true"
	notes, err := s.store.ListNotifications(r.Context(), sessionFrom(r.Context()).UserID, unread)
	if err != nil {
		s.errors.WriteError(w, r, storeError("list notifications", err))
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.MarkNotificationsRead(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.errors.WriteError(w, r, storeError("mark notifications read", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// handleRunPass runs an on-demand pass limited to the caller's applications.
func (s *Server) handleRunPass(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	result, err := s.passes.Trigger(r.Context(), automation.SingleUser(session.UserID))
	if err != nil {
		s.errors.WriteError(w, r, errors.NewAutomationFailedError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": result.Processed})
}

func (s *Server) handleCronStatus(w http.ResponseWriter, r *http.Request) {
	last, ok, err := s.store.LastRun(r.Context(), s.jobName)
	if err != nil {
		s.errors.WriteError(w, r, storeError("read cron log", err))
		return
	}
	resp := map[string]interface{}{"job_name": s.jobName, "last_run": nil}
	if ok {
		resp["last_run"] = last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountByStatus(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.errors.WriteError(w, r, storeError("count applications", err))
		return
	}

	byStatus := make(map[string]int, len(counts))
	total := 0
	for status, n := range counts {
		byStatus[string(status)] = n
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applications_total":     total,
		"applications_by_status": byStatus,
	})
}
