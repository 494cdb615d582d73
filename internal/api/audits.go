package api

import (
	"net/http"

	"github.com/finops-claw-gang/eventcheck-go/internal/agui"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/querier"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/versioning"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
)

// requireQuerier answers 503 when the server runs without Temporal.
func (s *Server) requireQuerier(w http.ResponseWriter) bool {
	if s.querier == nil {
		writeError(w, http.StatusServiceUnavailable, "audits not configured")
		return false
	}
	return true
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	if !s.requireQuerier(w) {
		return
	}
	opts := querier.ListOptions{
		TaskQueue:    versioning.QueueAudit,
		StatusFilter: r.URL.Query().Get("status"),
	}

	audits, err := s.querier.ListAudits(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, audits)
}

func (s *Server) handleStartAudit(w http.ResponseWriter, r *http.Request) {
	if !s.requireQuerier(w) {
		return
	}
	var input workflows.AuditInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := querier.ValidateAuditInput(input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.querier.StartAudit(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, summary)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	if !s.requireQuerier(w) {
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "audit id required")
		return
	}

	result, err := s.querier.GetAuditState(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStopAudit(w http.ResponseWriter, r *http.Request) {
	if !s.requireQuerier(w) {
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "audit id required")
		return
	}

	var req workflows.StopRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.By == "" {
		req.By = UserFromContext(r.Context())
	}
	if req.By == "" {
		writeError(w, http.StatusBadRequest, "'by' field is required")
		return
	}

	result, err := s.querier.StopAudit(r.Context(), id, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

// handleStreamAudit streams audit progress as AG-UI server-sent events.
func (s *Server) handleStreamAudit(w http.ResponseWriter, r *http.Request) {
	if !s.requireQuerier(w) {
		return
	}
	agui.StreamHandler(s.querier, s.stream)(w, r)
}
