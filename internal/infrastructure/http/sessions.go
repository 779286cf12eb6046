// Package http - sessions.go serves the requirement session endpoints.
package http

import (
	"net/http"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

type newSessionRequest struct {
	Title string `json:"title"`
}

type turnRequest struct {
	Input    string `json:"input"`
	Question string `json:"question"`
	Model    string `json:"model"`
}

// turnResponse carries the session alongside the engine result. The
// session is present even when the provider call failed.
type turnResponse struct {
	Session *entities.RequirementSession `json:"session,omitempty"`
	Result  any                          `json:"result,omitempty"`
	Error   string                       `json:"error,omitempty"`
}

func writeTurn(w http.ResponseWriter, s *entities.RequirementSession, result any, err error) {
	if err != nil && s == nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	resp := turnResponse{Session: s, Result: result}
	if err != nil {
		status = statusFor(err)
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.workflow.Sessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*entities.RequirementSession{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	session, err := s.workflow.NewSession(r.Context(), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.workflow.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	session, res, err := s.workflow.Submit(r.Context(), r.PathValue("id"), req.Input, req.Model)
	writeTurn(w, session, res, err)
}

func (s *Server) handleClarify(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	session, res, err := s.workflow.Clarify(r.Context(), r.PathValue("id"), req.Question, req.Model)
	writeTurn(w, session, res, err)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	session, res, err := s.workflow.Review(r.Context(), r.PathValue("id"), req.Model)
	writeTurn(w, session, res, err)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	session, err := s.workflow.BackToEnhance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleImprovements(w http.ResponseWriter, r *http.Request) {
	report, err := s.workflow.Improvements(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHighlighted(w http.ResponseWriter, r *http.Request) {
	text, err := s.workflow.Highlighted(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"highlighted": text})
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSmartQuestions(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"questions": s.enhancer.SmartQuestions(r.Context(), req.Text),
	})
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.enhancer.Assess(req.Text))
}

func (s *Server) handleGuidelines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reviewer.Guidelines())
}
