package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.chats.ListSessions(chi.URLParam(r, "projectID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string `json:"title"`
		TaskID string `json:"taskId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, err := s.chats.CreateSession(chi.URLParam(r, "projectID"), req.Title, req.TaskID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.chats.GetSession(chi.URLParam(r, "projectID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	err := s.chats.DeleteSession(chi.URLParam(r, "projectID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleSubmitMessage accepts a user message and responds as soon as the
// message pair is persisted; the gateway turnaround happens in the
// background and is observed by re-fetching the session.
func (s *Server) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
		TaskID  string `json:"taskId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "message content required")
		return
	}

	result, err := s.engine.Submit(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "sessionID"), req.Content, req.TaskID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGatewayStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.gw.Health(r.Context()))
}
