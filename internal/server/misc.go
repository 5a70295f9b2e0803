package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/openclaw/board/internal/activity"
)

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"activities": s.activity.List()})
}

func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	var entry activity.Entry
	if err := decodeJSON(r, &entry); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	recorded := s.activity.Record(entry)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"activity": recorded,
	})
}

type agentStatus struct {
	Status    string    `json:"status"`
	Task      *string   `json:"task"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) agentStatusPath() string {
	return filepath.Join(s.dataDir, "agent-status.json")
}

func (s *Server) handleGetAgentStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := os.ReadFile(s.agentStatusPath())
	if err == nil {
		var status agentStatus
		if json.Unmarshal(raw, &status) == nil {
			respondJSON(w, http.StatusOK, status)
			return
		}
	}
	respondJSON(w, http.StatusOK, agentStatus{Status: "available", UpdatedAt: time.Now()})
}

func (s *Server) handleSetAgentStatus(w http.ResponseWriter, r *http.Request) {
	var req agentStatus
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status == "" {
		req.Status = "available"
	}
	req.UpdatedAt = time.Now()

	raw, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if err := os.WriteFile(s.agentStatusPath(), raw, 0o644); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"status":    req.Status,
		"task":      req.Task,
		"updatedAt": req.UpdatedAt,
	})
}
