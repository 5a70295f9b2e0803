package server

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/board/internal/logger"
)

// contextFile is an agent configuration file the UI may edit. Only files on
// this list are reachable through the API.
type contextFile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var contextFiles = []contextFile{
	{Name: "MEMORY.md", Description: "Long-term memory & notes"},
	{Name: "AGENTS.md", Description: "Agent behavior rules"},
	{Name: "SOUL.md", Description: "Personality & values"},
	{Name: "USER.md", Description: "Information about the user"},
	{Name: "TOOLS.md", Description: "Tool configuration & notes"},
	{Name: "IDENTITY.md", Description: "Name, vibe, avatar"},
	{Name: "HEARTBEAT.md", Description: "Periodic tasks"},
}

func allowedContextFile(name string) *contextFile {
	for i := range contextFiles {
		if contextFiles[i].Name == name {
			return &contextFiles[i]
		}
	}
	return nil
}

func (s *Server) handleListContextFiles(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		contextFile
		Exists     bool   `json:"exists"`
		Size       int64  `json:"size"`
		ModifiedAt string `json:"modifiedAt,omitempty"`
	}
	out := make([]entry, 0, len(contextFiles))
	for _, cf := range contextFiles {
		e := entry{contextFile: cf}
		if info, err := os.Stat(filepath.Join(s.workspaceDir, cf.Name)); err == nil {
			e.Exists = true
			e.Size = info.Size()
			e.ModifiedAt = info.ModTime().Format(time.RFC3339)
		}
		out = append(out, e)
	}
	respondJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleGetContextFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	allowed := allowedContextFile(name)
	if allowed == nil {
		respondError(w, http.StatusForbidden, "file not allowed")
		return
	}

	path := filepath.Join(s.workspaceDir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			respondJSON(w, http.StatusOK, map[string]any{
				"name":        name,
				"description": allowed.Description,
				"content":     "",
				"exists":      false,
			})
			return
		}
		respondStoreError(w, err)
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"name":        name,
		"description": allowed.Description,
		"content":     string(raw),
		"size":        info.Size(),
		"modifiedAt":  info.ModTime().Format(time.RFC3339),
	})
}

func (s *Server) handlePutContextFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if allowedContextFile(name) == nil {
		respondError(w, http.StatusForbidden, "file not allowed")
		return
	}
	var req struct {
		Content *string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Content == nil {
		respondError(w, http.StatusBadRequest, "content required")
		return
	}

	path := filepath.Join(s.workspaceDir, name)
	if err := os.MkdirAll(s.workspaceDir, 0o755); err != nil {
		respondStoreError(w, err)
		return
	}
	if err := os.WriteFile(path, []byte(*req.Content), 0o644); err != nil {
		respondStoreError(w, err)
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	logger.L.Info("context file updated", "name", name)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"name":       name,
		"size":       info.Size(),
		"modifiedAt": info.ModTime().Format(time.RFC3339),
	})
}
