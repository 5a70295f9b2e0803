package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/board/internal/board"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	data, err := s.boards.List()
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Docs        string `json:"docs"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "project name required")
		return
	}
	project, err := s.boards.CreateProject(req.Name, req.Description, req.Docs)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var upd board.ProjectUpdate
	if err := decodeJSON(r, &upd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	project, err := s.boards.UpdateProject(chi.URLParam(r, "projectID"), upd)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.boards.DeleteProject(chi.URLParam(r, "projectID")); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var task board.Task
	if err := decodeJSON(r, &task); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if task.Title == "" {
		respondError(w, http.StatusBadRequest, "title required")
		return
	}
	created, err := s.boards.CreateTask(chi.URLParam(r, "projectID"), task)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var upd board.TaskUpdate
	if err := decodeJSON(r, &upd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	task, err := s.boards.UpdateTask(chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), upd)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	err := s.boards.DeleteTask(chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.boards.Stats()
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSyncFeatures(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	project, err := s.boards.GetProject(projectID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req struct {
		ProjectPath string `json:"projectPath"`
	}
	_ = decodeJSON(r, &req)

	projectPath := project.ProjectPath
	if projectPath == "" {
		projectPath = req.ProjectPath
	}
	synced, err := s.boards.SyncFeatures(projectID, projectPath)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"synced": len(synced),
		"tasks":  synced,
	})
}
