package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/board/internal/board"
	"github.com/openclaw/board/internal/files"
	"github.com/openclaw/board/internal/logger"
)

// projectRoot loads the project and ensures it has a browsable path.
func (s *Server) projectRoot(w http.ResponseWriter, r *http.Request) (*board.Project, bool) {
	project, err := s.boards.GetProject(chi.URLParam(r, "projectID"))
	if err != nil {
		respondStoreError(w, err)
		return nil, false
	}
	if project.ProjectPath == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "no project path configured",
			"needsPath": true,
		})
		return nil, false
	}
	return project, true
}

func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectRoot(w, r)
	if !ok {
		return
	}
	tree, err := files.Tree(project.ProjectPath)
	if err != nil {
		if os.IsNotExist(err) {
			respondError(w, http.StatusNotFound, "project path does not exist")
			return
		}
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"projectPath": project.ProjectPath,
		"tree":        tree,
	})
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectRoot(w, r)
	if !ok {
		return
	}
	file, err := files.Read(project.ProjectPath, chi.URLParam(r, "*"))
	if err != nil {
		if os.IsNotExist(err) {
			respondError(w, http.StatusNotFound, "file not found")
			return
		}
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, file)
}

func (s *Server) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectRoot(w, r)
	if !ok {
		return
	}
	var req struct {
		Content *string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Content == nil {
		respondError(w, http.StatusBadRequest, "content required")
		return
	}
	rel, size, err := files.Write(project.ProjectPath, chi.URLParam(r, "*"), *req.Content)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	logger.L.Info("file saved", "path", rel, "project", project.Name)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"path":       rel,
		"size":       size,
		"modifiedAt": time.Now().Format(time.RFC3339),
	})
}

// featureFile resolves the feature file linked to a task.
func (s *Server) featureFile(w http.ResponseWriter, r *http.Request) (project *board.Project, task *board.Task, ok bool) {
	project, ok = s.projectRoot(w, r)
	if !ok {
		return nil, nil, false
	}
	taskID := chi.URLParam(r, "taskID")
	for _, t := range project.Tasks {
		if t.ID == taskID {
			task = t
			break
		}
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return nil, nil, false
	}
	if task.FeatureFile == "" {
		respondError(w, http.StatusNotFound, "no feature file linked")
		return nil, nil, false
	}
	return project, task, true
}

func (s *Server) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	project, task, ok := s.featureFile(w, r)
	if !ok {
		return
	}
	file, err := files.Read(project.ProjectPath, task.FeatureFile)
	if err != nil {
		if os.IsNotExist(err) {
			respondError(w, http.StatusNotFound, "feature file not found")
			return
		}
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":          task.ID,
		"filename":    filepath.Base(task.FeatureFile),
		"content":     file.Content,
		"path":        file.Path,
		"featureFile": task.FeatureFile,
	})
}

func (s *Server) handlePutFeature(w http.ResponseWriter, r *http.Request) {
	project, task, ok := s.featureFile(w, r)
	if !ok {
		return
	}
	var req struct {
		Content *string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Content == nil {
		respondError(w, http.StatusBadRequest, "content required")
		return
	}
	if _, _, err := files.Write(project.ProjectPath, task.FeatureFile, *req.Content); err != nil {
		respondStoreError(w, err)
		return
	}

	// Keep the task title in sync with the feature file's first heading.
	if heading := firstLineHeading(*req.Content); heading != "" {
		if _, err := s.boards.UpdateTask(project.ID, task.ID, board.TaskUpdate{Title: &heading}); err != nil {
			logger.L.Warn("title sync failed", "task", task.ID, "error", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"id":       task.ID,
		"filename": filepath.Base(task.FeatureFile),
		"message":  "feature updated",
	})
}

func firstLineHeading(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	return strings.TrimSpace(strings.TrimLeft(line, "# "))
}
