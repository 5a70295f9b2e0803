package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/board/internal/logger"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// Store persists projects and tasks in a single tasks.json file. Every
// read-modify-write cycle re-reads the file under the store mutex so
// concurrent handlers never clobber each other's updates.
type Store struct {
	path string
	mu   sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		path:  filepath.Join(dataDir, "tasks.json"),
		now:   time.Now,
		newID: shortID,
	}, nil
}

func shortID() string {
	return uuid.NewString()[:8]
}

func (s *Store) read() (*Data, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Data{Projects: []*Project{}}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if data.Projects == nil {
		data.Projects = []*Project{}
	}
	return &data, nil
}

// write replaces tasks.json via a temp file and rename so a crash mid-write
// never leaves a truncated file behind.
func (s *Store) write(data *Data) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}

// update runs fn against the freshly read data and persists the result.
func (s *Store) update(fn func(*Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return s.write(data)
}

// List returns the full board.
func (s *Store) List() (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// GetProject returns a copy-by-reference of one project.
func (s *Store) GetProject(id string) (*Project, error) {
	data, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, p := range data.Projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
}

// CreateProject adds a project with generated id, random color and default docs.
func (s *Store) CreateProject(name, description, docs string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name required: %w", ErrValidation)
	}
	if docs == "" {
		docs = "# " + name
	}
	project := &Project{
		ID:          "proj-" + s.newID(),
		Name:        name,
		Description: description,
		Docs:        docs,
		Color:       fmt.Sprintf("#%06x", rand.Intn(0x1000000)),
		Tasks:       []*Task{},
		CreatedAt:   s.now(),
	}
	err := s.update(func(data *Data) error {
		data.Projects = append(data.Projects, project)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.L.Info("project created", "name", name, "id", project.ID)
	return project, nil
}

// UpdateProject applies a partial update and returns the new state.
func (s *Store) UpdateProject(id string, upd ProjectUpdate) (*Project, error) {
	var out *Project
	err := s.update(func(data *Data) error {
		p := findProject(data, id)
		if p == nil {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		applyString(&p.Name, upd.Name)
		applyString(&p.Description, upd.Description)
		applyString(&p.Docs, upd.Docs)
		applyString(&p.Color, upd.Color)
		applyString(&p.ProjectPath, upd.ProjectPath)
		out = p
		return nil
	})
	return out, err
}

// DeleteProject removes a project and all of its tasks.
func (s *Store) DeleteProject(id string) error {
	return s.update(func(data *Data) error {
		for i, p := range data.Projects {
			if p.ID == id {
				logger.L.Info("project deleted", "name", p.Name, "id", id)
				data.Projects = append(data.Projects[:i], data.Projects[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	})
}

// CreateTask appends a task to a project, filling defaults like the board UI
// expects (status todo, priority medium, locale date).
func (s *Store) CreateTask(projectID string, task Task) (*Task, error) {
	if task.Title == "" {
		return nil, fmt.Errorf("task title required: %w", ErrValidation)
	}
	if task.Status == "" {
		task.Status = TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = "medium"
	}
	if task.Date == "" {
		task.Date = s.now().Format("02.01.2006")
	}
	task.ID = s.newID()
	task.CreatedAt = s.now()

	created := task
	err := s.update(func(data *Data) error {
		p := findProject(data, projectID)
		if p == nil {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		p.Tasks = append(p.Tasks, &created)
		logger.L.Info("task created", "title", created.Title, "project", p.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTask applies a partial update to one task.
func (s *Store) UpdateTask(projectID, taskID string, upd TaskUpdate) (*Task, error) {
	var out *Task
	err := s.update(func(data *Data) error {
		p := findProject(data, projectID)
		if p == nil {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		t := findTask(p, taskID)
		if t == nil {
			return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		oldStatus := t.Status
		applyString(&t.Title, upd.Title)
		applyString(&t.Description, upd.Description)
		applyString(&t.Status, upd.Status)
		applyString(&t.Priority, upd.Priority)
		applyString(&t.Date, upd.Date)
		applyString(&t.FeatureFile, upd.FeatureFile)
		if upd.Status != nil && *upd.Status != oldStatus {
			logger.L.Info("task status changed", "title", t.Title, "from", oldStatus, "to", t.Status)
		}
		out = t
		return nil
	})
	return out, err
}

// DeleteTask removes one task from a project.
func (s *Store) DeleteTask(projectID, taskID string) error {
	return s.update(func(data *Data) error {
		p := findProject(data, projectID)
		if p == nil {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		for i, t := range p.Tasks {
			if t.ID == taskID {
				logger.L.Info("task removed", "title", t.Title, "project", p.Name)
				p.Tasks = append(p.Tasks[:i], p.Tasks[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	})
}

// Stats counts projects and tasks by status.
func (s *Store) Stats() (*Stats, error) {
	data, err := s.List()
	if err != nil {
		return nil, err
	}
	stats := &Stats{Projects: len(data.Projects)}
	for _, p := range data.Projects {
		stats.TotalTasks += len(p.Tasks)
		for _, t := range p.Tasks {
			switch t.Status {
			case TaskStatusTodo:
				stats.TasksByStatus.Todo++
			case TaskStatusInProgress:
				stats.TasksByStatus.InProgress++
			case TaskStatusDone:
				stats.TasksByStatus.Done++
			}
		}
	}
	return stats, nil
}

func findProject(data *Data, id string) *Project {
	for _, p := range data.Projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func findTask(p *Project, id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
