package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/board/internal/logger"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

const defaultSessionTitle = "New session"

// Store keeps one JSON file per project under dir. The persisted file is the
// sole source of truth: every mutation re-reads it under a per-project lock,
// applies the change, and writes it back atomically.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "chat-sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chat sessions dir: %w", err)
	}
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
		newID: func() string { return uuid.NewString()[:8] },
	}, nil
}

// projectLock returns the mutex serializing writes to one project file.
func (s *Store) projectLock(projectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[projectID] = l
	}
	return l
}

func (s *Store) path(projectID string) string {
	return filepath.Join(s.dir, projectID+".json")
}

func (s *Store) read(projectID string) (*sessionFile, error) {
	raw, err := os.ReadFile(s.path(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return &sessionFile{Sessions: []*Session{}}, nil
		}
		return nil, fmt.Errorf("read sessions for %s: %w", projectID, err)
	}
	var f sessionFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sessions for %s: %w", projectID, err)
	}
	if f.Sessions == nil {
		f.Sessions = []*Session{}
	}
	return &f, nil
}

func (s *Store) write(projectID string, f *sessionFile) error {
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	path := s.path(projectID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write sessions for %s: %w", projectID, err)
	}
	return os.Rename(tmp, path)
}

// update is the read-modify-write cycle every mutation goes through.
func (s *Store) update(projectID string, fn func(*sessionFile) error) error {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	f, err := s.read(projectID)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return s.write(projectID, f)
}

// CreateSession prepends an empty session, newest first.
func (s *Store) CreateSession(projectID, title, taskID string) (*Session, error) {
	if title == "" {
		title = defaultSessionTitle
	}
	session := &Session{
		ID:        s.newID(),
		Title:     title,
		TaskID:    taskID,
		CreatedAt: s.now(),
		Messages:  []*Message{},
	}
	err := s.update(projectID, func(f *sessionFile) error {
		f.Sessions = append([]*Session{session}, f.Sessions...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.L.Info("chat session created", "project", projectID, "session", session.ID, "title", session.Title)
	return session, nil
}

// GetSession returns one session with its full message history.
func (s *Store) GetSession(projectID, sessionID string) (*Session, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	f, err := s.read(projectID)
	if err != nil {
		return nil, err
	}
	session := f.find(sessionID)
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return session, nil
}

// DeleteSession removes a session by id.
func (s *Store) DeleteSession(projectID, sessionID string) error {
	return s.update(projectID, func(f *sessionFile) error {
		for i, sess := range f.Sessions {
			if sess.ID == sessionID {
				f.Sessions = append(f.Sessions[:i], f.Sessions[i+1:]...)
				logger.L.Info("chat session deleted", "project", projectID, "session", sessionID)
				return nil
			}
		}
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	})
}

// ListSessions returns list-view projections in stored order.
func (s *Store) ListSessions(projectID string) ([]Summary, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	f, err := s.read(projectID)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(f.Sessions))
	for _, sess := range f.Sessions {
		sum := Summary{
			ID:           sess.ID,
			Title:        sess.Title,
			CreatedAt:    sess.CreatedAt,
			MessageCount: len(sess.Messages),
		}
		if n := len(sess.Messages); n > 0 {
			ts := sess.Messages[n-1].Timestamp
			sum.LastMessageAt = &ts
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// UpdateMessage applies fn to one message in a read-modify-write cycle.
// Returns ErrNotFound when the session or message has vanished; callers on
// the background path treat that as a no-op.
func (s *Store) UpdateMessage(projectID, sessionID, messageID string, fn func(*Message)) error {
	return s.update(projectID, func(f *sessionFile) error {
		session := f.find(sessionID)
		if session == nil {
			return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		msg := session.find(messageID)
		if msg == nil {
			return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
		}
		fn(msg)
		return nil
	})
}

// ForEachProject invokes fn with every project id that has a sessions file.
func (s *Store) ForEachProject(fn func(projectID string) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scan sessions dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := fn(strings.TrimSuffix(name, ".json")); err != nil {
			return err
		}
	}
	return nil
}
