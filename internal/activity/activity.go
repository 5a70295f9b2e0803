// Package activity provides SQLite-based persistence for the board activity
// feed. The database is opened lazily and created on first use; if opening
// or querying fails, the log falls back to in-memory storage.
package activity

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/openclaw/board/internal/logger"
)

// Entry is one row in the activity feed.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Project     string    `json:"project,omitempty"`
}

// Log records activity entries. Safe for concurrent use.
type Log struct {
	path string

	mu  sync.Mutex
	mem []Entry

	once    sync.Once
	db      *sql.DB
	initErr error
}

func NewLog(path string) *Log {
	return &Log{path: path}
}

func (l *Log) init() {
	db, err := sql.Open("sqlite", "file:"+l.path+"?_busy_timeout=10000")
	if err != nil {
		l.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory activity log", "error", err)
		return
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS activities (
        id TEXT PRIMARY KEY,
        timestamp DATETIME,
        type TEXT,
        title TEXT,
        description TEXT,
        status TEXT,
        project TEXT
    );`); err != nil {
		l.initErr = err
		logger.L.Warn("sqlite table creation failed; using in-memory activity log", "error", err)
		return
	}
	l.db = db
	logger.L.Info("activity log initialized", "path", l.path)
}

// Record persists an entry, filling id, timestamp and defaults. The entry is
// always kept in memory as fallback.
func (l *Log) Record(e Entry) Entry {
	l.once.Do(l.init)

	e.ID = uuid.NewString()[:8]
	e.Timestamp = time.Now()
	if e.Type == "" {
		e.Type = "update"
	}
	if e.Status == "" {
		e.Status = "completed"
	}

	if l.initErr == nil && l.db != nil {
		_, err := l.db.Exec(`INSERT INTO activities (id, timestamp, type, title, description, status, project) VALUES (?,?,?,?,?,?,?);`,
			e.ID, e.Timestamp, e.Type, e.Title, e.Description, e.Status, e.Project)
		if err != nil {
			logger.L.Error("failed to store activity in sqlite; falling back to memory", "error", err)
		}
	}

	l.mu.Lock()
	l.mem = append(l.mem, e)
	l.mu.Unlock()
	return e
}

// List returns all entries in insertion order.
func (l *Log) List() []Entry {
	l.once.Do(l.init)

	if l.initErr == nil && l.db != nil {
		rows, err := l.db.Query(`SELECT id, timestamp, type, title, description, status, project FROM activities ORDER BY timestamp ASC;`)
		if err == nil {
			defer rows.Close()
			out := []Entry{}
			for rows.Next() {
				var e Entry
				if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.Title, &e.Description, &e.Status, &e.Project); err == nil {
					out = append(out, e)
				}
			}
			return out
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.mem))
	copy(out, l.mem)
	return out
}
