package chat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)

	created, err := store.CreateSession("proj-1", "Fix the login flow", "task-9")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Fix the login flow", created.Title)
	require.Equal(t, "task-9", created.TaskID)

	got, err := store.GetSession("proj-1", created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Empty(t, got.Messages)
}

func TestCreateSession_DefaultTitle(t *testing.T) {
	store := newTestStore(t)

	created, err := store.CreateSession("proj-1", "", "")
	require.NoError(t, err)
	require.Equal(t, defaultSessionTitle, created.Title)
}

func TestCreateSession_NewestFirst(t *testing.T) {
	store := newTestStore(t)

	first, err := store.CreateSession("proj-1", "first", "")
	require.NoError(t, err)
	second, err := store.CreateSession("proj-1", "second", "")
	require.NoError(t, err)

	summaries, err := store.ListSessions("proj-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, second.ID, summaries[0].ID)
	require.Equal(t, first.ID, summaries[1].ID)
}

func TestGetSession_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession("proj-1", "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)

	created, err := store.CreateSession("proj-1", "t", "")
	require.NoError(t, err)
	require.NoError(t, store.DeleteSession("proj-1", created.ID))

	_, err = store.GetSession("proj-1", created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, store.DeleteSession("proj-1", created.ID), ErrNotFound)
}

func TestListSessions_Projections(t *testing.T) {
	store := newTestStore(t)

	created, err := store.CreateSession("proj-1", "with messages", "")
	require.NoError(t, err)

	last := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	err = store.update("proj-1", func(f *sessionFile) error {
		s := f.find(created.ID)
		s.Messages = append(s.Messages,
			&Message{ID: "m1", Role: RoleUser, Content: "hi", Timestamp: last.Add(-time.Minute)},
			&Message{ID: "m2", Role: RoleAssistant, Content: "hello", Status: StatusComplete, Timestamp: last},
		)
		return nil
	})
	require.NoError(t, err)

	summaries, err := store.ListSessions("proj-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 2, summaries[0].MessageCount)
	require.NotNil(t, summaries[0].LastMessageAt)
	require.True(t, summaries[0].LastMessageAt.Equal(last))
}

func TestUpdateMessage_NoOpWhenGone(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateMessage("proj-1", "gone", "m1", func(m *Message) {
		m.Status = StatusError
	})
	require.ErrorIs(t, err, ErrNotFound)

	created, err := store.CreateSession("proj-1", "t", "")
	require.NoError(t, err)
	err = store.UpdateMessage("proj-1", created.ID, "missing", func(m *Message) {})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AtomicWrite(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateSession("proj-1", "t", "")
	require.NoError(t, err)

	// The temp file from the rename protocol must not survive the write.
	_, err = os.Stat(store.path("proj-1") + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestForEachProject(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateSession("proj-a", "t", "")
	require.NoError(t, err)
	_, err = store.CreateSession("proj-b", "t", "")
	require.NoError(t, err)

	// A stray non-JSON file must be skipped.
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, "readme.txt"), []byte("x"), 0o644))

	seen := map[string]bool{}
	err = store.ForEachProject(func(projectID string) error {
		seen[projectID] = true
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"proj-a": true, "proj-b": true}, seen)
}
