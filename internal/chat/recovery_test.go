package chat

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedSweepFixture(t *testing.T, store *Store) (sessionID string) {
	t.Helper()
	session, err := store.CreateSession("proj-1", "interrupted", "")
	require.NoError(t, err)

	err = store.update("proj-1", func(f *sessionFile) error {
		s := f.find(session.ID)
		s.Messages = append(s.Messages,
			&Message{ID: "u1", Role: RoleUser, Content: "hi", Timestamp: time.Now()},
			&Message{ID: "a1", Role: RoleAssistant, Content: "half an ans", Status: StatusStreaming, Timestamp: time.Now()},
			&Message{ID: "u2", Role: RoleUser, Content: "again", Timestamp: time.Now()},
			&Message{ID: "a2", Role: RoleAssistant, Content: "", Status: StatusPending, Timestamp: time.Now()},
			&Message{ID: "a3", Role: RoleAssistant, Content: "done earlier", Status: StatusComplete, Timestamp: time.Now()},
		)
		return nil
	})
	require.NoError(t, err)
	return session.ID
}

func TestSweep_ResolvesOrphanedMessages(t *testing.T) {
	store := newTestStore(t)
	sessionID := seedSweepFixture(t, store)

	require.NoError(t, Sweep(store))

	session, err := store.GetSession("proj-1", sessionID)
	require.NoError(t, err)

	streaming := session.find("a1")
	require.Equal(t, StatusError, streaming.Status)
	require.Contains(t, streaming.Content, "half an ans")
	require.Contains(t, streaming.Content, RestartDiagnostic)
	require.False(t, streaming.UpdatedAt.IsZero())

	pending := session.find("a2")
	require.Equal(t, StatusError, pending.Status)
	require.Equal(t, RestartDiagnostic, pending.Content)

	// Terminal and user messages stay untouched.
	require.Equal(t, StatusComplete, session.find("a3").Status)
	require.Equal(t, "done earlier", session.find("a3").Content)
	require.Equal(t, "hi", session.find("u1").Content)
}

func TestSweep_Idempotent(t *testing.T) {
	store := newTestStore(t)
	seedSweepFixture(t, store)

	require.NoError(t, Sweep(store))
	first, err := os.ReadFile(store.path("proj-1"))
	require.NoError(t, err)

	require.NoError(t, Sweep(store))
	second, err := os.ReadFile(store.path("proj-1"))
	require.NoError(t, err)

	require.Equal(t, string(first), string(second))
}

func TestSweep_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, Sweep(store))
}
