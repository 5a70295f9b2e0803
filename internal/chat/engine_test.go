package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/board/internal/board"
	"github.com/openclaw/board/internal/gateway"
)

// mockGateway implements gateway.Client with a pluggable Complete.
type mockGateway struct {
	completeFn func(ctx context.Context, msgs []openai.ChatCompletionMessage, key string, stream bool, onDelta func(string)) (string, error)

	mu    sync.Mutex
	calls [][]openai.ChatCompletionMessage
	keys  []string
}

func (g *mockGateway) Complete(ctx context.Context, msgs []openai.ChatCompletionMessage, key string, stream bool, onDelta func(string)) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, msgs)
	g.keys = append(g.keys, key)
	g.mu.Unlock()
	if g.completeFn != nil {
		return g.completeFn(ctx, msgs, key, stream, onDelta)
	}
	return "", nil
}

func (g *mockGateway) Health(ctx context.Context) gateway.Status {
	return gateway.Status{Online: true}
}

type engineFixture struct {
	store   *Store
	boards  *board.Store
	gw      *mockGateway
	engine  *Engine
	project *board.Project
	session *Session
}

func newEngineFixture(t *testing.T, gw *mockGateway) *engineFixture {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	boards, err := board.NewStore(dir)
	require.NoError(t, err)
	project, err := boards.CreateProject("Kanban", "board project", "")
	require.NoError(t, err)
	session, err := store.CreateSession(project.ID, "", "")
	require.NoError(t, err)
	return &engineFixture{
		store:   store,
		boards:  boards,
		gw:      gw,
		engine:  NewEngine(store, boards, gw, time.Minute),
		project: project,
		session: session,
	}
}

func (f *engineFixture) message(t *testing.T, messageID string) *Message {
	t.Helper()
	session, err := f.store.GetSession(f.project.ID, f.session.ID)
	require.NoError(t, err)
	msg := session.find(messageID)
	require.NotNil(t, msg)
	return msg
}

func TestSubmit_PersistsPairBeforeReturning(t *testing.T) {
	release := make(chan struct{})
	gw := &mockGateway{
		completeFn: func(ctx context.Context, _ []openai.ChatCompletionMessage, _ string, _ bool, _ func(string)) (string, error) {
			<-release
			return "done", nil
		},
	}
	f := newEngineFixture(t, gw)

	result, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "Hello", "")
	require.NoError(t, err)
	require.Equal(t, RoleUser, result.UserMessage.Role)
	require.Equal(t, "Hello", result.UserMessage.Content)
	require.NotEmpty(t, result.AssistantMessageID)

	// Both messages are already durable; the assistant row is pending or
	// later, never absent.
	session, err := f.store.GetSession(f.project.ID, f.session.ID)
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
	require.Equal(t, RoleUser, session.Messages[0].Role)
	require.False(t, session.Messages[1].Status.Terminal())

	close(release)
	f.engine.Wait()
}

func TestSubmit_CompletesWithGatewayReply(t *testing.T) {
	gw := &mockGateway{
		completeFn: func(context.Context, []openai.ChatCompletionMessage, string, bool, func(string)) (string, error) {
			return "Hi there", nil
		},
	}
	f := newEngineFixture(t, gw)

	result, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "Hello", "")
	require.NoError(t, err)
	f.engine.Wait()

	msg := f.message(t, result.AssistantMessageID)
	require.Equal(t, StatusComplete, msg.Status)
	require.Equal(t, "Hi there", msg.Content)
	require.False(t, msg.UpdatedAt.IsZero())
}

func TestSubmit_ValidationAndNotFound(t *testing.T) {
	f := newEngineFixture(t, &mockGateway{})

	_, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "   ", "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.engine.Submit(context.Background(), "proj-missing", f.session.ID, "hi", "")
	require.ErrorIs(t, err, board.ErrNotFound)

	_, err = f.engine.Submit(context.Background(), f.project.ID, "sess-missing", "hi", "")
	require.ErrorIs(t, err, ErrNotFound)

	// None of the rejected submissions may have written anything.
	session, err := f.store.GetSession(f.project.ID, f.session.ID)
	require.NoError(t, err)
	require.Empty(t, session.Messages)
	require.Empty(t, f.gw.calls)
}

func TestSubmit_DerivesTitleFromFirstMessage(t *testing.T) {
	gw := &mockGateway{}
	f := newEngineFixture(t, gw)

	long := strings.Repeat("a", 60)
	_, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, long, "")
	require.NoError(t, err)
	f.engine.Wait()

	session, err := f.store.GetSession(f.project.ID, f.session.ID)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("a", 50)+"...", session.Title)

	// A second message must not retitle the session.
	_, err = f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "something else", "")
	require.NoError(t, err)
	f.engine.Wait()

	session, err = f.store.GetSession(f.project.ID, f.session.ID)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("a", 50)+"...", session.Title)
}

func TestRun_TimeoutWritesErrorDiagnostic(t *testing.T) {
	gw := &mockGateway{
		completeFn: func(context.Context, []openai.ChatCompletionMessage, string, bool, func(string)) (string, error) {
			return "", fmt.Errorf("%w: context deadline exceeded", gateway.ErrTimeout)
		},
	}
	f := newEngineFixture(t, gw)

	result, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "Hello", "")
	require.NoError(t, err)
	f.engine.Wait()

	msg := f.message(t, result.AssistantMessageID)
	require.Equal(t, StatusError, msg.Status)
	require.Equal(t, timeoutDiagnostic, msg.Content)
}

func TestRun_UpstreamErrorWritesDetail(t *testing.T) {
	gw := &mockGateway{
		completeFn: func(context.Context, []openai.ChatCompletionMessage, string, bool, func(string)) (string, error) {
			return "", &gateway.UpstreamError{StatusCode: 502, Detail: "bad gateway"}
		},
	}
	f := newEngineFixture(t, gw)

	result, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "Hello", "")
	require.NoError(t, err)
	f.engine.Wait()

	msg := f.message(t, result.AssistantMessageID)
	require.Equal(t, StatusError, msg.Status)
	require.Contains(t, msg.Content, "status 502")
	require.Contains(t, msg.Content, "bad gateway")
}

func TestRun_PartialContentPreservedOnFailure(t *testing.T) {
	gw := &mockGateway{
		completeFn: func(_ context.Context, _ []openai.ChatCompletionMessage, _ string, _ bool, onDelta func(string)) (string, error) {
			onDelta("partial answer")
			return "partial answer", fmt.Errorf("%w: stream cut", gateway.ErrTimeout)
		},
	}
	f := newEngineFixture(t, gw)

	result, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "Hello", "")
	require.NoError(t, err)
	f.engine.Wait()

	msg := f.message(t, result.AssistantMessageID)
	require.Equal(t, StatusError, msg.Status)
	require.True(t, strings.HasPrefix(msg.Content, "partial answer"))
	require.Contains(t, msg.Content, timeoutDiagnostic)
}

func TestRun_SessionDeletedMidFlight(t *testing.T) {
	release := make(chan struct{})
	gw := &mockGateway{
		completeFn: func(context.Context, []openai.ChatCompletionMessage, string, bool, func(string)) (string, error) {
			<-release
			return "too late", nil
		},
	}
	f := newEngineFixture(t, gw)

	_, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "Hello", "")
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteSession(f.project.ID, f.session.ID))

	// The final transition targets a vanished session; it must be a no-op,
	// not a panic or a resurrected file entry.
	close(release)
	f.engine.Wait()

	_, err = f.store.GetSession(f.project.ID, f.session.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPersist_NeverTouchesTerminalMessage(t *testing.T) {
	f := newEngineFixture(t, &mockGateway{})

	result, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "Hello", "")
	require.NoError(t, err)
	f.engine.Wait()

	before := f.message(t, result.AssistantMessageID)
	require.True(t, before.Status.Terminal())

	err = f.engine.persist(f.project.ID, f.session.ID, result.AssistantMessageID, func(m *Message) {
		m.Content = "overwritten"
		m.Status = StatusStreaming
	})
	require.NoError(t, err)

	after := f.message(t, result.AssistantMessageID)
	require.Equal(t, before.Status, after.Status)
	require.Equal(t, before.Content, after.Content)
}

func TestSubmit_ConcurrentSessionsStaySafe(t *testing.T) {
	gw := &mockGateway{
		completeFn: func(context.Context, []openai.ChatCompletionMessage, string, bool, func(string)) (string, error) {
			return "ok", nil
		},
	}
	f := newEngineFixture(t, gw)

	const n = 8
	errCh := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, fmt.Sprintf("msg %d", i), "")
			errCh <- err
		}(i)
	}
	wg.Wait()
	f.engine.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	// Even when the one-in-flight convention is violated, the file stays
	// parseable and every assistant row reaches a terminal status.
	session, err := f.store.GetSession(f.project.ID, f.session.ID)
	require.NoError(t, err)
	require.Len(t, session.Messages, 2*n)
	for _, m := range session.Messages {
		if m.Role == RoleAssistant {
			require.True(t, m.Status.Terminal(), "message %s stuck in %s", m.ID, m.Status)
		}
	}
}

func TestSubmit_SessionKeyIsolatesConversations(t *testing.T) {
	gw := &mockGateway{}
	f := newEngineFixture(t, gw)

	_, err := f.engine.Submit(context.Background(), f.project.ID, f.session.ID, "Hello", "")
	require.NoError(t, err)
	f.engine.Wait()

	require.Len(t, gw.keys, 1)
	require.Equal(t, fmt.Sprintf("board-%s-%s", f.project.ID, f.session.ID), gw.keys[0])
}
