package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/openclaw/board/internal/board"
	"github.com/openclaw/board/internal/gateway"
	"github.com/openclaw/board/internal/logger"
)

// Diagnostics written into assistant messages on the background path. The
// submitter already got its response, so failures surface here instead.
const (
	RestartDiagnostic     = "Service restarted, please resend your message."
	timeoutDiagnostic     = "The agent did not respond within the time limit. Please resend your message."
	unreachableDiagnostic = "Could not reach the agent gateway. Please check that it is running and resend your message."
)

// Lifecycle triggers for the assistant message state machine.
const (
	triggerBegin   = "begin"
	triggerSucceed = "succeed"
	triggerFail    = "fail"
)

const flushInterval = 500 * time.Millisecond

// Engine drives assistant messages through pending -> streaming ->
// complete|error. Submit returns as soon as the paired messages are
// persisted; a detached goroutine performs the gateway call and every later
// transition, reporting only through the store.
type Engine struct {
	store   *Store
	boards  *board.Store
	client  gateway.Client
	timeout time.Duration
	stream  bool

	wg sync.WaitGroup
}

func NewEngine(store *Store, boards *board.Store, client gateway.Client, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Engine{
		store:   store,
		boards:  boards,
		client:  client,
		timeout: timeout,
		stream:  true,
	}
}

// SubmitResult is returned to the caller before the gateway call starts.
type SubmitResult struct {
	UserMessage        *Message `json:"userMessage"`
	AssistantMessageID string   `json:"assistantMessageId"`
}

// Submit validates input, persists the user message together with a pending
// assistant placeholder in one write, schedules the background run, and
// returns immediately.
func (e *Engine) Submit(ctx context.Context, projectID, sessionID, content, taskID string) (*SubmitResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content required: %w", ErrValidation)
	}

	project, err := e.boards.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	userMsg := &Message{
		ID:        e.store.newID(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: now,
	}
	placeholder := &Message{
		ID:        e.store.newID(),
		Role:      RoleAssistant,
		Status:    StatusPending,
		Timestamp: now,
	}

	var history []openai.ChatCompletionMessage
	err = e.store.update(projectID, func(f *sessionFile) error {
		session := f.find(sessionID)
		if session == nil {
			return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}

		session.Messages = append(session.Messages, userMsg, placeholder)
		if len(session.Messages) == 2 {
			session.Title = deriveTitle(content)
		}

		contextTaskID := taskID
		if contextTaskID == "" {
			contextTaskID = session.TaskID
		}
		var task *board.Task
		for _, t := range project.Tasks {
			if t.ID == contextTaskID {
				task = t
				break
			}
		}

		// Snapshot the gateway input while holding the lock so the run
		// goroutine carries no references into shared state.
		history = buildHistory(buildSystemPrompt(project, task), session)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sessionKey := fmt.Sprintf("board-%s-%s", projectID, sessionID)
	e.wg.Add(1)
	go e.run(projectID, sessionID, placeholder.ID, sessionKey, history)

	return &SubmitResult{UserMessage: userMsg, AssistantMessageID: placeholder.ID}, nil
}

// Wait blocks until all in-flight background runs have finished. Used by
// tests and graceful shutdown.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// run executes one assistant turn against the gateway. It never reports back
// to the submitter; every outcome is a persisted status transition. A
// transition whose session or message has been deleted is a no-op.
func (e *Engine) run(projectID, sessionID, messageID, sessionKey string, history []openai.ChatCompletionMessage) {
	defer e.wg.Done()

	log := logger.L.With("project", projectID, "session", sessionID, "message", messageID)

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	var partial strings.Builder

	machine := stateless.NewStateMachine(StatusPending)
	machine.Configure(StatusPending).
		Permit(triggerBegin, StatusStreaming)
	machine.Configure(StatusStreaming).
		OnEntry(func(_ context.Context, _ ...any) error {
			return e.persist(projectID, sessionID, messageID, func(m *Message) {
				m.Status = StatusStreaming
			})
		}).
		Permit(triggerSucceed, StatusComplete).
		Permit(triggerFail, StatusError)
	machine.Configure(StatusComplete).
		OnEntryFrom(triggerSucceed, func(_ context.Context, args ...any) error {
			content := args[0].(string)
			return e.persist(projectID, sessionID, messageID, func(m *Message) {
				m.Content = content
				m.Status = StatusComplete
			})
		})
	machine.Configure(StatusError).
		OnEntryFrom(triggerFail, func(_ context.Context, args ...any) error {
			diagnostic := args[0].(string)
			return e.persist(projectID, sessionID, messageID, func(m *Message) {
				m.Content = withPartial(partial.String(), diagnostic)
				m.Status = StatusError
			})
		})

	if err := machine.Fire(triggerBegin); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Debug("session vanished before streaming transition")
		} else {
			// Persistence failure: abandon the run. The message stays
			// non-terminal until the next recovery sweep resolves it.
			log.Error("streaming transition failed", "error", err)
		}
		return
	}

	lastFlush := time.Now()
	onDelta := func(delta string) {
		partial.WriteString(delta)
		if time.Since(lastFlush) < flushInterval {
			return
		}
		lastFlush = time.Now()
		snapshot := partial.String()
		if err := e.persist(projectID, sessionID, messageID, func(m *Message) {
			m.Content = snapshot
		}); err != nil {
			log.Debug("partial flush skipped", "error", err)
		}
	}

	content, err := e.client.Complete(ctx, history, sessionKey, e.stream, onDelta)
	if err != nil {
		log.Warn("gateway call failed", "error", err)
		if fireErr := machine.Fire(triggerFail, diagnosticFor(err)); fireErr != nil {
			log.Error("error transition failed", "error", fireErr)
		}
		return
	}

	if fireErr := machine.Fire(triggerSucceed, content); fireErr != nil {
		log.Error("complete transition failed", "error", fireErr)
		return
	}
	log.Info("assistant message completed", "length", len(content))
}

// persist is a single lifecycle write. Terminal messages are left untouched:
// once complete or error is recorded, no later write from this or any other
// run may alter it.
func (e *Engine) persist(projectID, sessionID, messageID string, fn func(*Message)) error {
	return e.store.UpdateMessage(projectID, sessionID, messageID, func(m *Message) {
		if m.Status.Terminal() {
			return
		}
		fn(m)
		m.UpdatedAt = time.Now()
	})
}

// withPartial keeps streamed output that arrived before a failure, placing
// the diagnostic below it.
func withPartial(partial, diagnostic string) string {
	if partial == "" {
		return diagnostic
	}
	return partial + "\n\n" + diagnostic
}

func diagnosticFor(err error) string {
	var upstream *gateway.UpstreamError
	switch {
	case errors.Is(err, gateway.ErrTimeout):
		return timeoutDiagnostic
	case errors.Is(err, gateway.ErrUnreachable):
		return unreachableDiagnostic
	case errors.As(err, &upstream):
		return fmt.Sprintf("The gateway returned an error (status %d): %s", upstream.StatusCode, upstream.Detail)
	default:
		return fmt.Sprintf("Agent request failed: %v", err)
	}
}
