package chat

import (
	"errors"
	"time"

	"github.com/openclaw/board/internal/logger"
)

// errNoChanges short-circuits the update so an unchanged file is never
// rewritten; this is what makes the sweep idempotent.
var errNoChanges = errors.New("no changes")

// Sweep reconciles messages left non-terminal by a prior run. A crash or
// restart abandons in-flight background work, so every pending or streaming
// message is rewritten to error with a restart diagnostic, keeping whatever
// partial content was already persisted. Runs once at startup before the
// server accepts requests; running it again is a no-op.
func Sweep(store *Store) error {
	start := time.Now()
	total := 0

	err := store.ForEachProject(func(projectID string) error {
		changed := 0
		err := store.update(projectID, func(f *sessionFile) error {
			for _, session := range f.Sessions {
				for _, msg := range session.Messages {
					if msg.Role != RoleAssistant || msg.Status.Terminal() || msg.Status == "" {
						continue
					}
					msg.Content = withPartial(msg.Content, RestartDiagnostic)
					msg.Status = StatusError
					msg.UpdatedAt = time.Now()
					changed++
				}
			}
			if changed == 0 {
				return errNoChanges
			}
			return nil
		})
		if errors.Is(err, errNoChanges) {
			return nil
		}
		if err != nil {
			return err
		}
		if changed > 0 {
			logger.L.Info("recovered orphaned messages", "project", projectID, "count", changed)
			total += changed
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.L.Info("recovery sweep finished", "recovered", total, "took", time.Since(start).String())
	return nil
}
