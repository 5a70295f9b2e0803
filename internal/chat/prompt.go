package chat

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/openclaw/board/internal/board"
)

// buildSystemPrompt synthesizes the gateway system instruction from the
// project docs, the task overview and an optional focused task.
func buildSystemPrompt(project *board.Project, task *board.Task) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a focused developer agent for the %q board.

# Project isolation
You work ONLY on the project %q. Do not mention other projects; they are not
relevant to this conversation. Stay strictly within the current task context.

# Current context

## Project: %s
`, project.Name, project.Name, project.Name)

	if project.Docs != "" {
		fmt.Fprintf(&b, "\n### Project documentation\n%s\n", project.Docs)
	}

	b.WriteString("\n## Task overview\n")
	for _, t := range project.Tasks {
		fmt.Fprintf(&b, "- %s %s (%s)\n", t.ID, t.Title, t.Status)
	}

	if task != nil {
		fmt.Fprintf(&b, "\n## Current task focus: %s\n**Title:** %s\n**Status:** %s\n**Priority:** %s\n",
			task.ID, task.Title, task.Status, task.Priority)
		if task.FeatureFile != "" {
			fmt.Fprintf(&b, "**Feature spec:** %s (read this file for details)\n", task.FeatureFile)
		}
		if task.Description != "" {
			fmt.Fprintf(&b, "\n### Task description\n%s\n", task.Description)
		}
	}

	b.WriteString(`
# Workflow rules
1. Read the relevant files first (feature spec, code).
2. Show the user what you analyze and find.
3. Explain what you will change BEFORE changing it.
4. Make small, reviewable changes.
5. Update the task status via the API when done.
6. NEVER overwrite the original requirements in a task - append status updates.

# Allowed task status values
Only use: todo, in-progress, review, done. Create new tasks with status "todo".

Be precise and show your reasoning.`)

	return b.String()
}

// buildHistory flattens a session into the gateway message list: the system
// instruction first, then every prior terminal message in chronological
// order. Non-terminal assistant messages (including the placeholder the
// caller just created) are excluded.
func buildHistory(systemPrompt string, session *Session) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(session.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range session.Messages {
		if m.Role == RoleAssistant && !m.Status.Terminal() {
			continue
		}
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return messages
}

// deriveTitle truncates the first user message into a session title.
func deriveTitle(content string) string {
	const max = 50
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
