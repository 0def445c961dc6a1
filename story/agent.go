package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"collab_story_weaver/llm"
)

// DefaultHistoryWindow is how many recent log entries an agent sees.
const DefaultHistoryWindow = 5

// Agent 负责以某个角色身份，基于共享对话记录生成一条回复。
// It keeps no conversational state of its own.
type Agent struct {
	id      RoleID
	profile RoleProfile
	llm     llm.Client
	window  int
	logger  *slog.Logger
}

func NewAgent(id RoleID, profile RoleProfile, client llm.Client, window int, logger *slog.Logger) (*Agent, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		id:      id,
		profile: profile,
		llm:     client,
		window:  window,
		logger:  logger.With("component", "agent", "role", id.String()),
	}, nil
}

func (a *Agent) ID() RoleID           { return a.id }
func (a *Agent) Profile() RoleProfile { return a.profile }

// Respond builds a bounded context from history and returns the model output
// verbatim. The caller owns appending the reply to the log.
func (a *Agent) Respond(ctx context.Context, prompt string, history []Message, addressee RoleID) (string, error) {
	p := a.buildPrompt(prompt, history, addressee)

	start := time.Now()
	out, err := a.llm.Complete(ctx, p)
	if err != nil {
		a.logger.Error("role call failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return "", &GenerationFailure{Role: a.id, Cause: err}
	}
	a.logger.Info("role replied",
		"duration_ms", time.Since(start).Milliseconds(),
		"context_entries", len(p.History),
		"response_length", len(out))
	return out, nil
}

func (a *Agent) buildPrompt(prompt string, history []Message, addressee RoleID) llm.Prompt {
	recent := tail(history, a.window)
	turns := make([]llm.Turn, 0, len(recent))
	for _, m := range recent {
		role := llm.RoleUser
		if m.Sender == a.id {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Turn{Role: role, Content: renderEntry(m)})
	}

	user := prompt
	if !addressee.IsEveryone() {
		user = fmt.Sprintf("%s\n\n(Your reply is addressed to %s.)", prompt, addressee)
	}
	return llm.Prompt{
		System:  a.profile.Instructions,
		User:    user,
		History: turns,
	}
}

// renderEntry 形如 "📚 Narrator → all: ..."，保留原始收件人。
func renderEntry(m Message) string {
	var sb strings.Builder
	sb.WriteString(m.SenderName)
	sb.WriteString(" → ")
	sb.WriteString(m.Recipient.String())
	sb.WriteString(": ")
	sb.WriteString(m.Content)
	return sb.String()
}
