package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient 一个简单的占位实现，便于本地调试，不调用外部模型。
//
// Planner-style prompts (those carrying the chapter template) get a fixed
// three-chapter outline; everything else gets a short prose paragraph.
type MockClient struct {
	Chapters int
}

func (m MockClient) Complete(_ context.Context, prompt Prompt) (string, error) {
	if strings.Contains(prompt.User, "Key events:") && strings.Contains(prompt.User, "Locations:") {
		return m.outline(prompt.User), nil
	}
	if strings.Contains(prompt.User, "Eventos clave:") && strings.Contains(prompt.User, "Ubicaciones:") {
		return m.outline(prompt.User), nil
	}

	first := strings.TrimSpace(strings.SplitN(strings.TrimSpace(prompt.User), "\n", 2)[0])
	var sb strings.Builder
	sb.WriteString("The lamps along the corridor flickered as the night settled in. ")
	sb.WriteString("Every door held its breath, and every footstep carried a question. ")
	if first != "" {
		sb.WriteString("(")
		sb.WriteString(first)
		sb.WriteString(")")
	}
	return sb.String(), nil
}

func (m MockClient) outline(user string) string {
	n := m.Chapters
	if n <= 0 {
		n = 3
	}
	names := mockCharacters(user)
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "Chapter %d: Part %d\n", i, i)
		fmt.Fprintf(&sb, "Summary: The story advances to its stage number %d.\n", i)
		sb.WriteString("Key events:\n")
		fmt.Fprintf(&sb, "- A discovery in part %d\n", i)
		sb.WriteString("- A choice that cannot be undone\n")
		sb.WriteString("Characters involved:\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "- %s\n", name)
		}
		sb.WriteString("Locations:\n")
		fmt.Fprintf(&sb, "- Room %d\n\n", i)
	}
	return sb.String()
}

// mockCharacters reads the "Available characters:" line of a planner prompt.
func mockCharacters(user string) []string {
	for _, line := range strings.Split(user, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if !strings.HasPrefix(lower, "available characters:") && !strings.HasPrefix(lower, "personajes disponibles:") {
			continue
		}
		_, rest, _ := strings.Cut(line, ":")
		var out []string
		for _, name := range strings.Split(rest, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{"Narrator"}
}
