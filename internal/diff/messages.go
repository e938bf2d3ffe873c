package diff

import "github.com/xiaot623/assistdesk/internal/domain"

// MergeSystemPrompt returns messages with the system prompt set to prompt.
// The first system entry has its content replaced and later system entries
// are dropped. With no system entry, a non-empty prompt is inserted at the
// front; an empty one leaves the sequence as is. messages is not modified.
func MergeSystemPrompt(messages []domain.Message, prompt string) []domain.Message {
	out := make([]domain.Message, 0, len(messages)+1)
	found := false
	for _, m := range messages {
		if m.Role != domain.RoleSystem {
			out = append(out, m)
			continue
		}
		if found {
			continue
		}
		found = true
		m.Content = prompt
		out = append(out, m)
	}
	if !found && prompt != "" {
		out = append([]domain.Message{{Role: domain.RoleSystem, Content: prompt}}, out...)
	}
	return out
}

// SystemPrompt returns the content of the first system message in cfg.
func SystemPrompt(cfg domain.AssistantConfig) string {
	if cfg.Model == nil {
		return ""
	}
	for _, m := range cfg.Model.Messages {
		if m.Role == domain.RoleSystem {
			return m.Content
		}
	}
	return ""
}

func messagesEqual(a, b []domain.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Role != b[i].Role || a[i].Content != b[i].Content {
			return false
		}
	}
	return true
}
