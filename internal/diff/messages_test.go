package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/assistdesk/internal/domain"
)

func msgs(pairs ...string) []domain.Message {
	out := make([]domain.Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.Message{Role: pairs[i], Content: pairs[i+1]})
	}
	return out
}

func TestMergeSystemPrompt(t *testing.T) {
	cases := []struct {
		name   string
		input  []domain.Message
		prompt string
		want   []domain.Message
	}{
		{
			name:   "replaces existing system entry",
			input:  msgs("system", "A", "user", "hi"),
			prompt: "B",
			want:   msgs("system", "B", "user", "hi"),
		},
		{
			name:   "inserts at front when missing",
			input:  msgs("user", "hi"),
			prompt: "B",
			want:   msgs("system", "B", "user", "hi"),
		},
		{
			name:   "empty prompt without system entry is unchanged",
			input:  msgs("user", "hi"),
			prompt: "",
			want:   msgs("user", "hi"),
		},
		{
			name:   "empty prompt clears existing system entry",
			input:  msgs("system", "A"),
			prompt: "",
			want:   msgs("system", ""),
		},
		{
			name:   "keeps position of system entry",
			input:  msgs("user", "hi", "system", "A"),
			prompt: "B",
			want:   msgs("user", "hi", "system", "B"),
		},
		{
			name:   "drops later system entries",
			input:  msgs("system", "A", "user", "hi", "system", "C"),
			prompt: "B",
			want:   msgs("system", "B", "user", "hi"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := append([]domain.Message(nil), tc.input...)
			got := MergeSystemPrompt(tc.input, tc.prompt)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, before, tc.input)

			systems := 0
			for _, m := range got {
				if m.Role == domain.RoleSystem {
					systems++
				}
			}
			assert.LessOrEqual(t, systems, 1)
		})
	}
}

func TestSystemPrompt(t *testing.T) {
	assert.Equal(t, "", SystemPrompt(domain.AssistantConfig{}))
	cfg := domain.AssistantConfig{Model: &domain.ModelConfig{Messages: msgs("user", "hi", "system", "S")}}
	assert.Equal(t, "S", SystemPrompt(cfg))
}
