// Package domain defines the records exchanged with the assistant platform and
// the local call history.
package domain

import "encoding/json"

// Message roles used in a model's message list.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a model's message list.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Extra   Extra  `json:"-"`
}

type messageFields Message

func (m *Message) UnmarshalJSON(data []byte) error {
	var f messageFields
	extra, err := decodeWithExtra(data, &f)
	if err != nil {
		return err
	}
	*m = Message(f)
	m.Extra = extra
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(messageFields(m), m.Extra)
}

// ModelConfig is the assistant's language model section.
type ModelConfig struct {
	Provider    *string   `json:"provider,omitempty"`
	Model       *string   `json:"model,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"maxTokens,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
	Extra       Extra     `json:"-"`
}

type modelFields ModelConfig

func (m *ModelConfig) UnmarshalJSON(data []byte) error {
	var f modelFields
	extra, err := decodeWithExtra(data, &f)
	if err != nil {
		return err
	}
	*m = ModelConfig(f)
	m.Extra = extra
	return nil
}

func (m ModelConfig) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(modelFields(m), m.Extra)
}

// VoiceConfig is the assistant's text-to-speech section.
type VoiceConfig struct {
	Provider *string  `json:"provider,omitempty"`
	VoiceID  *string  `json:"voiceId,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Extra    Extra    `json:"-"`
}

type voiceFields VoiceConfig

func (v *VoiceConfig) UnmarshalJSON(data []byte) error {
	var f voiceFields
	extra, err := decodeWithExtra(data, &f)
	if err != nil {
		return err
	}
	*v = VoiceConfig(f)
	v.Extra = extra
	return nil
}

func (v VoiceConfig) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(voiceFields(v), v.Extra)
}

// TranscriberConfig is the assistant's speech-to-text section.
type TranscriberConfig struct {
	Provider *string `json:"provider,omitempty"`
	Model    *string `json:"model,omitempty"`
	Language *string `json:"language,omitempty"`
	Extra    Extra   `json:"-"`
}

type transcriberFields TranscriberConfig

func (t *TranscriberConfig) UnmarshalJSON(data []byte) error {
	var f transcriberFields
	extra, err := decodeWithExtra(data, &f)
	if err != nil {
		return err
	}
	*t = TranscriberConfig(f)
	t.Extra = extra
	return nil
}

func (t TranscriberConfig) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(transcriberFields(t), t.Extra)
}

// AssistantConfig is an assistant as returned by the platform. The local copy
// may be stale; the platform owns the record.
type AssistantConfig struct {
	// Server-assigned, read-only.
	ID        *string `json:"id,omitempty"`
	OrgID     *string `json:"orgId,omitempty"`
	CreatedAt *string `json:"createdAt,omitempty"`
	UpdatedAt *string `json:"updatedAt,omitempty"`

	Name                  *string            `json:"name,omitempty"`
	FirstMessage          *string            `json:"firstMessage,omitempty"`
	Model                 *ModelConfig       `json:"model,omitempty"`
	Voice                 *VoiceConfig       `json:"voice,omitempty"`
	Transcriber           *TranscriberConfig `json:"transcriber,omitempty"`
	BackgroundSound       *string            `json:"backgroundSound,omitempty"`
	EndCallPhrases        []string           `json:"endCallPhrases,omitempty"`
	SilenceTimeoutSeconds *float64           `json:"silenceTimeoutSeconds,omitempty"`
	MaxDurationSeconds    *float64           `json:"maxDurationSeconds,omitempty"`
	RecordingEnabled      *bool              `json:"recordingEnabled,omitempty"`
	HipaaEnabled          *bool              `json:"hipaaEnabled,omitempty"`
	ServerURL             *string            `json:"serverUrl,omitempty"`
	ServerSecret          *string            `json:"serverSecret,omitempty"`

	Extra Extra `json:"-"`
}

type assistantFields AssistantConfig

func (a *AssistantConfig) UnmarshalJSON(data []byte) error {
	var f assistantFields
	extra, err := decodeWithExtra(data, &f)
	if err != nil {
		return err
	}
	*a = AssistantConfig(f)
	a.Extra = extra
	return nil
}

func (a AssistantConfig) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(assistantFields(a), a.Extra)
}

// Clone returns a deep copy of a.
func (a AssistantConfig) Clone() AssistantConfig {
	data, err := json.Marshal(a)
	if err != nil {
		return a
	}
	var out AssistantConfig
	if err := json.Unmarshal(data, &out); err != nil {
		return a
	}
	return out
}

// AssistantID returns the server id, or "" for an unsaved config.
func (a AssistantConfig) AssistantID() string {
	return Value(a.ID)
}

// DisplayName returns the assistant name, falling back to fallback when unset.
func (a AssistantConfig) DisplayName(fallback string) string {
	if a.Name == nil || *a.Name == "" {
		return fallback
	}
	return *a.Name
}

// ForCreate returns a copy without the server-assigned fields, suitable as a
// create payload.
func (a AssistantConfig) ForCreate() AssistantConfig {
	out := a.Clone()
	out.ID = nil
	out.OrgID = nil
	out.CreatedAt = nil
	out.UpdatedAt = nil
	for _, k := range []string{"isServerUrlSecretSet"} {
		delete(out.Extra, k)
	}
	return out
}
