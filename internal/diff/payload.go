package diff

import (
	"errors"
	"slices"

	"github.com/xiaot623/assistdesk/internal/domain"
)

// ErrNoChanges is returned when a save has nothing to send.
var ErrNoChanges = errors.New("no changes to save")

// ModelPatch carries the changed model sub-fields.
type ModelPatch struct {
	Provider    *string          `json:"provider,omitempty"`
	Model       *string          `json:"model,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"maxTokens,omitempty"`
	Messages    []domain.Message `json:"messages,omitempty"`
}

func (p *ModelPatch) empty() bool {
	return p.Provider == nil && p.Model == nil && p.Temperature == nil && p.MaxTokens == nil && p.Messages == nil
}

// VoicePatch carries the changed voice sub-fields.
type VoicePatch struct {
	Provider *string  `json:"provider,omitempty"`
	VoiceID  *string  `json:"voiceId,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
}

func (p *VoicePatch) empty() bool {
	return p.Provider == nil && p.VoiceID == nil && p.Speed == nil
}

// TranscriberPatch carries the changed transcriber sub-fields.
type TranscriberPatch struct {
	Provider *string `json:"provider,omitempty"`
	Model    *string `json:"model,omitempty"`
	Language *string `json:"language,omitempty"`
}

func (p *TranscriberPatch) empty() bool {
	return p.Provider == nil && p.Model == nil && p.Language == nil
}

// UpdatePayload is the sparse body of an assistant PATCH. Only changed fields
// are set; nested sections appear only when one of their fields changed.
type UpdatePayload struct {
	Name                  *string           `json:"name,omitempty"`
	FirstMessage          *string           `json:"firstMessage,omitempty"`
	Model                 *ModelPatch       `json:"model,omitempty"`
	Voice                 *VoicePatch       `json:"voice,omitempty"`
	Transcriber           *TranscriberPatch `json:"transcriber,omitempty"`
	BackgroundSound       *string           `json:"backgroundSound,omitempty"`
	EndCallPhrases        *[]string         `json:"endCallPhrases,omitempty"`
	SilenceTimeoutSeconds *float64          `json:"silenceTimeoutSeconds,omitempty"`
	MaxDurationSeconds    *float64          `json:"maxDurationSeconds,omitempty"`
	RecordingEnabled      *bool             `json:"recordingEnabled,omitempty"`
	HipaaEnabled          *bool             `json:"hipaaEnabled,omitempty"`
	ServerURL             *string           `json:"serverUrl,omitempty"`
	ServerSecret          *string           `json:"serverSecret,omitempty"`
}

// IsEmpty reports whether no field changed.
func (p UpdatePayload) IsEmpty() bool {
	return p == (UpdatePayload{})
}

// Fields lists the top-level keys present in the payload.
func (p UpdatePayload) Fields() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.Name != nil, "name")
	add(p.FirstMessage != nil, "firstMessage")
	add(p.Model != nil, "model")
	add(p.Voice != nil, "voice")
	add(p.Transcriber != nil, "transcriber")
	add(p.BackgroundSound != nil, "backgroundSound")
	add(p.EndCallPhrases != nil, "endCallPhrases")
	add(p.SilenceTimeoutSeconds != nil, "silenceTimeoutSeconds")
	add(p.MaxDurationSeconds != nil, "maxDurationSeconds")
	add(p.RecordingEnabled != nil, "recordingEnabled")
	add(p.HipaaEnabled != nil, "hipaaEnabled")
	add(p.ServerURL != nil, "serverUrl")
	add(p.ServerSecret != nil, "serverSecret")
	return out
}

// changed returns edited when it is on the form and differs from original.
func changed[T comparable](original, edited *T) *T {
	if edited == nil {
		return nil
	}
	if *edited == domain.Value(original) {
		return nil
	}
	v := *edited
	return &v
}

// BuildUpdatePayload compares edited against original field by field. Absent
// original values compare as their zero value.
func BuildUpdatePayload(original domain.AssistantConfig, edited AssistantForm) UpdatePayload {
	p := UpdatePayload{
		Name:                  changed(original.Name, edited.Name),
		FirstMessage:          changed(original.FirstMessage, edited.FirstMessage),
		BackgroundSound:       changed(original.BackgroundSound, edited.BackgroundSound),
		SilenceTimeoutSeconds: changed(original.SilenceTimeoutSeconds, edited.SilenceTimeoutSeconds),
		MaxDurationSeconds:    changed(original.MaxDurationSeconds, edited.MaxDurationSeconds),
		RecordingEnabled:      changed(original.RecordingEnabled, edited.RecordingEnabled),
		HipaaEnabled:          changed(original.HipaaEnabled, edited.HipaaEnabled),
		ServerURL:             changed(original.ServerURL, edited.ServerURL),
		ServerSecret:          changed(original.ServerSecret, edited.ServerSecret),
	}

	if edited.EndCallPhrases != nil && !slices.Equal(*edited.EndCallPhrases, original.EndCallPhrases) {
		phrases := append([]string{}, *edited.EndCallPhrases...)
		p.EndCallPhrases = &phrases
	}

	model := domain.Value(original.Model)
	mp := &ModelPatch{
		Provider:    changed(model.Provider, edited.ModelProvider),
		Model:       changed(model.Model, edited.Model),
		Temperature: changed(model.Temperature, edited.Temperature),
		MaxTokens:   changed(model.MaxTokens, edited.MaxTokens),
	}
	if edited.SystemPrompt != nil {
		merged := MergeSystemPrompt(model.Messages, *edited.SystemPrompt)
		if !messagesEqual(merged, model.Messages) {
			mp.Messages = merged
		}
	}
	if !mp.empty() {
		p.Model = mp
	}

	voice := domain.Value(original.Voice)
	vp := &VoicePatch{
		Provider: changed(voice.Provider, edited.VoiceProvider),
		VoiceID:  changed(voice.VoiceID, edited.VoiceID),
		Speed:    changed(voice.Speed, edited.VoiceSpeed),
	}
	if !vp.empty() {
		p.Voice = vp
	}

	transcriber := domain.Value(original.Transcriber)
	tp := &TranscriberPatch{
		Provider: changed(transcriber.Provider, edited.TranscriberProvider),
		Model:    changed(transcriber.Model, edited.TranscriberModel),
		Language: changed(transcriber.Language, edited.TranscriberLanguage),
	}
	if !tp.empty() {
		p.Transcriber = tp
	}

	return p
}
