// Package diff computes partial update payloads from edited assistant forms.
package diff

import (
	"github.com/xiaot623/assistdesk/internal/domain"
)

// AssistantForm holds edited values. A nil field is not on the form and never
// produces a change.
type AssistantForm struct {
	Name         *string `json:"name,omitempty"`
	FirstMessage *string `json:"firstMessage,omitempty"`
	SystemPrompt *string `json:"systemPrompt,omitempty"`

	ModelProvider *string  `json:"modelProvider,omitempty"`
	Model         *string  `json:"model,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"maxTokens,omitempty"`

	VoiceProvider *string  `json:"voiceProvider,omitempty"`
	VoiceID       *string  `json:"voiceId,omitempty"`
	VoiceSpeed    *float64 `json:"voiceSpeed,omitempty"`

	TranscriberProvider *string `json:"transcriberProvider,omitempty"`
	TranscriberModel    *string `json:"transcriberModel,omitempty"`
	TranscriberLanguage *string `json:"transcriberLanguage,omitempty"`

	BackgroundSound       *string   `json:"backgroundSound,omitempty"`
	EndCallPhrases        *[]string `json:"endCallPhrases,omitempty"`
	SilenceTimeoutSeconds *float64  `json:"silenceTimeoutSeconds,omitempty"`
	MaxDurationSeconds    *float64  `json:"maxDurationSeconds,omitempty"`
	RecordingEnabled      *bool     `json:"recordingEnabled,omitempty"`
	HipaaEnabled          *bool     `json:"hipaaEnabled,omitempty"`
	ServerURL             *string   `json:"serverUrl,omitempty"`
	ServerSecret          *string   `json:"serverSecret,omitempty"`
}

// FormFromConfig pre-fills every form field from cfg, the way the editor
// shows the loaded values.
func FormFromConfig(cfg domain.AssistantConfig) AssistantForm {
	model := domain.Value(cfg.Model)
	voice := domain.Value(cfg.Voice)
	transcriber := domain.Value(cfg.Transcriber)
	phrases := append([]string(nil), cfg.EndCallPhrases...)

	return AssistantForm{
		Name:         domain.Ptr(domain.Value(cfg.Name)),
		FirstMessage: domain.Ptr(domain.Value(cfg.FirstMessage)),
		SystemPrompt: domain.Ptr(SystemPrompt(cfg)),

		ModelProvider: domain.Ptr(domain.Value(model.Provider)),
		Model:         domain.Ptr(domain.Value(model.Model)),
		Temperature:   domain.Ptr(domain.Value(model.Temperature)),
		MaxTokens:     domain.Ptr(domain.Value(model.MaxTokens)),

		VoiceProvider: domain.Ptr(domain.Value(voice.Provider)),
		VoiceID:       domain.Ptr(domain.Value(voice.VoiceID)),
		VoiceSpeed:    domain.Ptr(domain.Value(voice.Speed)),

		TranscriberProvider: domain.Ptr(domain.Value(transcriber.Provider)),
		TranscriberModel:    domain.Ptr(domain.Value(transcriber.Model)),
		TranscriberLanguage: domain.Ptr(domain.Value(transcriber.Language)),

		BackgroundSound:       domain.Ptr(domain.Value(cfg.BackgroundSound)),
		EndCallPhrases:        &phrases,
		SilenceTimeoutSeconds: domain.Ptr(domain.Value(cfg.SilenceTimeoutSeconds)),
		MaxDurationSeconds:    domain.Ptr(domain.Value(cfg.MaxDurationSeconds)),
		RecordingEnabled:      domain.Ptr(domain.Value(cfg.RecordingEnabled)),
		HipaaEnabled:          domain.Ptr(domain.Value(cfg.HipaaEnabled)),
		ServerURL:             domain.Ptr(domain.Value(cfg.ServerURL)),
		ServerSecret:          domain.Ptr(domain.Value(cfg.ServerSecret)),
	}
}
