package orchestrator

import (
	"github.com/go-playground/validator/v10"
)

// ActivationMode selects how PreRecognition hands off to Activating/Streaming.
type ActivationMode string

const (
	ActivationImmediate  ActivationMode = "immediate"
	ActivationFixedDelay ActivationMode = "fixedDelay"
	ActivationVAD        ActivationMode = "vad"
)

// VADMode selects how the vad activation policy treats prompt playback.
type VADMode string

const (
	VADModeStandard    VADMode = "vadMode"
	VADModeAfterPrompt VADMode = "afterPrompt"
)

// CallConfig is the recognized-options bundle owned exclusively by one Call,
// mutable only via the operator control plane while the call is live.
type CallConfig struct {
	ActivationMode      ActivationMode `validate:"required,oneof=immediate fixedDelay vad"`
	BargeInDelaySeconds float64        `validate:"gte=0"`

	NoSpeechBeginTimeoutSeconds     float64 `validate:"gte=0"`
	InitialStreamIdleTimeoutSeconds float64 `validate:"gt=0"`
	SpeechEndSilenceTimeoutSeconds  float64 `validate:"gt=0"`
	MaxRecognitionDurationSeconds   float64 `validate:"gt=0"`

	VADMode                     VADMode `validate:"omitempty,oneof=vadMode afterPrompt"`
	VADInitialSilenceDelaySeconds float64 `validate:"gte=0"`
	VADActivationDelaySeconds     float64 `validate:"gte=0"`
	VADMaxWaitAfterPromptSeconds  float64 `validate:"gte=0"`
	VADSilenceThresholdMs         int     `validate:"gte=0"`
	VADTalkThreshold               int     `validate:"gte=0"`

	DTMFEnabled                 bool
	DTMFInterDigitTimeoutSeconds float64 `validate:"gte=0"`
	DTMFFinalTimeoutSeconds      float64 `validate:"gte=0"`

	Recognizer RecognizerConfig `validate:"required"`
}

var configValidator = validator.New()

// Validate checks CallConfig against its closed enums and numeric bounds.
// A failure is surfaced as ConfigInvalid; callers must leave the prior
// config intact rather than applying a partially-valid update.
func (c CallConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return NewCallError(ConfigInvalid, err)
	}
	return nil
}

// DefaultCallConfig returns conservative defaults suitable as a starting
// point before any operator mutation or per-call override is applied.
func DefaultCallConfig() CallConfig {
	return CallConfig{
		ActivationMode:                  ActivationImmediate,
		NoSpeechBeginTimeoutSeconds:     8,
		InitialStreamIdleTimeoutSeconds: 5,
		SpeechEndSilenceTimeoutSeconds:  1.5,
		MaxRecognitionDurationSeconds:   60,
		VADMode:                        VADModeStandard,
		VADInitialSilenceDelaySeconds:  0.3,
		VADActivationDelaySeconds:      0.2,
		VADMaxWaitAfterPromptSeconds:   6,
		VADSilenceThresholdMs:          600,
		VADTalkThreshold:               160,
		DTMFEnabled:                    true,
		DTMFInterDigitTimeoutSeconds:   3,
		DTMFFinalTimeoutSeconds:        2,
		Recognizer: RecognizerConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: 8000,
			LanguageCode:    "en-US",
			InterimResults:  true,
		},
	}
}
