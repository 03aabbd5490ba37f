package operator

import (
	"fmt"

	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

// mergeSessionUpdate applies a partial `session.update` payload on top
// of the current CallConfig and validates the result. Fields absent from
// the payload are left untouched — config updates mid-call affect
// future timer arms only.
func mergeSessionUpdate(current orchestrator.CallConfig, session map[string]interface{}) (orchestrator.CallConfig, error) {
	next := current

	if v, ok := session["activationMode"]; ok {
		s, ok := v.(string)
		if !ok {
			return current, fmt.Errorf("activationMode must be a string")
		}
		next.ActivationMode = orchestrator.ActivationMode(s)
	}
	if v, ok := session["bargeInDelaySeconds"]; ok {
		f, err := asFloat(v, "bargeInDelaySeconds")
		if err != nil {
			return current, err
		}
		next.BargeInDelaySeconds = f
	}
	if v, ok := session["noSpeechBeginTimeoutSeconds"]; ok {
		f, err := asFloat(v, "noSpeechBeginTimeoutSeconds")
		if err != nil {
			return current, err
		}
		next.NoSpeechBeginTimeoutSeconds = f
	}
	if v, ok := session["initialStreamIdleTimeoutSeconds"]; ok {
		f, err := asFloat(v, "initialStreamIdleTimeoutSeconds")
		if err != nil {
			return current, err
		}
		next.InitialStreamIdleTimeoutSeconds = f
	}
	if v, ok := session["speechEndSilenceTimeoutSeconds"]; ok {
		f, err := asFloat(v, "speechEndSilenceTimeoutSeconds")
		if err != nil {
			return current, err
		}
		next.SpeechEndSilenceTimeoutSeconds = f
	}
	if v, ok := session["maxRecognitionDurationSeconds"]; ok {
		f, err := asFloat(v, "maxRecognitionDurationSeconds")
		if err != nil {
			return current, err
		}
		next.MaxRecognitionDurationSeconds = f
	}
	if v, ok := session["dtmfEnabled"]; ok {
		b, ok := v.(bool)
		if !ok {
			return current, fmt.Errorf("dtmfEnabled must be a boolean")
		}
		next.DTMFEnabled = b
	}

	if err := next.Validate(); err != nil {
		return current, err
	}
	return next, nil
}

func asFloat(v interface{}, field string) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s must be a number", field)
	}
}
