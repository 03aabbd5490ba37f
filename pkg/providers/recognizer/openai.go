package recognizer

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

// realtimeEnvelope mirrors the subset of the OpenAI Realtime server/client
// event vocabulary this adapter speaks: session lifecycle, input audio
// buffer speech-activity events, transcript deltas, and output audio
// chunks. Speech-to-speech means the same session both recognizes the
// caller's speech and produces the assistant's spoken reply, hence this
// adapter also implements orchestrator.SpeechAudioEmitter.
type realtimeEnvelope struct {
	Type       string `json:"type"`
	Audio      string `json:"audio,omitempty"`
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// OpenAIRealtimeSession implements orchestrator.RecognizerSession and
// orchestrator.SpeechAudioEmitter against OpenAI's Realtime API: an
// ephemeral client secret is minted via the REST SDK, then a duplex audio
// socket is opened with it. Two recognizer backends sit behind the same
// orchestrator contract: this one speech-to-speech, Google streaming
// speech-to-text only.
type OpenAIRealtimeSession struct {
	apiKey string
	model  string

	mu        sync.Mutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	callbacks orchestrator.RecognizerCallbacks
	onAudio   func([]byte)
	closed    bool
}

// NewOpenAIRealtimeSession builds a session for the given Realtime model
// (e.g. "gpt-realtime").
func NewOpenAIRealtimeSession(apiKey, model string) *OpenAIRealtimeSession {
	return &OpenAIRealtimeSession{apiKey: apiKey, model: model}
}

func (s *OpenAIRealtimeSession) Open(ctx context.Context, cfg orchestrator.RecognizerConfig, callbacks orchestrator.RecognizerCallbacks) error {
	s.mu.Lock()
	s.callbacks = callbacks
	s.mu.Unlock()

	client := openai.NewClient(option.WithAPIKey(s.apiKey))
	secret, err := client.Realtime.ClientSecrets.New(ctx, openai.RealtimeClientSecretNewParams{
		Session: openai.RealtimeSessionCreateRequestParam{
			Model: s.model,
		},
	})
	if err != nil {
		return err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(streamCtx, realtimeWSURL(s.model), &websocket.DialOptions{
		HTTPHeader: realtimeAuthHeader(secret.Value),
	})
	if err != nil {
		cancel()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	if err := wsjson.Write(streamCtx, conn, sessionUpdatePayload(cfg)); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "session.update failed")
		return err
	}

	go s.receiveLoop(streamCtx, conn)
	return nil
}

func (s *OpenAIRealtimeSession) receiveLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env realtimeEnvelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			s.reportClosed(err)
			return
		}
		switch env.Type {
		case "input_audio_buffer.speech_started":
			s.callbacks.OnEvent(orchestrator.ActivityBegin)
		case "input_audio_buffer.speech_stopped":
			s.callbacks.OnEvent(orchestrator.ActivityEnd)
		case "conversation.item.input_audio_transcription.completed":
			s.callbacks.OnTranscript(orchestrator.Transcript{Text: env.Transcript, IsFinal: true})
		case "conversation.item.input_audio_transcription.delta":
			s.callbacks.OnTranscript(orchestrator.Transcript{Text: env.Delta, IsFinal: false})
		case "response.audio.delta":
			s.deliverAudio(env.Delta)
		case "response.output_audio.delta":
			s.deliverAudio(env.Delta)
		case "error":
			s.callbacks.OnError(errors.New("openai realtime error event"))
		}
	}
}

func (s *OpenAIRealtimeSession) deliverAudio(b64 string) {
	s.mu.Lock()
	onAudio := s.onAudio
	s.mu.Unlock()
	if onAudio == nil || b64 == "" {
		return
	}
	chunk, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return
	}
	onAudio(chunk)
}

func (s *OpenAIRealtimeSession) reportClosed(err error) {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.mu.Unlock()
	if alreadyClosed {
		return
	}
	s.callbacks.OnError(err)
}

// OnAudioChunk registers the sink for assistant-spoken output audio,
// satisfying orchestrator.SpeechAudioEmitter.
func (s *OpenAIRealtimeSession) OnAudioChunk(fn func(chunk []byte)) {
	s.mu.Lock()
	s.onAudio = fn
	s.mu.Unlock()
}

func (s *OpenAIRealtimeSession) SendAudio(chunk []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("recognizer session not open")
	}
	return wsjson.Write(context.Background(), conn, realtimeEnvelope{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(chunk),
	})
}

func (s *OpenAIRealtimeSession) HalfClose() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return wsjson.Write(context.Background(), conn, realtimeEnvelope{Type: "input_audio_buffer.commit"})
}

func (s *OpenAIRealtimeSession) Close(reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, reason)
}

func realtimeWSURL(model string) string {
	return "wss://api.openai.com/v1/realtime?model=" + model
}

func realtimeAuthHeader(ephemeralKey string) map[string][]string {
	return map[string][]string{"Authorization": {"Bearer " + ephemeralKey}}
}

type realtimeSessionUpdate struct {
	Type    string `json:"type"`
	Session struct {
		InputAudioFormat string `json:"input_audio_format"`
		Instructions      string `json:"instructions,omitempty"`
	} `json:"session"`
}

func sessionUpdatePayload(cfg orchestrator.RecognizerConfig) realtimeSessionUpdate {
	update := realtimeSessionUpdate{Type: "session.update"}
	update.Session.InputAudioFormat = inputAudioFormatFromEncoding(cfg.Encoding)
	return update
}

func inputAudioFormatFromEncoding(encoding string) string {
	switch encoding {
	case "MULAW":
		return "g711_ulaw"
	case "LINEAR16":
		return "pcm16"
	default:
		return "pcm16"
	}
}
