// Package recognizer adapts external speech backends to the orchestrator's
// unified RecognizerSession contract, behind one interface whether the
// backend is streaming transcription only (Google) or speech-to-speech
// (OpenAI Realtime).
package recognizer

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

// GoogleStreamingSession implements orchestrator.RecognizerSession against
// Google Cloud Speech's streaming recognize RPC.
type GoogleStreamingSession struct {
	credentialsFile string

	mu     sync.Mutex
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc

	callbacks orchestrator.RecognizerCallbacks
	closed    bool
}

// NewGoogleStreamingSession builds a session that authenticates using the
// service-account credentials file named by one environment variable.
func NewGoogleStreamingSession(credentialsFile string) *GoogleStreamingSession {
	return &GoogleStreamingSession{credentialsFile: credentialsFile}
}

func (s *GoogleStreamingSession) Open(ctx context.Context, cfg orchestrator.RecognizerConfig, callbacks orchestrator.RecognizerCallbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = callbacks

	streamCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	var opts []option.ClientOption
	if s.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.credentialsFile))
	}
	client, err := speech.NewClient(streamCtx, opts...)
	if err != nil {
		cancel()
		return err
	}
	s.client = client

	stream, err := client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		client.Close()
		return err
	}
	s.stream = stream

	recognitionCfg := &speechpb.RecognitionConfig{
		Encoding:              encodingFromString(cfg.Encoding),
		SampleRateHertz:       int32(cfg.SampleRateHertz),
		LanguageCode:          cfg.LanguageCode,
		Model:                 cfg.Model,
		UseEnhanced:           cfg.UseEnhanced,
		EnableWordTimeOffsets: cfg.WordTimeOffsets,
		EnableAutomaticPunctuation: cfg.AutomaticPunctuation,
	}
	if cfg.SpeakerDiarization {
		recognitionCfg.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{EnableSpeakerDiarization: true}
	}
	if cfg.VADSpeechStartTimeoutSeconds > 0 || cfg.VADSpeechEndTimeoutSeconds > 0 {
		recognitionCfg.Metadata = &speechpb.RecognitionMetadata{}
	}

	streamingCfg := &speechpb.StreamingRecognitionConfig{
		Config:                  recognitionCfg,
		InterimResults:          cfg.InterimResults,
		SingleUtterance:         cfg.SingleUtterance,
		EnableVoiceActivityEvents: cfg.EnableVoiceActivityEvents,
		VoiceActivityTimeout: &speechpb.StreamingRecognitionConfig_VoiceActivityTimeout{
			SpeechStartTimeout: secondsToProtoDuration(cfg.VADSpeechStartTimeoutSeconds),
			SpeechEndTimeout:   secondsToProtoDuration(cfg.VADSpeechEndTimeoutSeconds),
		},
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{StreamingConfig: streamingCfg},
	}); err != nil {
		cancel()
		client.Close()
		return err
	}

	go s.receiveLoop(stream)
	return nil
}

func (s *GoogleStreamingSession) receiveLoop(stream speechpb.Speech_StreamingRecognizeClient) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			s.reportClosed(err)
			return
		}
		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			alt := result.Alternatives[0]
			s.callbacks.OnTranscript(orchestrator.Transcript{
				Text:         alt.Transcript,
				IsFinal:      result.IsFinal,
				Confidence:   float64(alt.Confidence),
				LanguageCode: result.LanguageCode,
			})
		}
		switch resp.SpeechEventType {
		case speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_BEGIN:
			s.callbacks.OnEvent(orchestrator.ActivityBegin)
		case speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_END:
			s.callbacks.OnEvent(orchestrator.ActivityEnd)
		case speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_TIMEOUT:
			s.callbacks.OnEvent(orchestrator.ActivityTimeout)
		}
	}
}

func (s *GoogleStreamingSession) reportClosed(err error) {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.mu.Unlock()
	if alreadyClosed {
		return
	}
	if errors.Is(err, io.EOF) {
		s.callbacks.OnClosed("stream_ended")
		return
	}
	s.callbacks.OnError(err)
}

func (s *GoogleStreamingSession) SendAudio(chunk []byte) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return errors.New("recognizer session not open")
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: chunk},
	})
}

func (s *GoogleStreamingSession) HalfClose() error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.CloseSend()
}

func (s *GoogleStreamingSession) Close(reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	client := s.client
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if client != nil {
		return client.Close()
	}
	return nil
}

func encodingFromString(enc string) speechpb.RecognitionConfig_AudioEncoding {
	switch enc {
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// secondsToProtoDuration splits a float seconds value into the integer
// seconds + nanos shape protobuf's Duration wants for voiceActivityTimeout.
func secondsToProtoDuration(seconds float64) *durationpb.Duration {
	if seconds <= 0 {
		return nil
	}
	whole := time.Duration(seconds * float64(time.Second))
	return durationpb.New(whole)
}
