// Package batch adapts Google Cloud Speech's one-shot Recognize RPC to the
// orchestrator's BatchFallback contract.
package batch

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"golang.org/x/sync/semaphore"
	"google.golang.org/api/option"

	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

// maxConcurrentBatchRequests bounds how many calls can be in batch fallback
// against Google Speech's Recognize RPC at once, process-wide. Batch
// fallback only runs when streaming produced nothing, but a burst of calls
// failing to stream simultaneously (e.g. a transient network blip) would
// otherwise fan out one Recognize RPC per call with no ceiling.
const maxConcurrentBatchRequests = 8

// GoogleBatchRecognizer implements orchestrator.BatchFallback. It never
// retries; any failure (empty input, unreadable audio, no alternatives, API
// error) is reported the same way: an empty string.
type GoogleBatchRecognizer struct {
	credentialsFile string
	sampleRateHertz int
	encoding        speechpb.RecognitionConfig_AudioEncoding
	sem             *semaphore.Weighted
}

// NewGoogleBatchRecognizer builds a recognizer for one-shot transcription.
func NewGoogleBatchRecognizer(credentialsFile string, sampleRateHertz int, encoding string) *GoogleBatchRecognizer {
	return &GoogleBatchRecognizer{
		credentialsFile: credentialsFile,
		sampleRateHertz: sampleRateHertz,
		encoding:        audioEncodingFromString(encoding),
		sem:             semaphore.NewWeighted(maxConcurrentBatchRequests),
	}
}

var _ orchestrator.BatchFallback = (*GoogleBatchRecognizer)(nil)

func (g *GoogleBatchRecognizer) Transcribe(ctx context.Context, audio []byte, langCode string) string {
	if len(audio) == 0 {
		return ""
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return ""
	}
	defer g.sem.Release(1)

	var opts []option.ClientOption
	if g.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(g.credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return ""
	}
	defer client.Close()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        g.encoding,
			SampleRateHertz: int32(g.sampleRateHertz),
			LanguageCode:    langCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return ""
	}
	if len(resp.Results) == 0 || len(resp.Results[0].Alternatives) == 0 {
		return ""
	}
	return resp.Results[0].Alternatives[0].Transcript
}

func audioEncodingFromString(enc string) speechpb.RecognitionConfig_AudioEncoding {
	switch enc {
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
