// Command bridge wires process configuration, logging, metrics, the
// operator control plane, and a per-call orchestrator factory around an
// externally supplied Asterisk ARI client (pkg/ari.Client). The ARI
// transport itself is out of scope for this module; NewBridge accepts one
// built by the deployment (see pkg/ari's doc comment).
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lokutor-ai/ari-voicebridge/pkg/ari"
	"github.com/lokutor-ai/ari-voicebridge/pkg/config"
	"github.com/lokutor-ai/ari-voicebridge/pkg/logging"
	"github.com/lokutor-ai/ari-voicebridge/pkg/operator"
	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
	"github.com/lokutor-ai/ari-voicebridge/pkg/providers/batch"
	"github.com/lokutor-ai/ari-voicebridge/pkg/providers/recognizer"
	"github.com/lokutor-ai/ari-voicebridge/pkg/telemetry"
)

// Bridge demultiplexes ARI events by channel ID into one Orchestrator per
// call, and registers each with the operator hub when its channel enters
// the ARI application.
type Bridge struct {
	cfg     config.Config
	client  ari.Client
	hub     *operator.Hub
	logger  orchestrator.Logger
	batch   orchestrator.BatchFallback
	metrics *telemetry.Metrics

	mu       sync.Mutex
	calls    map[string]*callWiring
	answered map[string]time.Time
}

// callWiring holds the concrete per-call components the ARI event dispatch
// needs to notify directly (Playback/VAD), alongside the orchestrator that
// drives the call's state machine.
type callWiring struct {
	callID       string
	orchestrator *orchestrator.Orchestrator
	playback     *orchestrator.PlaybackController
	vad          *orchestrator.ARITalkDetectVAD
}

// NewBridge wires one Bridge. client must already be connected to the ARI
// application named by cfg.AriAppName.
func NewBridge(cfg config.Config, client ari.Client, hub *operator.Hub, logger orchestrator.Logger, metrics *telemetry.Metrics) *Bridge {
	b := &Bridge{
		cfg:      cfg,
		client:   client,
		hub:      hub,
		logger:   logger,
		metrics:  metrics,
		calls:    make(map[string]*callWiring),
		answered: make(map[string]time.Time),
	}
	if cfg.GoogleCredentialsFile != "" {
		b.batch = batch.NewGoogleBatchRecognizer(cfg.GoogleCredentialsFile, 8000, "MULAW")
	}
	client.OnEvent(b.handleARIEvent)
	client.OnAudio(b.handleARIAudio)
	return b
}

// recognizerFactory returns a fresh RecognizerFactory for a new call,
// selecting the provider per cfg.OpenAIAPIKey / cfg.GoogleCredentialsFile
// (OpenAI Realtime takes precedence when both are configured, since it
// also emits spoken responses via SpeechAudioEmitter).
func (b *Bridge) recognizerFactory() orchestrator.RecognizerFactory {
	switch {
	case b.cfg.OpenAIAPIKey != "":
		return func() orchestrator.RecognizerSession {
			return recognizer.NewOpenAIRealtimeSession(b.cfg.OpenAIAPIKey, b.cfg.OpenAIModel)
		}
	case b.cfg.GoogleCredentialsFile != "":
		return func() orchestrator.RecognizerSession {
			return recognizer.NewGoogleStreamingSession(b.cfg.GoogleCredentialsFile)
		}
	default:
		b.logger.Warn("no recognizer provider configured, calls will never activate speech")
		return func() orchestrator.RecognizerSession { return nil }
	}
}

func (b *Bridge) handleARIEvent(ev ari.Event) {
	if ev.Type == ari.EventChannelEntered {
		b.onChannelEntered(ev.ChannelID)
		return
	}

	b.mu.Lock()
	w, ok := b.calls[ev.ChannelID]
	b.mu.Unlock()
	if !ok {
		b.logger.Warn("ari event for unknown channel", "channelId", ev.ChannelID, "type", string(ev.Type))
		return
	}
	o := w.orchestrator

	switch ev.Type {
	case ari.EventAnswered:
		b.mu.Lock()
		b.answered[ev.ChannelID] = time.Now()
		b.mu.Unlock()
		if b.metrics != nil {
			b.metrics.ActiveCalls.Add(context.Background(), 1)
		}
		o.HandleAnswered(nil)
	case ari.EventPlaybackFinished:
		// Routed through the PlaybackController so its queue/active bookkeeping
		// advances before HandlePlaybackEnded fires via its OnEnded callback.
		w.playback.NotifyPlaybackFinished()
	case ari.EventPlaybackFailed:
		w.playback.NotifyPlaybackFailed(ari.ErrPlaybackFailed)
	case ari.EventChannelTalkingStarted:
		w.vad.NotifyTalkingStarted()
	case ari.EventChannelTalkingFinished:
		w.vad.NotifyTalkingFinished(ev.TalkingDurationMs)
	case ari.EventChannelDtmfReceived:
		o.HandleDTMFDigit(ev.Digit)
	case ari.EventChannelDestroyed, ari.EventChannelHangup:
		o.Wait()
		b.recordTermination(ev.ChannelID, o)
		b.mu.Lock()
		delete(b.calls, ev.ChannelID)
		delete(b.answered, ev.ChannelID)
		b.mu.Unlock()
		b.hub.UnregisterCall(w.callID)
	}
}

// recordTermination folds a finished call's outcome into the process
// metrics: total wall-clock duration since Answered, and a count against
// its cleanup reason.
func (b *Bridge) recordTermination(channelID string, o *orchestrator.Orchestrator) {
	if b.metrics == nil {
		return
	}
	b.metrics.ActiveCalls.Add(context.Background(), -1)

	b.mu.Lock()
	answeredAt, ok := b.answered[channelID]
	b.mu.Unlock()
	if ok {
		b.metrics.CallDurationMs.Record(context.Background(), float64(time.Since(answeredAt).Milliseconds()))
	}

	reason := "unknown"
	if outcome := o.Outcome(); outcome != nil && outcome.Reason != "" {
		reason = outcome.Reason
	}
	b.metrics.CleanupReasons.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (b *Bridge) handleARIAudio(frame ari.AudioFrame) {
	b.mu.Lock()
	w, ok := b.calls[frame.ChannelID]
	b.mu.Unlock()
	if !ok {
		return
	}
	w.orchestrator.HandleAudioFrame(frame.Bytes)
}

// onChannelEntered allocates a fresh Call + Orchestrator, wires its
// children (playback, VAD) to the channel adapter, registers it with the
// operator hub, and starts its single-writer queue.
func (b *Bridge) onChannelEntered(channelID string) {
	adapter := &ari.ChannelAdapter{Client: b.client, ChannelID: channelID}

	// Caller-ID extraction is ARI-transport-specific and out of scope here;
	// the channel ID doubles as caller ID until a concrete client supplies
	// the real one (e.g. by emitting a dedicated ari.Event field).
	call := orchestrator.NewCall(channelID, channelID, orchestrator.DefaultCallConfig())

	var o *orchestrator.Orchestrator
	observer := func(ev orchestrator.OrchestratorEvent) {
		if ev.Type == "timer_event" && b.metrics != nil {
			name, _ := ev.Payload.(orchestrator.TimerName)
			b.metrics.TimerFires.Add(context.Background(), 1, metric.WithAttributes(attribute.String("timer", string(name))))
		}
		b.hub.Broadcast(operator.Envelope{
			Type:      operator.EventType(ev.Type),
			CallID:    ev.CallID,
			Timestamp: ev.Timestamp,
			Payload:   ev.Payload,
		})
	}
	o = orchestrator.NewOrchestrator(call, adapter, b.recognizerFactory(), b.batch, b.logger, observer)

	playback := orchestrator.NewPlaybackController(channelID, adapter, orchestrator.PlaybackCallbacks{
		OnStarted: o.HandlePlaybackStarted,
		OnEnded:   o.HandlePlaybackEnded,
		OnFailed:  o.HandlePlaybackFailed,
	})
	vad := orchestrator.NewARITalkDetectVAD(adapter, channelID, o.HandleVADEvent)
	call.Playback = playback
	call.VAD = vad

	b.mu.Lock()
	b.calls[channelID] = &callWiring{callID: call.ID, orchestrator: o, playback: playback, vad: vad}
	b.mu.Unlock()

	b.hub.RegisterCall(operator.NewOrchestratorHandle(call, o))

	o.Start(context.Background())
}

func main() {
	configPath := flag.String("config", "", "optional YAML config file overlaying defaults and env vars")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := logging.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		log.Fatalf("building metrics: %v", err)
	}
	defer metrics.Shutdown(context.Background())

	hub := operator.NewHub(logger)
	server := operator.NewServer(hub, logger, cfg.OperatorListenAddr)
	metricsServer := &http.Server{Addr: cfg.MetricsListenAddr, Handler: promhttp.Handler()}

	client := buildARIClient(cfg)
	_ = NewBridge(cfg, client, hub, logger, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go func() {
		logger.Info("operator console listening", "addr", cfg.OperatorListenAddr)
		if err := server.ListenAndServe(); err != nil {
			logger.Error("operator server exited", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsListenAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server exited", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("operator server shutdown error", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
}
