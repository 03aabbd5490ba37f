package orchestrator

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// TelephonyActions is the slice of ARI-like actions the orchestrator itself
// issues directly (answer, hangup, outcome variable publication); playback
// and talk-detect arming go through PlaybackController and VADSensor
// respectively.
type TelephonyActions interface {
	Answer(ctx context.Context, channelID string) error
	Hangup(ctx context.Context, channelID string) error
	PublishOutcomeVar(ctx context.Context, channelID, name, value string) error
}

// OrchestratorEvent is one transition mirrored to the operator hub.
// Observers receive events in orchestrator emission order.
type OrchestratorEvent struct {
	CallID    string
	Type      string
	Payload   interface{}
	Timestamp time.Time
}

// OrchestratorObserver receives every emitted event, in emission order.
type OrchestratorObserver func(OrchestratorEvent)

// RecognizerFactory opens a fresh RecognizerSession for a call. At most one
// session is ever open at a time per call; the orchestrator calls this
// again only after the prior session has fully closed.
type RecognizerFactory func() RecognizerSession

// Orchestrator is the finite state machine that owns one Call. Every
// external event reaching it — timer fires, recognizer callbacks, VAD
// events, DTMF digits, playback lifecycle, operator mutations — is
// serialized onto a single logical queue; Orchestrator itself is the
// only thing that ever mutates Call state, and it does so exclusively from
// the goroutine draining that queue.
type Orchestrator struct {
	call *Call

	telephony         TelephonyActions
	recognizerFactory RecognizerFactory
	batch             BatchFallback
	logger            Logger
	observer          OrchestratorObserver

	queue     chan func()
	closeOnce sync.Once
	closed    chan struct{}

	// Derived predicates the FSM consults directly rather than scattering
	// booleans across callback closures.
	sawActivityOrTranscript bool
	sawAnyRecognizerEvent   bool
	speechEndSilenceFired   bool
	vadSpeechStartSeen      bool
	promptEnded             bool
	vadInitialSilenceDone   bool
	vadActivationDelayDone  bool

	recordedAudio   []byte
	gotFinalTranscript bool
	voiceOutSession    bool
	ttsBytesAccumulated int

	outcome          *CallOutcome
	cleanupStarted   bool
	cleanupFinished  bool
}

// PlaybackEventPayload is the payload shape mirrored to the operator hub for
// playback_started, playback_failed_to_start, tts_playback_interrupted and
// playback_all_stopped_action events.
type PlaybackEventPayload struct {
	PlaybackID string `json:"playbackId"`
	Purpose    string `json:"purpose,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewOrchestrator builds an Orchestrator for a freshly allocated Call. Start
// must be called once to begin draining its queue.
func NewOrchestrator(call *Call, telephony TelephonyActions, recognizerFactory RecognizerFactory, batch BatchFallback, logger Logger, observer OrchestratorObserver) *Orchestrator {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	o := &Orchestrator{
		call:              call,
		telephony:         telephony,
		recognizerFactory: recognizerFactory,
		batch:             batch,
		logger:            logger,
		observer:          observer,
		queue:             make(chan func(), 256),
		closed:            make(chan struct{}),
	}
	call.Timers = NewTimerRegistry(o.post)
	call.FramePump = NewFramePump(logger)
	return o
}

// Start launches the goroutine that drains the call's single-writer queue.
// It returns immediately; the queue runs until Close is posted and drained.
func (o *Orchestrator) Start(ctx context.Context) {
	go o.run(ctx)
}

func (o *Orchestrator) run(ctx context.Context) {
	done := ctx.Done()
	for {
		select {
		case fn, ok := <-o.queue:
			if !ok {
				close(o.closed)
				return
			}
			fn()
		case <-done:
			done = nil
			if !o.cleanupFinished {
				o.enqueueClose("context_cancelled")
			}
		}
	}
}

// post schedules fn to run on the call's queue. Safe to call from any
// goroutine (timer fires, recognizer callbacks, HTTP handlers).
func (o *Orchestrator) post(fn func()) {
	select {
	case o.queue <- fn:
	case <-o.closed:
	}
}

// Wait blocks until the queue has fully drained after Close.
func (o *Orchestrator) Wait() {
	<-o.closed
}

func (o *Orchestrator) emit(eventType string, payload interface{}) {
	if o.observer == nil {
		return
	}
	o.observer(OrchestratorEvent{CallID: o.call.ID, Type: eventType, Payload: payload, Timestamp: time.Now()})
}

func (o *Orchestrator) setState(s CallState) {
	o.call.State = s
	o.emit("ari_call_status_update", s)
}

// arm is Timers.Arm plus a timer_event mirror to the operator hub, so every
// timer fire is observable from the console regardless of which one it was.
func (o *Orchestrator) arm(name TimerName, d time.Duration, onFire func()) {
	o.call.Timers.Arm(name, d, func() {
		o.emit("timer_event", name)
		onFire()
	})
}

// --- Entry points (external events), each enqueues onto the call's queue ---

// HandleAnswered runs the Answered entry actions: allocate children,
// snapshot config, seed maxRecognition, optionally enable VAD, start prompt.
func (o *Orchestrator) HandleAnswered(prompt *PlaybackClip) {
	o.post(func() { o.onAnswered(prompt) })
}

func (o *Orchestrator) onAnswered(prompt *PlaybackClip) {
	if o.call.State != StateNew {
		return
	}
	o.setState(StateAnswered)
	o.emit("call_answered", nil)

	cfg := o.call.Config.CallConfig
	o.arm(TimerMaxRecognition, secondsToDuration(cfg.MaxRecognitionDurationSeconds), func() {
		o.fullCleanup(true, "max_duration_timeout")
	})

	o.setState(StatePreRecognition)
	if cfg.ActivationMode == ActivationVAD {
		o.call.FramePump.SetBuffer(maxBufferBytes)
		if o.call.VAD != nil {
			o.call.VAD.Enable(cfg.VADTalkThreshold, cfg.VADSilenceThresholdMs)
		}
		o.arm(TimerVADInitialSilence, secondsToDuration(cfg.VADInitialSilenceDelaySeconds), func() {
			o.vadInitialSilenceDone = true
			o.maybeActivateVAD()
		})
		o.arm(TimerVADActivationDelay, secondsToDuration(cfg.VADActivationDelaySeconds), func() {
			o.vadActivationDelayDone = true
			o.maybeActivateVAD()
		})
	}

	if prompt != nil {
		o.call.Playback.Play(*prompt)
		if cfg.ActivationMode == ActivationImmediate {
			o.activate()
		}
		return
	}
	if cfg.ActivationMode == ActivationImmediate {
		o.activate()
	}
}

// HandleAudioFrame delivers one inbound telephony audio frame to the
// call's frame pump. Frames are never split, and the pump is only ever
// touched from the call's single-writer queue. A frame that correlates with
// recently played TTS audio (the call hearing its own voice rather than the
// caller's) is dropped before it can reach the recognizer and manufacture a
// false barge-in.
func (o *Orchestrator) HandleAudioFrame(chunk []byte) {
	o.post(func() {
		if o.call.EchoGuard != nil && o.call.EchoGuard.IsEcho(chunk) {
			return
		}
		if err := o.call.FramePump.Write(chunk); err != nil {
			o.logger.Warn("frame pump write failed", "error", err)
		}
	})
}

// HandlePlaybackStarted/Ended/Failed wire the Playback Controller's
// callbacks into the FSM's activation policies.
func (o *Orchestrator) HandlePlaybackStarted(id string, purpose PlaybackPurpose) {
	o.post(func() {
		o.emit("playback_started", PlaybackEventPayload{PlaybackID: id, Purpose: string(purpose)})
	})
}

func (o *Orchestrator) HandlePlaybackFailed(id string, err error) {
	o.post(func() {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		o.emit("playback_failed_to_start", PlaybackEventPayload{PlaybackID: id, Error: msg})
	})
}

func (o *Orchestrator) HandlePlaybackEnded(id string, reason PlaybackEndReason) {
	o.post(func() { o.onPlaybackEnded(id, reason) })
}

func (o *Orchestrator) onPlaybackEnded(id string, reason PlaybackEndReason) {
	switch reason {
	case PlaybackEndBargeInVAD, PlaybackEndBargeInInterim, PlaybackEndDTMF:
		o.emit("tts_playback_interrupted", PlaybackEventPayload{PlaybackID: id, Reason: string(reason)})
	case PlaybackEndCleanup:
		o.emit("playback_all_stopped_action", PlaybackEventPayload{PlaybackID: id, Reason: string(reason)})
	}

	// Only a naturally completed prompt advances the activation policy; a
	// barge-in or cleanup stop is handled by whatever interrupted it.
	if reason != PlaybackEndCompleted {
		return
	}
	if o.call.State != StatePreRecognition {
		return
	}
	o.promptEnded = true
	cfg := o.call.Config.CallConfig

	switch cfg.ActivationMode {
	case ActivationFixedDelay:
		o.arm(TimerBargeIn, secondsToDuration(cfg.BargeInDelaySeconds), func() {
			o.activate()
		})
	case ActivationVAD:
		if cfg.VADMode == VADModeAfterPrompt {
			if o.vadInitialSilenceDone && o.vadActivationDelayDone {
				o.activate()
			}
			return
		}
		o.emit("vad_post_prompt_logic_started", nil)
		o.arm(TimerVADMaxWaitAfterPrompt, secondsToDuration(cfg.VADMaxWaitAfterPromptSeconds), func() {
			o.call.Timers.Cancel(TimerVADMaxWaitAfterPrompt)
			if o.call.VAD != nil {
				o.call.VAD.Disable()
			}
			o.fullCleanup(false, "vad_max_wait_after_prompt_timeout")
		})
		o.maybeActivateVAD()
	}
}

// HandleVADEvent routes VAD Sensor Adapter events into the FSM.
func (o *Orchestrator) HandleVADEvent(ev VADEvent) {
	o.post(func() { o.onVADEvent(ev) })
}

func (o *Orchestrator) onVADEvent(ev VADEvent) {
	switch ev.Type {
	case VADSpeechStart:
		o.emit("vad_speech_detected_start", nil)
		o.vadSpeechStartSeen = true
		o.call.Timers.Cancel(TimerVADMaxWaitAfterPrompt)
		if o.call.Playback != nil && o.call.Playback.ActiveID() != "" {
			o.call.Playback.StopAll(PlaybackEndBargeInVAD)
		}
		o.maybeActivateVAD()
	case VADSpeechEnd:
		o.emit("vad_speech_detected_end", ev.DurationMs)
	}
}

// maybeActivateVAD implements the vad activation policy: both delays must
// have elapsed AND either speech was observed or the prompt already ended
// (in which case vadMaxWaitAfterPrompt governs).
func (o *Orchestrator) maybeActivateVAD() {
	if o.call.State != StatePreRecognition {
		return
	}
	cfg := o.call.Config.CallConfig
	if cfg.ActivationMode != ActivationVAD {
		return
	}
	if !o.vadInitialSilenceDone || !o.vadActivationDelayDone {
		return
	}
	if o.vadSpeechStartSeen {
		o.activate()
		return
	}
	if o.promptEnded && cfg.VADMode != VADModeAfterPrompt {
		o.arm(TimerVADMaxWaitAfterPrompt, secondsToDuration(cfg.VADMaxWaitAfterPromptSeconds), func() {
			if o.call.VAD != nil {
				o.call.VAD.Disable()
			}
			o.fullCleanup(false, "vad_max_wait_after_prompt_timeout")
		})
	}
}

// activate moves PreRecognition -> Activating -> Streaming, opening the
// recognizer session and flushing any buffered audio to it.
func (o *Orchestrator) activate() {
	if o.call.State != StatePreRecognition && o.call.State != StateAnswered {
		return
	}
	sess := o.recognizerFactory()
	if sess == nil {
		o.logger.Warn("no recognizer session available, speech stays inactive", "callId", o.call.ID)
		return
	}
	if o.call.VAD != nil {
		o.call.VAD.Disable()
	}
	o.setState(StateActivating)

	o.call.Recognizer = sess
	emitter, isVoiceOut := sess.(SpeechAudioEmitter)
	o.voiceOutSession = isVoiceOut

	cfg := o.call.Config.CallConfig
	err := sess.Open(context.Background(), cfg.Recognizer, RecognizerCallbacks{
		OnEvent:      func(t RecognizerActivityType) { o.post(func() { o.onRecognizerEvent(t) }) },
		OnTranscript: func(tr Transcript) { o.post(func() { o.onTranscript(tr) }) },
		OnError:      func(err error) { o.post(func() { o.onRecognizerError(err) }) },
		OnClosed:     func(reason string) { o.post(func() { o.onRecognizerClosed(reason) }) },
	})
	if err != nil {
		if isVoiceOut {
			o.emit("openai_stream_activation_failed", err.Error())
		}
		o.fullCleanup(true, "recognizer_fatal")
		return
	}
	if isVoiceOut {
		o.emit("openai_stream_activated", nil)
		emitter.OnAudioChunk(func(chunk []byte) { o.post(func() { o.onSpeechAudioChunk(chunk) }) })
	}

	buffered := o.call.FramePump.BufferedBytes()
	o.call.FramePump.SetForward(func(chunk []byte) error {
		o.recordedAudio = append(o.recordedAudio, chunk...)
		return sess.SendAudio(chunk)
	})
	if len(buffered) > 0 {
		o.recordedAudio = append(o.recordedAudio, buffered...)
	}

	o.setState(StateStreaming)
	o.arm(TimerNoSpeechBegin, secondsToDuration(cfg.NoSpeechBeginTimeoutSeconds), func() {
		o.fullCleanup(true, "app_no_speech_begin_timeout")
	})
	o.arm(TimerInitialStreamIdle, secondsToDuration(cfg.InitialStreamIdleTimeoutSeconds), func() {
		o.fullCleanup(true, "app_initial_google_stream_idle_timeout")
	})
}

// --- Recognizer callbacks ---

func (o *Orchestrator) onRecognizerEvent(t RecognizerActivityType) {
	if o.call.State != StateStreaming {
		return
	}
	if !o.sawAnyRecognizerEvent {
		o.sawAnyRecognizerEvent = true
		o.call.Timers.Cancel(TimerInitialStreamIdle)
	}

	cfg := o.call.Config.CallConfig
	switch t {
	case ActivityBegin:
		if !o.sawActivityOrTranscript {
			o.sawActivityOrTranscript = true
			o.call.Timers.Cancel(TimerNoSpeechBegin)
		}
	case ActivityEnd:
		if o.voiceOutSession {
			o.emit("openai_requesting_response", nil)
		}
		o.arm(TimerSpeechEndSilence, secondsToDuration(cfg.SpeechEndSilenceTimeoutSeconds), func() {
			o.fullCleanup(false, "app_silence_after_google_speech_activity_end")
		})
	}
}

// onSpeechAudioChunk queues one chunk of assistant-spoken output audio
// (OpenAI Realtime's SpeechAudioEmitter) as a TTS playback clip.
func (o *Orchestrator) onSpeechAudioChunk(chunk []byte) {
	if o.call.State != StateStreaming || o.call.Playback == nil {
		return
	}
	if o.call.EchoGuard != nil {
		o.call.EchoGuard.RecordPlayedAudio(chunk)
	}
	o.ttsBytesAccumulated += len(chunk)
	id := o.call.Playback.Play(PlaybackClip{Bytes: chunk, Purpose: PlaybackTTS})
	o.emit("openai_tts_chunk_received_and_queued", PlaybackEventPayload{PlaybackID: id})
	o.emit("openai_tts_chunk_accumulated", o.ttsBytesAccumulated)
}

func (o *Orchestrator) onTranscript(tr Transcript) {
	if o.call.State != StateStreaming {
		return
	}
	if o.call.Playback != nil && o.call.Playback.ActiveID() != "" {
		o.call.Playback.StopAll(PlaybackEndBargeInInterim)
	}
	if !o.sawActivityOrTranscript && tr.Text != "" {
		o.sawActivityOrTranscript = true
		o.call.Timers.Cancel(TimerNoSpeechBegin)
	}
	if !o.sawAnyRecognizerEvent {
		o.sawAnyRecognizerEvent = true
		o.call.Timers.Cancel(TimerInitialStreamIdle)
	}

	if tr.IsFinal {
		o.gotFinalTranscript = true
		o.call.Conversation.AppendTurn(Turn{Actor: ActorUser, Type: TurnMessage, Content: tr.Text, Timestamp: time.Now()})
		o.fullCleanup(false, "final_transcript_received")
		return
	}

	cfg := o.call.Config.CallConfig
	o.arm(TimerSpeechEndSilence, secondsToDuration(cfg.SpeechEndSilenceTimeoutSeconds), func() {
		o.onSpeechEndSilenceExpiredInterimPath()
	})
}

func (o *Orchestrator) onSpeechEndSilenceExpiredInterimPath() {
	if o.call.State != StateStreaming {
		return
	}
	if !o.speechEndSilenceFired {
		o.speechEndSilenceFired = true
		if o.call.Recognizer != nil {
			o.call.Recognizer.HalfClose()
		}
		cfg := o.call.Config.CallConfig
		o.arm(TimerSpeechEndSilence, secondsToDuration(cfg.SpeechEndSilenceTimeoutSeconds), func() {
			o.fullCleanup(false, "app_google_no_final_result_timeout_interim")
		})
		return
	}
	o.fullCleanup(false, "app_google_no_final_result_timeout_interim")
}

func (o *Orchestrator) onRecognizerError(err error) {
	if o.call.State != StateStreaming {
		return
	}
	if !o.sawAnyRecognizerEvent {
		o.fullCleanup(true, "app_initial_google_stream_idle_timeout")
		return
	}
	o.fullCleanup(true, "recognizer_fatal")
}

func (o *Orchestrator) onRecognizerClosed(reason string) {
	o.logger.Debug("recognizer closed", "callId", o.call.ID, "reason", reason)
	if o.voiceOutSession {
		o.emit("openai_tts_stream_ended", reason)
		o.emit("openai_session_ended", reason)
	}
}

// --- DTMF arbitration ---

// HandleDTMFDigit implements the DTMF arbitration rule: from Answered
// onward, any digit stops playback, sticks "speech disabled", closes any
// recognizer, cancels speech/VAD timers, and transitions to
// DtmfCollecting.
func (o *Orchestrator) HandleDTMFDigit(d byte) {
	o.post(func() { o.onDTMFDigit(d) })
}

func (o *Orchestrator) onDTMFDigit(d byte) {
	switch o.call.State {
	case StateNew, StateClosed, StateFinalizing:
		return
	}
	cfg := o.call.Config.CallConfig
	if !cfg.DTMFEnabled {
		return
	}

	if !o.call.SpeechDisabled {
		o.call.Playback.StopAll(PlaybackEndDTMF)
		o.call.SpeechDisabled = true
		if o.call.Recognizer != nil {
			o.call.Recognizer.Close("dtmf_interrupt")
			o.call.Recognizer = nil
		}
		o.call.Timers.Cancel(TimerBargeIn)
		o.call.Timers.Cancel(TimerNoSpeechBegin)
		o.call.Timers.Cancel(TimerInitialStreamIdle)
		o.call.Timers.Cancel(TimerSpeechEndSilence)
		o.call.Timers.Cancel(TimerVADInitialSilence)
		o.call.Timers.Cancel(TimerVADActivationDelay)
		o.call.Timers.Cancel(TimerVADMaxWaitAfterPrompt)
		if o.call.VAD != nil {
			o.call.VAD.Disable()
		}
		o.setState(StateDtmfCollecting)
		o.emit("dtmf_mode_activated", nil)

		if o.call.DTMF == nil {
			o.call.DTMF = NewDTMFCollector(
				o.call.Timers,
				secondsToDuration(cfg.DTMFInterDigitTimeoutSeconds),
				secondsToDuration(cfg.DTMFFinalTimeoutSeconds),
				o.onDTMFFinal,
			)
		}
	}

	o.call.DTMF.OnDigit(d)
}

func (o *Orchestrator) onDTMFFinal(digits string, reason DTMFFinalizeReason) {
	o.call.Conversation.AppendTurn(Turn{Actor: ActorDTMF, Type: TurnMessage, Content: digits, Timestamp: time.Now()})
	o.emit("dtmf_input_finalized", digits)
	cleanupReason := "dtmf_" + string(reason)
	o.outcome = &CallOutcome{DTMFDigits: digits, Reason: cleanupReason, Hangup: false}
	o.setState(StateFinalizing)
	o.fullCleanup(false, cleanupReason)
}

// --- Cleanup ---

// fullCleanup is idempotent: cancel all timers, half-close then
// close the recognizer, stop playback, detach the frame pump, publish the
// terminal event, optionally run batch fallback, publish the outcome, then
// transition to Closed. Two invocations produce the same terminal state and
// at most one terminal event.
func (o *Orchestrator) fullCleanup(hangup bool, reason string) {
	if o.cleanupStarted {
		return
	}
	o.cleanupStarted = true

	o.call.Timers.CancelAll()

	if o.call.Recognizer != nil {
		o.call.Recognizer.HalfClose()
		o.call.Recognizer.Close(reason)
		o.call.Recognizer = nil
	}
	if o.call.Playback != nil {
		o.call.Playback.StopAll(PlaybackEndCleanup)
	}
	if o.call.FramePump != nil {
		o.call.FramePump.Detach()
	}

	o.emit("cleanup_resource_release_event", reason)

	transcript := ""
	if o.outcome != nil {
		transcript = o.outcome.Transcript
	}
	if hangup && len(o.recordedAudio) > 0 && !o.gotFinalTranscript && o.batch != nil {
		cfg := o.call.Config.CallConfig
		transcript = o.batch.Transcribe(context.Background(), o.recordedAudio, cfg.Recognizer.LanguageCode)
	}
	if o.outcome == nil {
		o.outcome = &CallOutcome{
			Transcript:               transcript,
			Reason:                   reason,
			Hangup:                   hangup,
			NoSpeechBeginTimeout:     reason == "app_no_speech_begin_timeout",
			InitialStreamIdleTimeout: reason == "app_initial_google_stream_idle_timeout",
			MaxDurationTimeout:       reason == "max_duration_timeout",
		}
	} else if o.outcome.Transcript == "" {
		o.outcome.Transcript = transcript
	}

	if o.telephony != nil {
		ctx := context.Background()
		o.telephony.PublishOutcomeVar(ctx, o.call.ChannelID, "FINAL_TRANSCRIPT", o.outcome.Transcript)
		o.telephony.PublishOutcomeVar(ctx, o.call.ChannelID, "DTMF_DIGITS", o.outcome.DTMFDigits)
		o.telephony.PublishOutcomeVar(ctx, o.call.ChannelID, "NO_SPEECH_BEGIN_TIMEOUT", strconv.FormatBool(o.outcome.NoSpeechBeginTimeout))
		o.telephony.PublishOutcomeVar(ctx, o.call.ChannelID, "INITIAL_STREAM_IDLE_TIMEOUT", strconv.FormatBool(o.outcome.InitialStreamIdleTimeout))
		o.telephony.PublishOutcomeVar(ctx, o.call.ChannelID, "MAX_DURATION_TIMEOUT", strconv.FormatBool(o.outcome.MaxDurationTimeout))
		o.telephony.PublishOutcomeVar(ctx, o.call.ChannelID, "CLEANUP_REASON", reason)
		if hangup {
			o.telephony.Hangup(ctx, o.call.ChannelID)
		}
	}

	o.setState(StateClosed)
	if !o.call.SnapshotRequested() {
		o.call.Conversation = nil
	}
	o.cleanupFinished = true
	o.emit("cleanup_resource_release_event", o.outcome)

	if !o.closedAlready() {
		o.closeOnce.Do(func() { close(o.queue) })
	}
}

func (o *Orchestrator) closedAlready() bool {
	select {
	case <-o.closed:
		return true
	default:
		return false
	}
}

// enqueueClose posts a close message that runs fullCleanup(false, reason).
// run posts one when the Call's context is cancelled; fullCleanup is
// idempotent, so any close message after the first is a no-op.
func (o *Orchestrator) enqueueClose(reason string) {
	o.post(func() { o.fullCleanup(false, reason) })
}

// Outcome returns the published outcome, or nil before cleanup completes.
func (o *Orchestrator) Outcome() *CallOutcome {
	return o.outcome
}

// ApplyConfigUpdate validates next and replaces the call's whole CallConfig
// with it (the operator hub merges a `session.update` mutation into the
// current config before calling this). Already-armed timers keep their
// original durations; only future arms see the new values.
func (o *Orchestrator) ApplyConfigUpdate(next CallConfig) error {
	result := make(chan error, 1)
	o.post(func() {
		if err := next.Validate(); err != nil {
			result <- err
			return
		}
		o.call.Config.CallConfig = next
		o.call.Config.Generation++
		o.emit("config_update_ack", next)
		result <- nil
	})
	select {
	case err := <-result:
		return err
	case <-o.closed:
		return ErrCallClosed
	}
}

// Snapshot safely reads the call's id/caller/state from any goroutine by
// round-tripping through the single-writer queue, rather than reading
// call fields directly.
func (o *Orchestrator) Snapshot() (id, callerID string, state CallState) {
	result := make(chan [3]string, 1)
	o.post(func() {
		result <- [3]string{o.call.ID, o.call.CallerID, string(o.call.State)}
	})
	select {
	case r := <-result:
		return r[0], r[1], CallState(r[2])
	case <-o.closed:
		return o.call.ID, o.call.CallerID, StateClosed
	}
}

// CurrentConfig safely reads the call's effective CallConfig.
func (o *Orchestrator) CurrentConfig() CallConfig {
	result := make(chan CallConfig, 1)
	o.post(func() { result <- o.call.Config.CallConfig })
	select {
	case cfg := <-result:
		return cfg
	case <-o.closed:
		return o.call.Config.CallConfig
	}
}

// History safely reads a copy of the call's conversation turns.
func (o *Orchestrator) History() []Turn {
	result := make(chan []Turn, 1)
	o.post(func() {
		if o.call.Conversation == nil {
			result <- nil
			return
		}
		result <- o.call.Conversation.Turns()
	})
	select {
	case turns := <-result:
		return turns
	case <-o.closed:
		return nil
	}
}

// RequestHistorySnapshot marks that the operator hub wants this call's
// history retained past Closed.
func (o *Orchestrator) RequestHistorySnapshot() {
	o.post(func() { o.call.RequestSnapshot() })
}

const maxBufferBytes = 1 << 20 // 1 MiB of pre-activation audio

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
