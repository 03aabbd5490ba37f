package orchestrator

import "context"

// PlaybackPurpose distinguishes why a clip is being played, since barge-in
// and activation policy both branch on it.
type PlaybackPurpose string

const (
	PlaybackPrompt PlaybackPurpose = "prompt"
	PlaybackTTS    PlaybackPurpose = "tts"
)

// PlaybackEndReason closes the set of reasons stopAll / a natural end can
// report.
type PlaybackEndReason string

const (
	PlaybackEndCompleted    PlaybackEndReason = "completed"
	PlaybackEndBargeInVAD   PlaybackEndReason = "barge_in_vad"
	PlaybackEndBargeInInterim PlaybackEndReason = "barge_in_interim"
	PlaybackEndDTMF         PlaybackEndReason = "dtmf"
	PlaybackEndCleanup      PlaybackEndReason = "cleanup"
	PlaybackEndSuperseded   PlaybackEndReason = "superseded"
)

// PlaybackClip is an opaque reference to audio the telephony platform can
// play: a media URI for a static prompt, or raw bytes for a TTS chunk.
type PlaybackClip struct {
	MediaURI string
	Bytes    []byte
	Purpose  PlaybackPurpose
}

// MediaPlayer is the slice of the ARI action contract the Playback
// Controller needs: starting and stopping media on a channel.
type MediaPlayer interface {
	PlayMedia(ctx context.Context, channelID string, clip PlaybackClip) (platformPlaybackID string, err error)
	StopPlayback(ctx context.Context, channelID, platformPlaybackID string) error
}

// PlaybackCallbacks are invoked on the call's single-threaded queue.
type PlaybackCallbacks struct {
	OnStarted func(id string, purpose PlaybackPurpose)
	OnEnded   func(id string, reason PlaybackEndReason)
	OnFailed  func(id string, err error)
}

type pendingPlayback struct {
	id                  string
	clip                PlaybackClip
	platformPlaybackID  string
	started             bool
}

// PlaybackController starts, stops, and reports the lifecycle of prompt and
// TTS audio for one call. Overlapping plays are queued FIFO; only one
// clip is ever in flight against the telephony platform at a time.
type PlaybackController struct {
	channelID string
	player    MediaPlayer
	callbacks PlaybackCallbacks

	queue    []*pendingPlayback
	active   *pendingPlayback
	nextSeq  uint64
	stopping bool
}

// NewPlaybackController builds a controller bound to one telephony channel.
func NewPlaybackController(channelID string, player MediaPlayer, callbacks PlaybackCallbacks) *PlaybackController {
	return &PlaybackController{channelID: channelID, player: player, callbacks: callbacks}
}

// Play enqueues a clip and returns its playbackId. If nothing is currently
// playing, it starts immediately.
func (p *PlaybackController) Play(clip PlaybackClip) string {
	p.nextSeq++
	entry := &pendingPlayback{id: playbackIDFromSeq(p.nextSeq), clip: clip}
	p.queue = append(p.queue, entry)
	p.pump()
	return entry.id
}

func (p *PlaybackController) pump() {
	if p.active != nil || len(p.queue) == 0 {
		return
	}
	entry := p.queue[0]
	p.queue = p.queue[1:]
	p.active = entry

	platformID, err := p.player.PlayMedia(context.Background(), p.channelID, entry.clip)
	if err != nil {
		p.active = nil
		if p.callbacks.OnFailed != nil {
			p.callbacks.OnFailed(entry.id, err)
		}
		p.pump()
		return
	}
	entry.platformPlaybackID = platformID
	entry.started = true
	if p.callbacks.OnStarted != nil {
		p.callbacks.OnStarted(entry.id, entry.clip.Purpose)
	}

	if len(entry.clip.Bytes) > 0 {
		// Raw audio bytes are written directly to the channel's outbound
		// stream; the platform never reports PlaybackFinished for them, so
		// completion is synthesized the moment the write returns rather than
		// waiting on NotifyPlaybackFinished.
		p.NotifyPlaybackFinished()
	}
}

// NotifyPlaybackFinished is invoked by the orchestrator's ARI event dispatch
// when the platform reports PlaybackFinished for the currently active clip.
func (p *PlaybackController) NotifyPlaybackFinished() {
	if p.active == nil {
		return
	}
	finished := p.active
	p.active = nil
	if p.callbacks.OnEnded != nil {
		p.callbacks.OnEnded(finished.id, PlaybackEndCompleted)
	}
	p.pump()
}

// NotifyPlaybackFailed is invoked when the platform reports PlaybackFailed.
func (p *PlaybackController) NotifyPlaybackFailed(err error) {
	if p.active == nil {
		return
	}
	failed := p.active
	p.active = nil
	if p.callbacks.OnFailed != nil {
		p.callbacks.OnFailed(failed.id, err)
	}
	p.pump()
}

// StopAll interrupts any active clip, drops everything queued, and reports
// reason on the active clip (if any) via OnEnded.
func (p *PlaybackController) StopAll(reason PlaybackEndReason) {
	p.queue = nil
	if p.active == nil {
		return
	}
	active := p.active
	p.active = nil
	if active.started {
		_ = p.player.StopPlayback(context.Background(), p.channelID, active.platformPlaybackID)
	}
	if p.callbacks.OnEnded != nil {
		p.callbacks.OnEnded(active.id, reason)
	}
}

// ActiveID reports the playbackId currently in flight, or "" if idle.
func (p *PlaybackController) ActiveID() string {
	if p.active == nil {
		return ""
	}
	return p.active.id
}

// QueueDepth reports how many clips are waiting behind the active one.
func (p *PlaybackController) QueueDepth() int {
	return len(p.queue)
}

func playbackIDFromSeq(seq uint64) string {
	const digits = "0123456789"
	if seq == 0 {
		return "pb-0"
	}
	var buf [20]byte
	i := len(buf)
	for seq > 0 {
		i--
		buf[i] = digits[seq%10]
		seq /= 10
	}
	return "pb-" + string(buf[i:])
}
