// Package playback drives speaker output for assistant audio clips.
//
// Two playback surfaces exist. The live slot carries the spoken reply of the
// voice exchange currently on screen: starting a new live clip stops the
// previous one. Per-message playback is the on-demand control on historical
// messages: each message id toggles independently and unrelated clips are not
// force-stopped.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jfreymuth/pulse"
)

// ErrPlaybackBlocked marks an environment that refused to open an output
// route for automatic playback. It is a delivery detail, not an exchange
// failure: the message still arrived.
var ErrPlaybackBlocked = errors.New("automatic playback blocked")

// Clip is decoded audio ready for the speaker.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Player owns the live slot and the per-message toggle registry.
type Player struct {
	logger *slog.Logger

	mu         sync.Mutex
	live       *handle
	perMessage map[string]*handle

	start startFunc
}

type startFunc func(h *handle) error

// NewPlayer constructs a Player backed by the Pulse sound server.
func NewPlayer(logger *slog.Logger) *Player {
	return &Player{
		logger:     logger,
		perMessage: make(map[string]*handle),
		start:      startPulseStream,
	}
}

// PlayLive plays a clip on the live voice-exchange slot, stopping whatever
// the slot was playing before. Failure to open an output route is classified
// as ErrPlaybackBlocked.
func (p *Player) PlayLive(_ context.Context, clip Clip) error {
	p.mu.Lock()
	previous := p.live
	h := newHandle(clip)
	h.onDone = func() { p.clearLive(h) }
	p.live = h
	start := p.start
	p.mu.Unlock()

	if previous != nil {
		previous.halt()
	}

	if err := start(h); err != nil {
		p.clearLive(h)
		return fmt.Errorf("%w: %v", ErrPlaybackBlocked, err)
	}

	if p.logger != nil {
		p.logger.Info("live playback started", "samples", len(clip.Samples), "rate", clip.SampleRate)
	}
	return nil
}

// Speaking reports whether the live slot is currently audible.
func (p *Player) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live != nil && p.live.isPlaying()
}

// Toggle plays or pauses the clip bound to one message id. A paused message
// resumes from where it stopped; a finished one starts over. The returned
// flag reports whether the message is playing after the call.
func (p *Player) Toggle(_ context.Context, messageID string, clip Clip) (bool, error) {
	p.mu.Lock()
	h, ok := p.perMessage[messageID]
	if ok && h.isPlaying() {
		p.mu.Unlock()
		h.pause()
		return false, nil
	}
	if !ok {
		h = newHandle(clip)
		h.onDone = func() { p.finishMessage(messageID, h) }
		p.perMessage[messageID] = h
	}
	start := p.start
	p.mu.Unlock()

	if err := start(h); err != nil {
		p.finishMessage(messageID, h)
		return false, fmt.Errorf("play message %s: %w", messageID, err)
	}
	return true, nil
}

// MessagePlaying reports whether the given message id is currently audible.
func (p *Player) MessagePlaying(messageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.perMessage[messageID]
	return ok && h.isPlaying()
}

// StopAll halts the live slot and every per-message clip.
func (p *Player) StopAll() {
	p.mu.Lock()
	live := p.live
	p.live = nil
	handles := make([]*handle, 0, len(p.perMessage))
	for _, h := range p.perMessage {
		handles = append(handles, h)
	}
	p.perMessage = make(map[string]*handle)
	p.mu.Unlock()

	if live != nil {
		live.halt()
	}
	for _, h := range handles {
		h.halt()
	}
}

func (p *Player) clearLive(h *handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live == h {
		p.live = nil
	}
}

func (p *Player) finishMessage(messageID string, h *handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.perMessage[messageID] == h {
		delete(p.perMessage, messageID)
	}
}

// handle tracks one clip's playback position across pause/resume cycles.
// onDone fires exactly once, and only on a natural end of playback.
type handle struct {
	clip   Clip
	onDone func()

	mu         sync.Mutex
	cursor     int
	playing    bool
	halted     bool
	doneFired  bool
	stopStream func()
}

func newHandle(clip Clip) *handle {
	return &handle{clip: clip}
}

// read feeds samples to the active stream, ending it when the clip is
// exhausted, paused, or halted.
func (h *handle) read(buf []int16) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.halted || !h.playing || h.cursor >= len(h.clip.Samples) {
		return 0, pulse.EndOfData
	}

	n := copy(buf, h.clip.Samples[h.cursor:])
	h.cursor += n
	if h.cursor >= len(h.clip.Samples) {
		return n, pulse.EndOfData
	}
	return n, nil
}

func (h *handle) isPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

// pause stops the active stream but keeps the cursor for resume.
func (h *handle) pause() {
	h.mu.Lock()
	h.playing = false
	stop := h.stopStream
	h.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// halt ends playback permanently without firing the completion callback.
func (h *handle) halt() {
	h.mu.Lock()
	h.halted = true
	h.playing = false
	stop := h.stopStream
	h.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// complete runs after a stream ends; it fires onDone exactly once and only
// when the whole clip was delivered.
func (h *handle) complete() {
	h.mu.Lock()
	natural := !h.halted && h.playing && h.cursor >= len(h.clip.Samples)
	if natural {
		h.playing = false
	}
	fire := natural && !h.doneFired && h.onDone != nil
	if fire {
		h.doneFired = true
	}
	done := h.onDone
	h.mu.Unlock()

	if fire {
		done()
	}
}

// startPulseStream opens one Pulse playback stream for the handle and drains
// it on a background goroutine.
func startPulseStream(h *handle) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("drona"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(h.clip.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackMediaName("drona assistant reply"),
	}
	if h.clip.Channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}

	stream, err := client.NewPlayback(pulse.Int16Reader(h.read), opts...)
	if err != nil {
		client.Close()
		return fmt.Errorf("create pulse playback stream: %w", err)
	}

	h.mu.Lock()
	h.playing = true
	h.stopStream = func() { stream.Stop() }
	h.mu.Unlock()

	go func() {
		stream.Start()
		stream.Drain()
		stream.Close()
		client.Close()
		h.complete()
	}()

	return nil
}
