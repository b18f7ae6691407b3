// Package hub shares the most recent annotated frame and steering samples
// with live viewers.
package hub

import (
	"context"
	"sync"

	"github.com/ayusman/conesteer/internal/telemetry"
)

// Hub holds the latest JPEG frame and fans samples out to subscribers.
// Publishing never blocks: a subscriber that falls behind loses samples.
type Hub struct {
	mu      sync.Mutex
	frame   []byte
	seq     uint64
	updated chan struct{}
	subs    map[chan telemetry.Sample]struct{}
	viewers int
	closed  bool
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		updated: make(chan struct{}),
		subs:    make(map[chan telemetry.Sample]struct{}),
	}
}

// PublishFrame replaces the latest frame and wakes every waiting viewer.
func (h *Hub) PublishFrame(jpeg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.frame = jpeg
	h.seq++
	close(h.updated)
	h.updated = make(chan struct{})
}

// Frame returns the latest frame and its sequence number. The sequence is
// zero until the first frame is published.
func (h *Hub) Frame() ([]byte, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame, h.seq
}

// NextFrame blocks until a frame newer than after is available, the hub
// is closed, or ctx is done.
func (h *Hub) NextFrame(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		h.mu.Lock()
		if h.seq > after {
			frame, seq := h.frame, h.seq
			h.mu.Unlock()
			return frame, seq, nil
		}
		if h.closed {
			h.mu.Unlock()
			return nil, after, context.Canceled
		}
		wait := h.updated
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-wait:
		}
	}
}

// AddViewer registers a frame viewer and returns the function that removes it.
func (h *Hub) AddViewer() func() {
	h.mu.Lock()
	h.viewers++
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			h.viewers--
			h.mu.Unlock()
		})
	}
}

// WantsFrames reports whether anybody is watching the frame stream, so
// the producer can skip JPEG encoding otherwise.
func (h *Hub) WantsFrames() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewers > 0
}

// Subscribe returns a channel receiving every published sample and a
// function that cancels the subscription.
func (h *Hub) Subscribe(buffer int) (<-chan telemetry.Sample, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan telemetry.Sample, buffer)

	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.subs[ch] = struct{}{}
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of active sample subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Write implements telemetry.Sink.
func (h *Hub) Write(s telemetry.Sample) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- s:
		default:
		}
	}
	return nil
}

// Close ends every subscription and releases waiting viewers.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
	close(h.updated)
	return nil
}
