package app

import "sync"

// FrameHub fans encoded JPEG frames out to stream clients. Each subscriber
// holds at most one pending frame; a slow client skips frames instead of
// stalling the pipeline.
type FrameHub struct {
	mu     sync.Mutex
	latest []byte
	seq    uint64
	subs   map[chan []byte]struct{}
}

// NewFrameHub creates an empty hub.
func NewFrameHub() *FrameHub {
	return &FrameHub{subs: make(map[chan []byte]struct{})}
}

// Publish stores frame as the latest and offers it to every subscriber.
// The hub keeps a reference to frame, so callers must not modify it.
func (h *FrameHub) Publish(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = frame
	h.seq++

	for ch := range h.subs {
		offer(ch, frame)
	}
}

// Subscribe returns a channel of frames, primed with the latest frame if
// any, and a function that ends the subscription.
func (h *FrameHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.latest != nil {
		ch <- h.latest
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

// Latest returns the most recent frame and its sequence number.
func (h *FrameHub) Latest() ([]byte, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.seq
}

// Subscribers returns the number of active subscriptions.
func (h *FrameHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// offer replaces any undelivered frame in ch with frame.
func offer(ch chan []byte, frame []byte) {
	select {
	case ch <- frame:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- frame:
	default:
	}
}
