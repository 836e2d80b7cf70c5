package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrHubClosed is returned by WaitFrame after Close.
var ErrHubClosed = errors.New("hub closed")

// Hub fans the loop's output out to HTTP clients: the latest encoded frame
// for MJPEG viewers and a JSON message per frame for telemetry subscribers.
// Slow subscribers miss messages rather than stall the loop.
type Hub struct {
	mu     sync.RWMutex
	jpeg   []byte
	seq    uint64
	ready  chan struct{}
	subs   map[chan []byte]struct{}
	closed bool

	watchers atomic.Int32
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		ready: make(chan struct{}),
		subs:  make(map[chan []byte]struct{}),
	}
}

// Watch registers a frame viewer. The loop only encodes frames while at
// least one viewer is registered. Call the returned func to unregister.
func (h *Hub) Watch() func() {
	h.watchers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { h.watchers.Add(-1) })
	}
}

// Watching reports whether any frame viewer is registered.
func (h *Hub) Watching() bool {
	return h.watchers.Load() > 0
}

// PublishFrame stores jpeg as the latest frame and wakes waiting viewers.
func (h *Hub) PublishFrame(jpeg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.jpeg = jpeg
	h.seq++
	close(h.ready)
	h.ready = make(chan struct{})
}

// Frame returns the latest frame and its sequence number. seq is 0 before
// the first frame.
func (h *Hub) Frame() (jpeg []byte, seq uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.jpeg, h.seq
}

// WaitFrame blocks until a frame newer than after is published.
func (h *Hub) WaitFrame(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		h.mu.RLock()
		jpeg, seq, ready, closed := h.jpeg, h.seq, h.ready, h.closed
		h.mu.RUnlock()

		if seq > after {
			return jpeg, seq, nil
		}
		if closed {
			return nil, seq, ErrHubClosed
		}

		select {
		case <-ready:
		case <-ctx.Done():
			return nil, seq, ctx.Err()
		}
	}
}

// Subscribe returns a channel of telemetry messages with room for buf
// pending messages. The cancel func unsubscribes and closes the channel.
func (h *Hub) Subscribe(buf int) (<-chan []byte, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan []byte, buf)

	h.mu.Lock()
	if h.closed {
		close(ch)
		h.mu.Unlock()
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Subscribers returns the number of telemetry subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// PublishTelemetry encodes v once and offers it to every subscriber.
func (h *Hub) PublishTelemetry(v any) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed || len(h.subs) == 0 {
		return nil
	}

	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Close wakes all viewers and closes all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.ready)
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}
