package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"contentpilot/domain/dto"

	"github.com/gin-gonic/gin"
)

// Hub fans progress events out to SSE subscribers, keyed by post id. Handlers
// talk to it through Stream (send/close); HTTP consumers attach via Serve.
type Hub struct {
	mu        sync.RWMutex
	streams   map[string]*streamState
	heartbeat time.Duration
}

type streamState struct {
	subs   map[chan dto.ProgressEvent]struct{}
	closed bool
}

func NewProgressHub(heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{streams: make(map[string]*streamState), heartbeat: heartbeat}
}

// Stream returns the send/close pair a handler uses to report progress for one
// key. Opening the same key twice returns handles to the same stream.
func (h *Hub) Stream(key string) *Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[key] == nil || h.streams[key].closed {
		h.streams[key] = &streamState{subs: make(map[chan dto.ProgressEvent]struct{})}
	}
	return &Stream{hub: h, key: key}
}

// Stream is a handler's handle on one progress channel.
type Stream struct {
	hub *Hub
	key string
}

// Send delivers one event to all current subscribers. Slow subscribers drop
// events rather than block the publishing handler.
func (s *Stream) Send(evt dto.ProgressEvent) {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	st := s.hub.streams[s.key]
	if st == nil || st.closed {
		return
	}
	for ch := range st.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Close ends the stream; every subscriber's SSE response terminates cleanly.
// The closed marker stays behind so a subscriber arriving afterwards ends
// immediately instead of waiting for events that will never come.
func (s *Stream) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	st := s.hub.streams[s.key]
	if st == nil || st.closed {
		return
	}
	st.closed = true
	for ch := range st.subs {
		close(ch)
	}
	st.subs = nil
}

// subscribe attaches to key, creating the stream state when the key is still
// unknown. A subscriber routinely arrives before the worker has reserved the
// job that will open the stream; it must wait, not be told the stream is over.
func (h *Hub) subscribe(key string) (chan dto.ProgressEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.streams[key]
	if st == nil {
		st = &streamState{subs: make(map[chan dto.ProgressEvent]struct{})}
		h.streams[key] = st
	}
	if st.closed {
		return nil, false
	}
	ch := make(chan dto.ProgressEvent, 8)
	st.subs[ch] = struct{}{}
	return ch, true
}

func (h *Hub) unsubscribe(key string, ch chan dto.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.streams[key]
	if st == nil || st.closed {
		return
	}
	if _, ok := st.subs[ch]; ok {
		delete(st.subs, ch)
		close(ch)
	}
}

// Serve streams events for key as `data: <json>` frames with periodic
// `: heartbeat` comments to defeat idle-connection timeouts. A client
// disconnect tears the subscription down without error; a stream close ends
// the response cleanly.
func (h *Hub) Serve(c *gin.Context, key string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch, ok := h.subscribe(key)
	if !ok {
		// Stream already closed; tell the client immediately.
		c.Writer.Write([]byte(": ok\n\n"))
		c.Writer.Flush()
		return
	}
	defer h.unsubscribe(key, ch)

	c.Writer.Write([]byte(": ok\n\n"))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			_, _ = c.Writer.Write([]byte(": heartbeat\n\n"))
			c.Writer.Flush()
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}
