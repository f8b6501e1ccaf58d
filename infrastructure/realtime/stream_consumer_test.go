package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"contentpilot/domain/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerDeliversEventsThenCompletes(t *testing.T) {
	var connects int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&connects, 1)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		w.Write([]byte(": ok\n\n"))
		flusher.Flush()
		w.Write([]byte("data: {\"type\":\"progress\",\"step\":\"creating_container\"}\n\n"))
		w.Write([]byte(": heartbeat\n\n"))
		w.Write([]byte("data: {\"type\":\"progress\",\"step\":\"waiting\"}\n\n"))
		w.Write([]byte("data: {\"type\":\"progress\",\"step\":\"published\"}\n\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	var steps []string
	var completed bool
	consumer := &StreamConsumer{
		URL:       srv.URL,
		BaseDelay: time.Millisecond,
		OnEvent: func(evt dto.ProgressEvent) {
			steps = append(steps, evt.Step)
		},
		OnComplete: func() { completed = true },
	}

	err := consumer.Run(context.Background())
	require.Nil(t, err)
	assert.Equal(t, []string{"creating_container", "waiting", "published"}, steps)
	assert.True(t, completed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&connects))
}

func TestConsumerHandlesFramesSplitAcrossChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		// The data line arrives in two flushes; the consumer must carry the
		// partial frame across reads.
		w.Write([]byte("data: {\"type\":\"progress\","))
		flusher.Flush()
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte("\"step\":\"publishing\"}\n\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	var steps []string
	consumer := &StreamConsumer{
		URL:       srv.URL,
		BaseDelay: time.Millisecond,
		OnEvent: func(evt dto.ProgressEvent) {
			steps = append(steps, evt.Step)
		},
	}

	err := consumer.Run(context.Background())
	require.Nil(t, err)
	assert.Equal(t, []string{"publishing"}, steps)
}

func TestConsumerFallsBackToPollingAfterReconnectsExhausted(t *testing.T) {
	var connects int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&connects, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var polls int32
	var completed bool
	consumer := &StreamConsumer{
		URL:           srv.URL,
		MaxReconnects: 3,
		BaseDelay:     time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		OnEvent:       func(dto.ProgressEvent) {},
		OnComplete:    func() { completed = true },
		Poll: func(ctx context.Context) (dto.ProgressEvent, bool, error) {
			n := atomic.AddInt32(&polls, 1)
			return dto.ProgressEvent{Type: "progress", Status: "published"}, n >= 2, nil
		},
	}

	err := consumer.Run(context.Background())
	require.Nil(t, err)
	// Initial attempt plus the configured reconnect budget.
	assert.Equal(t, int32(4), atomic.LoadInt32(&connects))
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
	assert.True(t, completed)
}

func TestConsumerBackoffDelaysIncrease(t *testing.T) {
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	consumer := &StreamConsumer{
		URL:           srv.URL,
		MaxReconnects: 3,
		BaseDelay:     20 * time.Millisecond,
		Poll: func(ctx context.Context) (dto.ProgressEvent, bool, error) {
			return dto.ProgressEvent{}, true, nil
		},
		PollInterval: time.Millisecond,
	}

	err := consumer.Run(context.Background())
	require.Nil(t, err)
	require.Equal(t, 4, len(stamps))

	firstGap := stamps[1].Sub(stamps[0])
	lastGap := stamps[3].Sub(stamps[2])
	assert.Greater(t, lastGap, firstGap)
}

func TestConsumerStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	consumer := &StreamConsumer{URL: srv.URL, BaseDelay: time.Millisecond}
	err := consumer.Run(ctx)
	assert.Equal(t, context.Canceled, err)
}
