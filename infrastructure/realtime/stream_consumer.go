package realtime

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contentpilot/domain/dto"
	"contentpilot/infrastructure/logger"
)

// StreamConsumer reads a progress SSE stream and keeps going when the
// connection drops. After a bounded number of reconnect attempts it abandons
// streaming and falls back to polling instead of failing the caller.
type StreamConsumer struct {
	URL           string
	HTTPClient    *http.Client
	MaxReconnects int
	BaseDelay     time.Duration
	PollInterval  time.Duration

	// OnEvent receives every decoded event, from the stream or the fallback.
	OnEvent func(dto.ProgressEvent)
	// OnComplete fires once when the server closes the stream cleanly.
	OnComplete func()
	// Poll is the fallback fetch used once reconnects are exhausted. It
	// returns the latest known event and whether the work has finished.
	Poll func(ctx context.Context) (dto.ProgressEvent, bool, error)
}

// Run consumes the stream until a clean close, context cancellation, or the
// polling fallback reports completion.
func (sc *StreamConsumer) Run(ctx context.Context) error {
	client := sc.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	maxReconnects := sc.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 5
	}
	baseDelay := sc.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	attempts := 0
	for attempts <= maxReconnects {
		if err := ctx.Err(); err != nil {
			return err
		}
		clean, connected, err := sc.consume(ctx, client)
		if clean {
			if sc.OnComplete != nil {
				sc.OnComplete()
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			// A stream that was up and then dropped earns a fresh budget.
			attempts = 0
		}
		attempts++
		if attempts > maxReconnects {
			break
		}
		delay := baseDelay << (attempts - 1)
		logger.GetLogger().WithField("attempt", attempts).WithField("delay", delay.String()).
			Warnf("stream disconnected, reconnecting: %v", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	logger.GetLogger().Warn("stream reconnects exhausted, switching to polling")
	return sc.pollLoop(ctx)
}

// consume opens the stream and reads frames until EOF or error. It reports
// clean=true only when the server ended the stream with io.EOF after a
// successful connect.
func (sc *StreamConsumer) consume(ctx context.Context, client *http.Client) (clean, connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.URL, nil)
	if err != nil {
		return false, false, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return false, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, false, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	var frame bytes.Buffer
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			trimmed := strings.TrimRight(line, "\r\n")
			if trimmed == "" {
				sc.dispatchFrame(frame.String())
				frame.Reset()
			} else {
				frame.WriteString(trimmed)
				frame.WriteByte('\n')
			}
		}
		if err != nil {
			if err == io.EOF {
				// Anything left in the buffer is a truncated frame; a clean
				// server close always ends on a frame boundary.
				return frame.Len() == 0, true, nil
			}
			return false, true, err
		}
	}
}

func (sc *StreamConsumer) dispatchFrame(frame string) {
	for _, line := range strings.Split(frame, "\n") {
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		var evt dto.ProgressEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			logger.GetLogger().Warnf("skipping malformed stream event: %v", err)
			continue
		}
		if sc.OnEvent != nil {
			sc.OnEvent(evt)
		}
	}
}

func (sc *StreamConsumer) pollLoop(ctx context.Context) error {
	if sc.Poll == nil {
		return fmt.Errorf("stream unavailable and no polling fallback configured")
	}
	interval := sc.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			evt, done, err := sc.Poll(ctx)
			if err != nil {
				logger.GetLogger().Warnf("poll fallback failed: %v", err)
				continue
			}
			if sc.OnEvent != nil {
				sc.OnEvent(evt)
			}
			if done {
				if sc.OnComplete != nil {
					sc.OnComplete()
				}
				return nil
			}
		}
	}
}
