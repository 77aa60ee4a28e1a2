// Package sse streams fanout events to HTTP clients as server-sent events.
package sse

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mcoot/duelgame/internal/fanout"
)

// Time between keepalive comments
const pingPeriod = 30 * time.Second

// Serve writes every event delivered to sub until the client disconnects or
// the broker drops the subscriber. The caller releases sub.
func Serve(w http.ResponseWriter, r *http.Request, broker *fanout.Broker, sub *fanout.Subscriber, logger *slog.Logger) {
	// Check if SSE is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Server read and write timeouts apply per request; a stream outlives them
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	logger = logger.With(
		slog.String("component", "sse"),
		slog.String("player_id", string(sub.PlayerID())),
		slog.String("subscriber_id", sub.ID()))
	logger.Debug("sse stream opened")
	defer logger.Debug("sse stream closed", slog.Uint64("dropped", sub.Dropped()))

	hello, _ := json.Marshal(map[string]string{"status": "connected", "player_id": string(sub.PlayerID())})
	if _, err := w.Write(formatSSEMessage("connected", string(hello))); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-sub.Events():
			broker.FollowStartedSession(sub, event)

			data, err := json.Marshal(event)
			if err != nil {
				logger.Warn("sse event not encodable",
					slog.String("event", string(event.Type)),
					slog.Any("error", err))
				continue
			}
			if _, err := w.Write(formatSSEMessage(string(event.Type), string(data))); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			// Send keepalive comment
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-sub.Done():
			return

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteByte('\n')
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// splitLines splits on \n, drops \r and ignores one trailing newline
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
