package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/localbridge-dev/localbridge/internal/event"
	"github.com/localbridge-dev/localbridge/internal/logging"
)

// SSEHeartbeatInterval is the interval for SSE heartbeats.
const SSEHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// writeEvent writes one SSE event: type line, data line, blank line.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return err
	}

	// ResponseController flushes through middleware wrappers; fall back to
	// the plain Flusher if it cannot.
	if flushErr := s.rc.Flush(); flushErr != nil {
		s.flusher.Flush()
	}

	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// streamEvents handles GET /events: the dashboard's push channel. Every bus
// event (approval lifecycle, file access, workspace changes) is forwarded
// until the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Buffered so a slow client drops events rather than blocking the bus.
	events := make(chan event.Event, 64)
	unsub := s.bus.SubscribeAll(func(e event.Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer unsub()

	sse.writeHeartbeat()

	heartbeat := time.NewTicker(SSEHeartbeatInterval)
	defer heartbeat.Stop()

	log := logging.For("sse")
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.writeHeartbeat()
		case e := <-events:
			if err := sse.writeEvent(string(e.Type), e.Data); err != nil {
				log.Debug().Err(err).Msg("client gone")
				return
			}
		}
	}
}
