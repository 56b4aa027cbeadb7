package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/crabritto/arbor/internal/logging"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans tree snapshots out to SSE subscribers per session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for sessionID. The returned func unregisters it.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		subs, ok := sm.subscribers[sessionID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(sm.subscribers, sessionID)
		}
	}
}

// Broadcast sends msg to every subscriber of sessionID. Slow clients lose messages.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Close ends every stream of sessionID.
func (sm *StreamManager) Close(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for ch := range sm.subscribers[sessionID] {
		close(ch)
	}
	delete(sm.subscribers, sessionID)
}

// Subscribers reports the number of open streams for sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
// Each edit pushes the whole tree as one data event.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	if _, err := s.Editor.Tree(r.Context(), sessionID); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()
	s.logger.Debug("sse subscribed", "session_id", sessionID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: end\ndata: %s\n\n", sessionID)
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
