package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/exports/internal/exportlist/bulk"
	"github.com/grovetools/exports/internal/exportlist/store"
)

// StreamEvent is one message on the SSE and websocket streams.
type StreamEvent struct {
	Type       string       `json:"type"`
	Generation uint64       `json:"generation"`
	RecordID   string       `json:"recordId,omitempty"`
	RecordIDs  []string     `json:"recordIds,omitempty"`
	Entry      *store.Entry `json:"entry,omitempty"`
	Modal      string       `json:"modal,omitempty"`
	ModalOpen  bool         `json:"modalOpen,omitempty"`
	Snapshot   *Snapshot    `json:"snapshot,omitempty"`
	Bulk       *bulk.View   `json:"bulk,omitempty"`
}

const (
	eventInitial = "initial"
)

func (s *Server) initialEvent() StreamEvent {
	snap := s.snapshot()
	return StreamEvent{Type: eventInitial, Generation: snap.Generation, Snapshot: &snap}
}

// toEvent converts a store update. Record set replacements carry a fresh
// snapshot so clients never have to refetch.
func (s *Server) toEvent(u store.Update) StreamEvent {
	ev := StreamEvent{
		Type:       string(u.Type),
		Generation: u.Generation,
		RecordID:   u.RecordID,
		RecordIDs:  u.RecordIDs,
		Entry:      u.Entry,
		Modal:      u.Modal,
		ModalOpen:  u.ModalOpen,
	}
	if u.Type == store.UpdateReplaced {
		snap := s.snapshot()
		ev.Snapshot = &snap
	}
	if u.Type == store.UpdateSelection || u.Type == store.UpdateReplaced {
		view := s.engine.Bulk().View()
		ev.Bulk = &view
	}
	return ev
}

// handleStream provides Server-Sent Events (SSE) for real-time state updates.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Ensure the connection supports flushing
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.engine.Store().Subscribe()
	defer s.engine.Store().Unsubscribe(ch)

	// Send initial ping to confirm connection
	fmt.Fprintf(w, ": connected\n\n")
	s.writeSSE(w, s.initialEvent())
	flusher.Flush()

	s.logger.Debug("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			s.writeSSE(w, s.toEvent(u))
			flusher.Flush()
		}
	}
}

func (s *Server) writeSSE(w http.ResponseWriter, ev StreamEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal update")
		return
	}
	// SSE format: "event: type\ndata: {json}\n\n"
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// handleWebSocket streams the same events as handleStream over a websocket.
// Messages from the client are ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.engine.Store().Subscribe()
	defer s.engine.Store().Unsubscribe(ch)

	// Drain the read side so close frames and pongs are processed.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(ev StreamEvent) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.WithError(err).Debug("Websocket write failed")
			return false
		}
		return true
	}

	if !send(s.initialEvent()) {
		return
	}
	s.logger.Debug("Websocket client connected")

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			s.logger.Debug("Websocket client disconnected")
			return
		case <-r.Context().Done():
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			if !send(s.toEvent(u)) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
