// Package server exposes the export list state over HTTP for browser renderers.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/bulk"
	"github.com/grovetools/exports/internal/exportlist/engine"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/sirupsen/logrus"
)

// Snapshot is the full list as served by GET /api/exports.
type Snapshot struct {
	Generation uint64        `json:"generation"`
	Mine       []store.Entry `json:"mine"`
	Others     []store.Entry `json:"others"`
	Bulk       bulk.View     `json:"bulk"`
}

// Server serves the engine state and actions.
type Server struct {
	logger    *logrus.Entry
	mu        sync.Mutex
	server    *http.Server
	closed    bool
	engine    *engine.Engine
	upgrader  websocket.Upgrader
	startedAt time.Time
}

// New creates a new Server instance.
func New(eng *engine.Engine, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		logger:    logger,
		engine:    eng,
		startedAt: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/exports", s.handleList)
	mux.HandleFunc("GET /api/exports/{id}", s.handleGet)
	mux.HandleFunc("POST /api/exports/{id}/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/exports/{id}/regenerate", s.handleRegenerate)
	mux.HandleFunc("POST /api/exports/{id}/select", s.handleSelect)
	mux.HandleFunc("POST /api/exports/{id}/modals/{kind}", s.handleModal)
	mux.HandleFunc("GET /api/bulk", s.handleBulkView)
	mux.HandleFunc("POST /api/bulk/all", s.handleBulkAll)
	mux.HandleFunc("POST /api/bulk/none", s.handleBulkNone)
	mux.HandleFunc("POST /api/bulk/download", s.handleBulkDownload)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to listen on "+addr)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
// If Shutdown already ran, the listener is closed and Serve returns at once.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return listener.Close()
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.server = srv
	s.mu.Unlock()

	s.logger.WithField("addr", listener.Addr().String()).Info("View server listening")
	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) snapshot() Snapshot {
	snap := Snapshot{
		Generation: s.engine.Store().Generation(),
		Mine:       []store.Entry{},
		Others:     []store.Entry{},
		Bulk:       s.engine.Bulk().View(),
	}
	for _, e := range s.engine.Store().Entries() {
		if e.MyExport {
			snap.Mine = append(snap.Mine, e)
		} else {
			snap.Others = append(snap.Others, e)
		}
	}
	return snap
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine.Store().Entry(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.engine.Toggles().Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isAutoRebuildEnabled": enabled})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Toggles().RequestRegeneration(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "polling"})
}

// handleSelect sets the record's selection from {"selected": bool}, or flips
// it when the body is empty.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Selected *bool `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	var err error
	if req.Selected == nil {
		_, err = s.engine.Bulk().Flip(id)
	} else {
		err = s.engine.Bulk().Set(id, *req.Selected)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Bulk().View())
}

func (s *Server) handleModal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	kind := store.ModalKind(r.PathValue("kind"))
	if kind != store.ModalRefreshConfirm && kind != store.ModalAutoRefresh {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "unknown modal "+string(kind)))
		return
	}
	var req struct {
		Open bool `json:"open"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	rec, err := s.engine.Store().Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	key := store.ModalKey(kind, id, rec.GroupID())
	if req.Open {
		s.engine.Store().OpenModal(key)
	} else {
		s.engine.Store().CloseModal(key)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"modal": key, "open": req.Open})
}

func (s *Server) handleBulkView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Bulk().View())
}

func (s *Server) handleBulkAll(w http.ResponseWriter, r *http.Request) {
	s.engine.Bulk().SelectAll()
	writeJSON(w, http.StatusOK, s.engine.Bulk().View())
}

func (s *Server) handleBulkNone(w http.ResponseWriter, r *http.Request) {
	s.engine.Bulk().SelectNone()
	writeJSON(w, http.StatusOK, s.engine.Bulk().View())
}

func (s *Server) handleBulkDownload(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Bulk().Download(r.Context(), s.engine.Client())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}

	exportErr, ok := err.(*errors.ExportError)
	if !ok {
		exportErr = errors.Wrap(err, errors.ErrCodeInternal, err.Error())
	}
	writeJSON(w, status, exportErr)
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeRecordNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNoTask, errors.ErrCodeToggleInFlight, errors.ErrCodeDuplicateRecord:
		return http.StatusConflict
	case errors.ErrCodeRejected, errors.ErrCodeTransport, errors.ErrCodeMalformedResponse:
		return http.StatusBadGateway
	case errors.ErrCodePollExhausted:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
