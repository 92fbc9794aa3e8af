package cellservice

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/aurae-runtime/auraed/internal/aeerror"
	"github.com/aurae-runtime/auraed/internal/auraelog"
	"github.com/aurae-runtime/auraed/internal/cells"
	"github.com/aurae-runtime/auraed/internal/executable"
	"github.com/aurae-runtime/auraed/internal/isolation"
	"github.com/aurae-runtime/auraed/internal/logstream"
	"github.com/aurae-runtime/auraed/internal/validation"
)

// upgrader mirrors canonical-lxd/lxd-agent/events.go's ws.Upgrader: no
// origin check, since this surface is reached only over a Unix socket
// or mTLS, never a browser context.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server exposes CellService and ObserveService as an HTTPS+mTLS JSON
// API, rendered with gorilla/mux the way canonical-lxd/lxd/api.go
// builds its router.
type Server struct {
	router *Router
	mux    *mux.Router
}

// NewServer builds the mux.Router and binds every CellService/
// ObserveService handler to it.
func NewServer(router *Router) *Server {
	s := &Server{router: router, mux: mux.NewRouter()}
	s.mux.StrictSlash(false)
	s.mux.SkipClean(true)

	s.mux.HandleFunc("/v1/discover", s.handleDiscover).Methods(http.MethodGet)
	s.mux.HandleFunc("/v1/cell/allocate", s.handleAllocate).Methods(http.MethodPost)
	s.mux.HandleFunc("/v1/cell/free", s.handleFree).Methods(http.MethodPost)
	s.mux.HandleFunc("/v1/cell/start", s.handleStart).Methods(http.MethodPost)
	s.mux.HandleFunc("/v1/cell/stop", s.handleStop).Methods(http.MethodPost)
	s.mux.HandleFunc("/v1/observe/daemon-log", s.handleDaemonLog).Methods(http.MethodGet)
	s.mux.HandleFunc("/v1/observe/subprocess-stream", s.handleSubProcessStream).Methods(http.MethodGet)
	s.mux.HandleFunc("/v1/observe/posix-signals", s.handlePosixSignals).Methods(http.MethodGet)

	return s
}

// ServeHTTP makes Server an http.Handler directly usable by the socket
// bootstrap.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DiscoverResponse{Healthy: true, APIVersion: APIVersion})
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if !decodeOrFail(w, r, &req) {
		return
	}

	name, err := validation.Parse(req.CellName)
	if err != nil {
		writeError(w, err)
		return
	}

	spec := cells.Spec{
		Cgroup: CgroupSpecFrom(req.Cgroup),
		Iso: isolation.Controls{
			IsolateProcess: req.Iso.IsolateProcess,
			IsolateNetwork: req.Iso.IsolateNetwork,
		},
	}

	if err := s.router.Allocate(name, spec); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AllocateResponse{CellName: name.String(), CgroupV2: true})
}

func (s *Server) handleFree(w http.ResponseWriter, r *http.Request) {
	var req FreeRequest
	if !decodeOrFail(w, r, &req) {
		return
	}

	name, err := validation.Parse(req.CellName)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.router.Free(name); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !decodeOrFail(w, r, &req) {
		return
	}

	path, err := validation.ParsePathCell(req.CellName)
	if err != nil {
		writeError(w, err)
		return
	}

	pid, err := s.router.Start(path, executable.Spec{
		Name:        req.ExecutableName,
		Description: req.ExecutableDesc,
		Command:     req.ExecutableCommand,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StartResponse{Pid: pid})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req StopRequest
	if !decodeOrFail(w, r, &req) {
		return
	}

	path, err := validation.ParsePathCell(req.CellName)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.router.Stop(path, req.ExecutableName); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// handleDaemonLog streams this daemon's own log lines (GetAuraeDaemonLogStream).
func (s *Server) handleDaemonLog(w http.ResponseWriter, r *http.Request) {
	streamChannel(w, r, auraelog.DaemonLog())
}

// handleSubProcessStream streams one executable's stdout or stderr
// (GetSubProcessStream), selected by ?executable=&stream=stdout|stderr.
func (s *Server) handleSubProcessStream(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("executable")

	exe, ok := s.router.Executables().Get(name)
	if !ok {
		writeError(w, aeerror.CellNotFound(name))
		return
	}

	ch := exe.Stdout
	if r.URL.Query().Get("stream") == "stderr" {
		ch = exe.Stderr
	}

	streamChannel(w, r, ch)
}

// handlePosixSignals streams {pid, signr} records (GetPosixSignalsStream),
// optionally scoped to one cell via ?cell_name=. Degrades to a stable
// error code (never a dropped connection) if this daemon never loaded
// the eBPF pipeline, per the eBPF-coupling design note.
func (s *Server) handlePosixSignals(w http.ResponseWriter, r *http.Request) {
	cellPath := r.URL.Query().Get("cell_name")

	events, cancel, err := s.router.Signals(cellPath)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	if r.Header.Get("Upgrade") == "websocket" {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		for evt := range events {
			if err := conn.WriteJSON(signalEvent{Pid: evt.Pid, Signr: evt.Signr}); err != nil {
				return
			}
		}

		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for evt := range events {
		if err := enc.Encode(signalEvent{Pid: evt.Pid, Signr: evt.Signr}); err != nil {
			return
		}

		if flusher != nil {
			flusher.Flush()
		}
	}
}

// streamChannel upgrades to a websocket when asked, falling back to a
// long-poll, newline-delimited stream otherwise, mirroring
// canonical-lxd/lxd-agent/events.go's eventsSocket. Cancellation:
// closing the client connection (or the subscriber channel closing)
// ends the loop on the next send attempt.
func streamChannel(w http.ResponseWriter, r *http.Request, ch *logstream.LogChannel) {
	sub := ch.Subscribe()
	defer ch.Unsubscribe(sub)

	if r.Header.Get("Upgrade") == "websocket" {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		for line := range sub {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}

		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	for line := range sub {
		if _, err := w.Write([]byte(line + "\n")); err != nil {
			return
		}

		if flusher != nil {
			flusher.Flush()
		}
	}
}

func decodeOrFail(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, aeerror.Validation("body", nil))
		return false
	}

	defer func() { _ = r.Body.Close() }()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, aeerror.Validation("body", err))
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	code := "unknown"
	status := http.StatusInternalServerError

	var aerr *aeerror.Error
	if errors.As(err, &aerr) {
		code = string(aerr.Code)
		status = statusForCode(aerr.Code)
	}

	writeJSON(w, status, apiError{Code: code, Message: err.Error()})
}

func statusForCode(code aeerror.Code) int {
	switch code {
	case aeerror.CodeValidation:
		return http.StatusBadRequest
	case aeerror.CodeCellNotFound:
		return http.StatusNotFound
	case aeerror.CodeCellExists:
		return http.StatusConflict
	case aeerror.CodeCellNotAllocated:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// keepaliveInterval is unused by the long-poll branch but documents the
// websocket ping cadence a production deployment would add; left as a
// constant rather than wired, since no client in this pack requires
// server-initiated pings within the test matrix.
const keepaliveInterval = 30 * time.Second
