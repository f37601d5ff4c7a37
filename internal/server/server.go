// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/events"
	"github.com/GriffinCanCode/scan-sentry/internal/session"
	"github.com/GriffinCanCode/scan-sentry/internal/trace"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

// CommandMessage is a client command sent over the WebSocket.
type CommandMessage struct {
	Type string `json:"type"`
	session.Command
}

type ResultMessage struct {
	Type   string          `json:"type"`
	Result *session.Result `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

type EventMessage struct {
	Type  string       `json:"type"`
	Entry events.Entry `json:"entry"`
}

type BacklogMessage struct {
	Type    string         `json:"type"`
	Entries []events.Entry `json:"entries"`
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorBody is the JSON form of a failed command.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"metadata,omitempty"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
	now        func() time.Time
}

func newRateLimiter() *rateLimiter { return &rateLimiter{now: time.Now} }

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	exec       session.Executor
	log        *events.Log
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
	cancel     func()
}

// New creates a new server. Entries added to log are pushed to every
// connected WebSocket client.
func New(exec session.Executor, log *events.Log) *Server {
	s := &Server{
		exec:       exec,
		log:        log,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	ch, cancel := log.Subscribe(SubscriberBuffer)
	s.cancel = cancel
	go s.broadcastEvents(ch)

	return s
}

// Close stops the broadcaster.
func (s *Server) Close() {
	s.cancel()
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("POST /api/corner/{which}", s.handleCorner)
	mux.HandleFunc("POST /api/scan/start", s.command(session.CmdStartScan))
	mux.HandleFunc("POST /api/scan/stop", s.command(session.CmdStopScan))
	mux.HandleFunc("POST /api/overlay/toggle", s.command(session.CmdToggleOverlay))
	mux.HandleFunc("POST /api/settings", s.command(session.CmdConfigure))
	mux.HandleFunc("POST /api/config/save", s.command(session.CmdSaveConfig))
	mux.HandleFunc("POST /api/config/load", s.command(session.CmdLoadConfig))
	mux.HandleFunc("POST /api/exit", s.command(session.CmdExit))

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Backlog goes out before the connection joins the broadcast set so a
	// new client never sees a live entry ahead of older ones.
	if err := wsjson.Write(baseCtx, conn, BacklogMessage{Type: "backlog", Entries: s.log.Recent(BacklogSize)}); err != nil {
		log.Debug("websocket backlog write error", "error", err)
		return
	}

	rl := newRateLimiter()
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = rl
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "command":
			var cmd CommandMessage
			if err := json.Unmarshal(msg, &cmd); err != nil {
				_ = wsjson.Write(baseCtx, conn, ResultMessage{Type: "result", Error: &ErrorBody{
					Code: string(apperrors.CodePrecondition), Message: "malformed command",
				}})
				continue
			}
			ctx := baseCtx
			if tc, ok := trace.ExtractFromJSON(msg); ok {
				ctx = trace.WithContext(baseCtx, tc)
			}
			s.handleCommand(ctx, conn, cmd.Command)
		}
	}
}

func (s *Server) handleCommand(ctx context.Context, conn *websocket.Conn, cmd session.Command) {
	res, err := s.exec.Execute(ctx, cmd)
	out := ResultMessage{Type: "result", Result: &res}
	if err != nil {
		trace.Logger(ctx).Warn("command failed", "command", cmd.Name, "error", err)
		out.Error = errorBody(err)
	}
	_ = wsjson.Write(ctx, conn, out)
}

func (s *Server) broadcastEvents(ch <-chan events.Entry) {
	for entry := range ch {
		msg := EventMessage{Type: "event", Entry: entry}

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
				defer cancel()
				_ = wsjson.Write(ctx, c, msg)
			}(conn)
		}
		s.mu.RUnlock()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.exec.Execute(r.Context(), session.Command{Name: session.CmdStatus})
	writeResult(w, res, err)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	n := DefaultEventsPage
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, apperrors.Newf(apperrors.CodePrecondition, "invalid n %q", v))
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.log.Recent(n)})
}

func (s *Server) handleCorner(w http.ResponseWriter, r *http.Request) {
	cmd, err := decodeCommand(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cmd.Name = session.CmdSetCorner
	cmd.Corner = r.PathValue("which")
	res, err := s.exec.Execute(r.Context(), cmd)
	writeResult(w, res, err)
}

// command returns a handler that runs name with the optional JSON body as
// arguments.
func (s *Server) command(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := decodeCommand(r)
		if err != nil {
			writeError(w, err)
			return
		}
		cmd.Name = name
		res, err := s.exec.Execute(r.Context(), cmd)
		writeResult(w, res, err)
	}
}

func decodeCommand(r *http.Request) (session.Command, error) {
	var cmd session.Command
	if r.Body == nil {
		return cmd, nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(&cmd)
	if err != nil && !errors.Is(err, io.EOF) {
		return cmd, apperrors.Wrap(err, apperrors.CodePrecondition, "malformed request body")
	}
	return cmd, nil
}

func writeResult(w http.ResponseWriter, res session.Result, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), map[string]*ErrorBody{"error": errorBody(err)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(err error) *ErrorBody {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return &ErrorBody{Code: string(appErr.Code), Message: appErr.Message, Meta: appErr.Metadata}
	}
	return &ErrorBody{Code: string(apperrors.CodeUnknown), Message: err.Error()}
}

func httpStatus(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodePrecondition:
		return http.StatusConflict
	case apperrors.CodeConfigParse:
		return http.StatusBadRequest
	case apperrors.CodeConfigMissing:
		return http.StatusNotFound
	case apperrors.CodeUnavailable, apperrors.CodeCapture, apperrors.CodeRecognition:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
