// Package server exposes fingerprinting over HTTP and streams frame
// comparisons over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/phash/internal/config"
	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/frames"
	"github.com/GriffinCanCode/phash/internal/imageio"
	"github.com/GriffinCanCode/phash/internal/phash"
	"github.com/GriffinCanCode/phash/internal/trace"
)

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	limit      int
	window     time.Duration
	timestamps []time.Time
	mu         sync.Mutex
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window}
}

// allow records the message and reports whether it fits in the window. A
// non-positive limit disables limiting.
func (r *rateLimiter) allow() bool {
	if r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= r.limit {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	hasher  *phash.Hasher
	decoder *imageio.Decoder
	cfg     config.Server
	conns   atomic.Int64
}

// New creates a server. cfg supplies upload limits, the frame similarity
// threshold and the WebSocket rate limit.
func New(hasher *phash.Hasher, decoder *imageio.Decoder, cfg config.Server) *Server {
	if hasher == nil {
		hasher = phash.Default()
	}
	if decoder == nil {
		decoder = imageio.NewDecoder(imageio.DefaultMaxPixels)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	return &Server{hasher: hasher, decoder: decoder, cfg: cfg}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("POST /api/hash", s.handleHash)
	mux.HandleFunc("POST /api/distance", s.handleDistance)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", trace.TraceIDKey)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHash(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "http_hash")
	defer span.End()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			err = apperrors.Newf(apperrors.CodeTooLarge, "upload exceeds %d bytes", tooBig.Limit)
		} else {
			err = apperrors.Wrap(err, apperrors.CodeInvalidInput, "read body")
		}
		writeError(ctx, w, err)
		return
	}
	span.SetAttr("bytes", len(data))

	img, format, err := s.decoder.DecodeBytes(data)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	fp, err := s.hasher.Hash(img)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	b := img.Bounds()
	writeJSON(w, http.StatusOK, HashResponse{
		Hash:   fp.Hex(),
		Bits:   fp.Len(),
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
	})
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DistanceRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(ctx, w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "decode request"))
		return
	}

	a, err := phash.ParseHex(req.A)
	if err != nil {
		writeError(ctx, w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "field a"))
		return
	}
	b, err := phash.ParseHex(req.B)
	if err != nil {
		writeError(ctx, w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "field b"))
		return
	}

	dist, err := phash.Distance(a, b)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	sim, _ := phash.Similarity(a, b)
	writeJSON(w, http.StatusOK, DistanceResponse{Distance: dist, Bits: a.Len(), Similarity: sim})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Config:      s.hasher.Config().Key(),
		Connections: s.conns.Load(),
	})
}

// handleWebSocket treats every binary message as an encoded frame and
// replies with its fingerprint and distance to the last distinct frame.
// A text message {"type":"reset"} forgets the reference frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	conn.SetReadLimit(s.cfg.MaxUploadBytes)

	s.conns.Add(1)
	defer s.conns.Add(-1)

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	tracker := frames.NewTracker(s.hasher, s.cfg.SimilarThreshold)
	rl := newRateLimiter(s.cfg.RateLimitMessages, RateLimitWindow)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			s.reply(ctx, conn, ErrorMessage{Type: MsgError, Message: "rate limit exceeded", Code: apperrors.CodeRateLimited.String()})
			continue
		}

		switch typ {
		case websocket.MessageBinary:
			s.reply(ctx, conn, s.observeFrame(ctx, tracker, data))
		case websocket.MessageText:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil || msg.Type != MsgReset {
				s.reply(ctx, conn, ErrorMessage{Type: MsgError, Message: "expected a binary frame or {\"type\":\"reset\"}", Code: apperrors.CodeInvalidInput.String()})
				continue
			}
			tracker.Reset()
			s.reply(ctx, conn, ResetMessage{Type: MsgReset})
		}
	}
}

func (s *Server) observeFrame(ctx context.Context, tracker *frames.Tracker, data []byte) any {
	ctx, span := trace.StartSpan(ctx, "ws_frame")
	defer span.End()

	img, _, err := s.decoder.DecodeBytes(data)
	if err != nil {
		return errorMessage(err)
	}
	obs, err := tracker.Observe(img)
	if err != nil {
		return errorMessage(err)
	}
	span.SetAttr("seq", obs.Seq)
	trace.Logger(ctx).Debug("frame", "seq", obs.Seq, "distance", obs.Distance, "similar", obs.Similar)

	return FrameMessage{
		Type:     MsgFrame,
		Seq:      obs.Seq,
		Hash:     obs.Hash.Hex(),
		Distance: obs.Distance,
		Similar:  obs.Similar,
	}
}

func (s *Server) reply(ctx context.Context, conn *websocket.Conn, msg any) {
	ctx, cancel := context.WithTimeout(ctx, WSWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		trace.Logger(ctx).Debug("websocket write error", "error", err)
	}
}

func errorMessage(err error) ErrorMessage {
	return ErrorMessage{Type: MsgError, Message: err.Error(), Code: apperrors.CodeOf(err).String()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	ae, ok := apperrors.As(err)
	if !ok {
		ae = apperrors.Wrap(err, apperrors.CodeInternal, "internal error")
	}
	status := ae.HTTPStatus()
	if status >= http.StatusInternalServerError {
		trace.Logger(ctx).Error("request failed", "error", err)
	} else {
		trace.Logger(ctx).Debug("request rejected", "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: ae.Code.String()})
}
