// Package server exposes the agent pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Protocol-Lattice/agentforge/src/cache"
	"github.com/Protocol-Lattice/agentforge/src/generation"
	"github.com/Protocol-Lattice/agentforge/src/logging"
	"github.com/Protocol-Lattice/agentforge/src/pipeline"
	"github.com/Protocol-Lattice/agentforge/src/spec"
	"github.com/Protocol-Lattice/agentforge/src/store"
)

const (
	maxBodyBytes = 1 << 20
	replaySize   = 256

	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
)

// Service is the pipeline surface the handlers use.
type Service interface {
	Create(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	List(ctx context.Context) ([]store.Record, error)
}

// Options configure a Server.
type Options struct {
	Addr      string
	StaticDir string
	// ReplayTTL is how long a successful create response is replayed for a
	// repeated Idempotency-Key and body. Zero disables replay.
	ReplayTTL time.Duration
}

type Server struct {
	svc    Service
	opts   Options
	log    *logging.Logger
	replay *cache.LRUCache[replayed]
}

type replayed struct {
	status int
	body   []byte
}

func New(svc Service, log *logging.Logger, opts Options) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{svc: svc, opts: opts, log: log.Component("http")}
	if opts.ReplayTTL > 0 {
		s.replay = cache.NewLRUCache[replayed](replaySize, opts.ReplayTTL)
	}
	return s
}

// Handler returns the routed handler with request ids and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/create-agent", s.handleCreate)
	mux.HandleFunc("GET /api/agents", s.handleList)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.opts.StaticDir)))
	}
	return withRequestID(withCORS(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type customToolPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createPayload struct {
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	StandardTools []string            `json:"standardTools"`
	CustomTools   []customToolPayload `json:"customTools"`
}

type agentView struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
	StorageKey  string   `json:"storageKey,omitempty"`
	Artifact    string   `json:"artifact,omitempty"`
	MergedTools []string `json:"mergedTools,omitempty"`
}

type envelope struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message,omitempty"`
	Agent    *agentView `json:"agent,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, s.log)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, envelope{Message: err.Error()})
		return
	}
	var payload createPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: fmt.Sprintf("invalid JSON: %v", err)})
		return
	}

	replayKey := ""
	if key := strings.TrimSpace(r.Header.Get(idempotencyHeader)); key != "" && s.replay != nil {
		replayKey = cache.HashKey(key, string(raw))
		if prev, ok := s.replay.Get(replayKey); ok {
			log.Infof("replaying create response for %q", payload.Name)
			w.Header().Set(replayedHeader, "true")
			writeRaw(w, prev.status, prev.body)
			return
		}
	}

	req := pipeline.Request{
		Name:          payload.Name,
		Description:   payload.Description,
		StandardTools: payload.StandardTools,
	}
	for _, ct := range payload.CustomTools {
		req.CustomTools = append(req.CustomTools, spec.CustomTool{DisplayName: ct.Name, Description: ct.Description})
	}

	res, err := s.svc.Create(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		log.With("status", fmt.Sprint(status)).Errorf("create agent %q: %v", payload.Name, err)
		body := envelope{Message: err.Error()}
		if res != nil {
			body.Agent = viewOf(res)
			body.Warnings = res.Warnings
		}
		writeJSON(w, status, body)
		return
	}

	body := writeJSON(w, http.StatusOK, envelope{
		Success:  true,
		Message:  fmt.Sprintf("Agent '%s' created successfully", res.Spec.Name),
		Agent:    viewOf(res),
		Warnings: res.Warnings,
	})
	if replayKey != "" {
		s.replay.Set(replayKey, replayed{status: http.StatusOK, body: body})
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.List(r.Context())
	if err != nil {
		requestLogger(r, s.log).Errorf("list agents: %v", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Message: err.Error()})
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool           `json:"success"`
		Agents  []store.Record `json:"agents"`
	}{true, records})
}

func viewOf(res *pipeline.Result) *agentView {
	return &agentView{
		Name:        res.Spec.Name,
		Description: res.Spec.Description,
		Tools:       res.Spec.Tools(),
		StorageKey:  res.Record.ID,
		Artifact:    res.Path,
		MergedTools: res.Merged,
	}
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var gerr *generation.Error
	switch {
	case errors.Is(err, spec.ErrInvalidSpec):
		return http.StatusBadRequest
	case errors.As(err, &gerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes body and returns the bytes written.
func writeJSON(w http.ResponseWriter, status int, body any) []byte {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(envelope{Message: err.Error()})
	}
	data = append(data, '\n')
	writeRaw(w, status, data)
	return data
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

type ctxKey struct{}

const requestIDHeader = "X-Request-ID"

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func requestLogger(r *http.Request, log *logging.Logger) *logging.Logger {
	if id := RequestID(r.Context()); id != "" {
		return log.With("request_id", id)
	}
	return log
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader+", "+idempotencyHeader)
		h.Set("Access-Control-Expose-Headers", requestIDHeader+", "+replayedHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
