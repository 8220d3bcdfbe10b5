// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes ranking runs and the current corpus memory over
// HTTP. A successful POST /rank replaces the memory wholesale; the read
// endpoints answer 503 until the first ranking has completed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pdiddy/paperscout/internal/embedding"
	"github.com/pdiddy/paperscout/internal/feed"
	"github.com/pdiddy/paperscout/internal/memory"
	"github.com/pdiddy/paperscout/internal/metrics"
	"github.com/pdiddy/paperscout/internal/ranking"
	"github.com/pdiddy/paperscout/pkg/types"
)

// defaultTopK is used when a top or context request omits k.
const defaultTopK = 5

// Ranker runs one ranking.
type Ranker interface {
	Run(ctx context.Context, req ranking.Request) (*ranking.Result, error)
}

// ModelChecker reports whether an embedding model is ready.
type ModelChecker interface {
	Check(ctx context.Context, id string) error
}

// Options configures a Server.
type Options struct {
	Ranker   Ranker
	Memory   *memory.Holder
	Models   ModelChecker
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// Defaults fill the fields a rank request leaves out.
	Ranking   types.RankingConfig
	FeedLimit int
	Model     string
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	opts   Options
	holder *memory.Holder
	logger *slog.Logger

	// mu guards the latest rank request. A new request cancels the one
	// in flight, and only the latest may replace the memory.
	mu         sync.Mutex
	generation uint64
	cancelRun  context.CancelFunc
}

// New creates a Server. A nil Memory gets a fresh Holder.
func New(opts Options) *Server {
	holder := opts.Memory
	if holder == nil {
		holder = &memory.Holder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts, holder: holder, logger: logger}
}

// Memory returns the holder the server publishes to.
func (s *Server) Memory() *memory.Holder { return s.holder }

// Routes returns the instrumented router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/rank", s.rankHandler).Methods(http.MethodPost)

	r.HandleFunc("/corpus", s.corpusHandler).Methods(http.MethodGet)
	r.HandleFunc("/corpus/top", s.topHandler).Methods(http.MethodGet)
	r.HandleFunc("/corpus/context", s.contextHandler).Methods(http.MethodGet)
	r.HandleFunc("/corpus/papers/{id:.+}", s.paperHandler).Methods(http.MethodGet)

	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return otelhttp.NewHandler(r, "paperscout",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// RankRequest is the body of POST /rank. Zero fields take the server
// defaults.
type RankRequest struct {
	Topic        string              `json:"topic"`
	FeedLimit    int                 `json:"feed_limit,omitempty"`
	OutputLimit  int                 `json:"output_limit,omitempty"`
	Model        string              `json:"model,omitempty"`
	HalfLifeDays float64             `json:"half_life_days,omitempty"`
	Weights      *types.WeightConfig `json:"weights,omitempty"`
}

func (s *Server) toRequest(body RankRequest) ranking.Request {
	req := ranking.Request{
		Topic:        body.Topic,
		FeedLimit:    body.FeedLimit,
		OutputLimit:  body.OutputLimit,
		ModelID:      body.Model,
		HalfLifeDays: body.HalfLifeDays,
		Weights:      s.opts.Ranking.Weights,
	}
	if req.FeedLimit == 0 {
		req.FeedLimit = s.opts.FeedLimit
	}
	if req.OutputLimit == 0 {
		req.OutputLimit = s.opts.Ranking.OutputLimit
	}
	if req.ModelID == "" {
		req.ModelID = s.opts.Model
	}
	if req.HalfLifeDays == 0 {
		req.HalfLifeDays = s.opts.Ranking.HalfLifeDays
	}
	if body.Weights != nil {
		req.Weights = *body.Weights
	}
	return req
}

func (s *Server) rankHandler(w http.ResponseWriter, r *http.Request) {
	var body RankRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx, cancel, gen := s.beginRun(r.Context())
	defer cancel()
	res, err := s.opts.Ranker.Run(ctx, s.toRequest(body))

	s.mu.Lock()
	latest := gen == s.generation
	if latest {
		s.cancelRun = nil
		if err == nil {
			s.holder.Replace(memory.New(res.Corpus))
			s.opts.Metrics.SetCorpusSize(res.Corpus.Len())
		}
	}
	s.mu.Unlock()

	switch {
	case !latest:
		s.logger.Info("rank request superseded", "topic", body.Topic)
		writeError(w, http.StatusConflict, "superseded by a newer rank request")
	case err != nil:
		s.logger.Warn("rank request failed", "topic", body.Topic, "error", err)
		writeError(w, statusFor(err), err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// beginRun cancels the rank request in flight, if any, and registers a
// new one. The returned context ends when the request ends or a newer
// request begins.
func (s *Server) beginRun(parent context.Context) (context.Context, context.CancelFunc, uint64) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.generation++
	s.cancelRun = cancel
	return ctx, cancel, s.generation
}

// statusFor maps run errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ranking.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, ranking.ErrNoCandidates):
		return http.StatusUnprocessableEntity
	case errors.Is(err, feed.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, embedding.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// current returns the memory or writes 503 when no ranking has run.
func (s *Server) current(w http.ResponseWriter) *memory.Memory {
	m := s.holder.Current()
	if m == nil {
		writeError(w, http.StatusServiceUnavailable, "no ranking has completed yet")
	}
	return m
}

func (s *Server) corpusHandler(w http.ResponseWriter, _ *http.Request) {
	if m := s.current(w); m != nil {
		writeJSON(w, http.StatusOK, m.Corpus())
	}
}

func (s *Server) topHandler(w http.ResponseWriter, r *http.Request) {
	k, ok := parseK(w, r)
	if !ok {
		return
	}
	if m := s.current(w); m != nil {
		writeJSON(w, http.StatusOK, m.TopK(k))
	}
}

func (s *Server) contextHandler(w http.ResponseWriter, r *http.Request) {
	k, ok := parseK(w, r)
	if !ok {
		return
	}
	m := s.current(w)
	if m == nil {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(m.GroundingContext(k)))
}

func (s *Server) paperHandler(w http.ResponseWriter, r *http.Request) {
	m := s.current(w)
	if m == nil {
		return
	}
	id := mux.Vars(r)["id"]
	entry, ok := m.Entry(id)
	if !ok {
		writeError(w, http.StatusNotFound, "paper "+id+" is not in the current corpus")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"model":     s.opts.Model,
	}
	if m := s.holder.Current(); m != nil {
		resp["run_id"] = m.RunID()
		resp["corpus_size"] = m.Len()
	}

	status := http.StatusOK
	if s.opts.Models != nil && s.opts.Model != "" {
		if err := s.opts.Models.Check(r.Context(), s.opts.Model); err != nil {
			resp["status"] = "degraded"
			resp["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// parseK reads the k query parameter. A missing k means defaultTopK.
func parseK(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("k")
	if raw == "" {
		return defaultTopK, true
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "k must be an integer")
		return 0, false
	}
	return k, true
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", wrapped.statusCode, "duration", time.Since(start).String())
	})
}

// responseWriter captures the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
