// Package server provides the HTTP boundary of the analysis service.
// It exposes the analyze and health endpoints, maps error kinds to
// status codes, and carries the request-scoped middleware (request IDs,
// logging, CORS, rate limiting, body decompression).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/auditdapps/slither-api/pkg/analyzer/slither"
	"github.com/auditdapps/slither-api/pkg/core"
	apierrors "github.com/auditdapps/slither-api/pkg/errors"
	"github.com/auditdapps/slither-api/pkg/health"
	"github.com/auditdapps/slither-api/pkg/metrics"
)

// exitCodeNote explains the exit-code tolerance to API clients.
const exitCodeNote = "Slither may exit non-zero even when JSON output is valid."

// Analyzer runs the static analyzer and returns normalized findings.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, sourceText, fileName string) (*slither.Analysis, error)
}

// Config holds the HTTP-boundary settings.
type Config struct {
	// MaxBodyBytes bounds the request body (after decompression).
	MaxBodyBytes int64

	// AllowedOrigins is the CORS allow-list. Empty disables CORS headers.
	AllowedOrigins []string

	// RateLimit is the sustained analyze requests per second. Zero
	// disables rate limiting.
	RateLimit float64

	// RateBurst is the rate limiter burst size.
	RateBurst int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		// Source limit is 200000 bytes; leave headroom for JSON framing.
		MaxBodyBytes: 300_000,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		RateLimit: 4,
		RateBurst: 8,
	}
}

// Server wires the analyzer behind the HTTP endpoints.
type Server struct {
	cfg       Config
	analyzer  Analyzer
	logger    core.Logger
	collector metrics.Collector
	health    *health.Handler
	limiter   *rate.Limiter
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCollector sets the metrics collector.
func WithCollector(collector metrics.Collector) Option {
	return func(s *Server) {
		if collector != nil {
			s.collector = collector
		}
	}
}

// WithHealth attaches a probe handler serving /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// New creates a server around the given analyzer.
func New(cfg Config, analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		analyzer:  analyzer,
		logger:    &core.NopLogger{},
		collector: &metrics.NopCollector{},
	}

	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Routes builds the full handler with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.Handle("GET /metrics", s.collector.Handler())

	if s.health != nil {
		s.health.RegisterRoutes(mux)
	}

	var handler http.Handler = mux
	handler = s.instrument(handler)
	handler = s.cors(handler)
	handler = s.logRequests(handler)
	handler = requestID(handler)
	return handler
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"tool":   s.analyzer.Name(),
	})
}

// analyzeRequest is the POST /analyze body.
type analyzeRequest struct {
	SourceText string `json:"source_text"`
	FileName   string `json:"file_name"`
}

// analyzeResponse is the success body for POST /analyze.
type analyzeResponse struct {
	Tool     string            `json:"tool"`
	Count    int               `json:"count"`
	Findings []slither.Finding `json:"findings"`
	Raw      rawStatus         `json:"raw"`
}

// rawStatus reports the underlying process outcome. A parseable report
// counts as success even when the exit code is non-zero.
type rawStatus struct {
	Success  bool   `json:"success"`
	ExitCode int    `json:"exit_code"`
	Note     string `json:"note"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.collector.CounterInc(metrics.HTTPRateLimitedTotal.Name)
		s.writeError(w, r, apierrors.ErrRateLimited)
		return
	}

	req, err := s.decodeAnalyzeRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.collector.GaugeInc(metrics.AnalyzeInFlight.Name)
	defer s.collector.GaugeDec(metrics.AnalyzeInFlight.Name)
	s.collector.HistogramObserve(metrics.AnalyzeSourceBytes.Name, float64(len(req.SourceText)))

	timer := metrics.NewTimer(s.collector, metrics.AnalyzeDuration.Name)
	analysis, err := s.analyzer.Analyze(r.Context(), req.SourceText, req.FileName)
	timer.ObserveDuration()

	if err != nil {
		if apierrors.IsTimeout(err) {
			s.collector.CounterInc(metrics.AnalyzeTimeoutsTotal.Name)
		}
		s.writeError(w, r, err)
		return
	}

	counts := analysis.SeverityCounts()
	for level, n := range map[string]int{
		"Critical": counts.Critical,
		"High":     counts.High,
		"Medium":   counts.Medium,
		"Low":      counts.Low,
		"Info":     counts.Info,
	} {
		if n > 0 {
			s.collector.CounterAdd(metrics.AnalyzeFindingsTotal.Name, float64(n), "severity", level)
		}
	}
	s.collector.CounterInc(metrics.AnalyzeRequestsTotal.Name, "status", "ok")

	s.logger.Info("analyze complete: request_id=%s findings=%d highest=%s exit_code=%d duration_ms=%d",
		requestIDFromContext(r.Context()), len(analysis.Findings), counts.Highest(), analysis.ExitCode, analysis.DurationMs)

	findings := analysis.Findings
	if findings == nil {
		findings = []slither.Finding{}
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Tool:     s.analyzer.Name(),
		Count:    len(findings),
		Findings: findings,
		Raw: rawStatus{
			Success:  true,
			ExitCode: analysis.ExitCode,
			Note:     exitCodeNote,
		},
	})
}

// decodeAnalyzeRequest reads and decodes the request body, honoring the
// Content-Encoding header and the configured body limit.
func (s *Server) decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (*analyzeRequest, error) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	body, err := decodeBody(body, r.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}

	// Bound the decompressed stream as well.
	body = io.LimitReader(body, s.cfg.MaxBodyBytes+1)

	var req analyzeRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apierrors.ErrSourceTooLarge
		}
		return nil, apierrors.WithDetail(apierrors.KindInvalidInput, "request body is not valid JSON", "")
	}

	if strings.TrimSpace(req.FileName) == "" {
		req.FileName = slither.DefaultFileName
	}

	return &req, nil
}

// =============================================================================
// Response helpers
// =============================================================================

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apierrors.GetKind(err)
	status := kind.HTTPStatus()

	resp := errorResponse{Detail: apierrors.GetDetail(err)}
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) {
		resp.Error = apiErr.Message
	} else {
		resp.Error = "internal error"
	}

	s.collector.CounterInc(metrics.AnalyzeRequestsTotal.Name, "status", kind.String())
	s.logger.Warn("analyze failed: request_id=%s kind=%s status=%d err=%v",
		requestIDFromContext(r.Context()), kind, status, err)

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// HTTP server construction
// =============================================================================

// NewHTTPServer wraps the routes in an http.Server with sane timeouts.
// Write timeout leaves headroom over the analyzer budget.
func NewHTTPServer(addr string, handler http.Handler, analyzerTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      analyzerTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
