package server

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	apierrors "github.com/auditdapps/slither-api/pkg/errors"
	"github.com/auditdapps/slither-api/pkg/metrics"
)

// =============================================================================
// Request IDs
// =============================================================================

type contextKey string

const requestIDKey contextKey = "request_id"

// requestIDHeader is honored from clients and echoed in responses.
const requestIDHeader = "X-Request-ID"

// requestID assigns each request a UUID unless the client supplied one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDFromContext returns the request ID, or empty.
func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// =============================================================================
// Logging
// =============================================================================

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("request: id=%s method=%s path=%s status=%d duration=%s",
			requestIDFromContext(r.Context()), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// =============================================================================
// Metrics
// =============================================================================

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := metricPath(r.URL.Path)
		s.collector.CounterInc(metrics.HTTPRequestsTotal.Name,
			"method", r.Method, "path", path, "status", strconv.Itoa(rec.status))
		s.collector.HistogramObserve(metrics.HTTPRequestDuration.Name,
			time.Since(start).Seconds(), "method", r.Method, "path", path)
	})
}

// metricPath keeps the path label cardinality bounded.
func metricPath(path string) string {
	switch path {
	case "/health", "/analyze", "/metrics", "/healthz", "/readyz":
		return path
	default:
		return "other"
	}
}

// =============================================================================
// CORS
// =============================================================================

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Encoding, X-Request-ID")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// =============================================================================
// Body decompression
// =============================================================================

// decodeBody wraps the body reader according to the Content-Encoding header.
func decodeBody(body io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip":
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, apierrors.WithDetail(apierrors.KindInvalidInput, "request body is not valid gzip", "")
		}
		return gz, nil
	case "zstd":
		dec, err := zstd.NewReader(body)
		if err != nil {
			return nil, apierrors.WithDetail(apierrors.KindInvalidInput, "request body is not valid zstd", "")
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, apierrors.WithDetail(apierrors.KindInvalidInput, "unsupported content encoding", encoding)
	}
}
