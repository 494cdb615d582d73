// Package api serves event comparisons, stored results and consistency
// audits over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/finops-claw-gang/eventcheck-go/internal/agui"
	"github.com/finops-claw-gang/eventcheck-go/internal/batch"
	"github.com/finops-claw-gang/eventcheck-go/internal/compare"
	"github.com/finops-claw-gang/eventcheck-go/internal/observability"
	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
	"github.com/finops-claw-gang/eventcheck-go/internal/store"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/querier"
)

// maxBatchPairs bounds the pairs accepted by one batch request.
const maxBatchPairs = 100

// Options configures a Server. Only CORSOrigins is required; every nil
// dependency disables the routes or middleware that need it.
type Options struct {
	CORSOrigins []string
	OIDC        OIDCConfig

	// Comparator is used when a request carries no alias rules.
	// Nil means compare.Default().
	Comparator *compare.Comparator
	BatchLimit int

	Store   store.Store                // nil = results are not persisted
	Querier querier.AuditQuerier       // nil = audit routes answer 503
	Limiter *ratelimit.ClientLimiter   // nil = no per-client rate limit
	Metrics *observability.HTTPMetrics // nil = no /metrics route

	// Instruments records comparisons and batch latency as OTel metrics.
	Instruments *observability.Metrics

	// Stream controls the audit progress stream; zero means agui.DefaultConfig().
	Stream agui.StreamConfig
}

// Server is the HTTP API server.
type Server struct {
	comparator *compare.Comparator
	batchLimit int
	store      store.Store
	querier    querier.AuditQuerier
	metrics    *observability.HTTPMetrics
	otel       *observability.Metrics
	stream     agui.StreamConfig

	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server. With OIDC enabled it performs provider discovery
// against the issuer, so ctx bounds that request.
func New(ctx context.Context, opts Options) (*Server, error) {
	s := &Server{
		comparator: opts.Comparator,
		batchLimit: opts.BatchLimit,
		store:      opts.Store,
		querier:    opts.Querier,
		metrics:    opts.Metrics,
		otel:       opts.Instruments,
		stream:     opts.Stream,
		mux:        http.NewServeMux(),
	}
	if s.comparator == nil {
		s.comparator = compare.Default()
	}
	if s.batchLimit <= 0 {
		s.batchLimit = batch.DefaultLimit
	}
	if s.stream == (agui.StreamConfig{}) {
		s.stream = agui.DefaultConfig()
	}
	s.routes()

	var h http.Handler = s.mux
	if opts.Limiter != nil {
		h = rateLimit(opts.Limiter, h)
	}
	if opts.OIDC.Enabled {
		provider, err := oidc.NewProvider(ctx, opts.OIDC.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("api: oidc discovery: %w", err)
		}
		h = oidcAuth(provider, opts.OIDC.Audience)(h)
	}
	s.handler = requestID(logging(cors(opts.CORSOrigins, h)))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.handle("GET /api/v1/health", s.handleHealth)
	s.handle("GET /api/v1/example", s.handleExample)
	s.handle("GET /api/v1/ui", s.handleIdleUI)
	s.handle("POST /api/v1/compare", s.handleCompare)
	s.handle("POST /api/v1/compare/batch", s.handleBatch)
	s.handle("GET /api/v1/comparisons/{id}", s.handleGetComparison)

	s.handle("GET /api/v1/audits", s.handleListAudits)
	s.handle("POST /api/v1/audits", s.handleStartAudit)
	s.handle("GET /api/v1/audits/{id}", s.handleGetAudit)
	s.handle("POST /api/v1/audits/{id}/stop", s.handleStopAudit)
	s.handle("GET /api/v1/audits/{id}/stream", s.handleStreamAudit)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// handle registers fn and records its request count and latency under the
// route pattern.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	if s.metrics == nil {
		s.mux.HandleFunc(pattern, fn)
		return
	}
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		fn(sw, r)
		s.metrics.ObserveRequest(pattern, sw.status, time.Since(start))
	})
}
