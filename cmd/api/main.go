// Command api runs the HTTP API server for event comparisons and audits.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.temporal.io/sdk/client"

	"github.com/finops-claw-gang/eventcheck-go/internal/api"
	"github.com/finops-claw-gang/eventcheck-go/internal/compare"
	"github.com/finops-claw-gang/eventcheck-go/internal/config"
	"github.com/finops-claw-gang/eventcheck-go/internal/observability"
	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
	"github.com/finops-claw-gang/eventcheck-go/internal/store"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/codecs"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/querier"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := observability.InitLogger("eventcheck-api", cfg)
	temporalLogger := observability.NewTemporalSlogAdapter(logger)

	var instruments *observability.Metrics
	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(context.Background(), "eventcheck-api", cfg)
		if err != nil {
			logger.Error("otel init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
		if instruments, err = observability.NewMetrics(); err != nil {
			logger.Error("metrics init failed", "error", err)
		}
	}

	aliases, err := config.LoadAliases(cfg.AliasFile)
	if err != nil {
		logger.Error("alias rules", "error", err)
		os.Exit(1)
	}

	storeCtx, storeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	results, closeStore, err := store.Open(storeCtx, cfg)
	storeCancel()
	if err != nil {
		logger.Error("result store unavailable", "redis", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Audits are optional: without Temporal the comparison routes still serve.
	var q querier.AuditQuerier
	c, err := client.Dial(client.Options{
		HostPort:      cfg.TemporalHostPort,
		Namespace:     cfg.TemporalNamespace,
		Logger:        temporalLogger,
		DataConverter: codecs.DataConverter(),
	})
	if err != nil {
		logger.Warn("Temporal unavailable, audit routes disabled", "error", err)
	} else {
		defer c.Close()
		q = querier.New(c)
	}

	oidcCfg := api.OIDCConfig{
		IssuerURL: cfg.OIDCIssuer,
		Audience:  cfg.OIDCAudience,
		Enabled:   cfg.OIDCEnabled(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srv, err := api.New(ctx, api.Options{
		CORSOrigins: cfg.CORSOrigins,
		OIDC:        oidcCfg,
		Comparator:  compare.New(aliases...),
		BatchLimit:  cfg.BatchConcurrency,
		Store:       results,
		Querier:     q,
		Limiter:     ratelimit.NewClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Metrics:     observability.NewHTTPMetrics(),
		Instruments: instruments,
	})
	cancel()
	if err != nil {
		logger.Error("api init failed", "error", err)
		os.Exit(1)
	}

	var handler http.Handler = srv
	if cfg.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "eventcheck-api")
	}

	addr := ":" + cfg.APIPort
	logger.Info("starting API server",
		"addr", addr,
		"oidc_enabled", oidcCfg.Enabled,
		"redis", cfg.RedisAddr != "",
		"audits", q != nil,
	)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
