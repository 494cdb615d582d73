// Command worker-eventcheck runs the Temporal workers for consistency audits.
// Supports stub mode (fixtures) and production mode (Athena and CloudWatch).
package main

import (
	"context"
	"log"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/finops-claw-gang/eventcheck-go/internal/config"
	"github.com/finops-claw-gang/eventcheck-go/internal/connectors"
	awsauth "github.com/finops-claw-gang/eventcheck-go/internal/connectors/aws"
	"github.com/finops-claw-gang/eventcheck-go/internal/connectors/command"
	"github.com/finops-claw-gang/eventcheck-go/internal/observability"
	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
	"github.com/finops-claw-gang/eventcheck-go/internal/store"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/activities"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/codecs"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/queues"
	"github.com/finops-claw-gang/eventcheck-go/internal/testutil"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := observability.InitLogger("eventcheck-worker", cfg)

	queueNames, err := queues.ParseQueues(cfg.WorkerQueues)
	if err != nil {
		log.Fatalf("queues: %v", err)
	}

	acts := &activities.Activities{}

	switch cfg.Mode {
	case config.ModeProduction:
		awsCfg, err := awsauth.NewAWSConfig(context.Background(), cfg.AWSRegion, cfg.AWSProfile, cfg.CrossAccountRole)
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}

		events := connectors.EventsTable{
			Database:     cfg.EventsDatabase,
			Table:        cfg.EventsTable,
			Workgroup:    cfg.EventsWorkgroup,
			OutputBucket: cfg.EventsOutputBucket,
		}
		limiter := ratelimit.NewServiceLimiter(ratelimit.DefaultServiceRates())
		aws := connectors.NewAWSEventClient(awsCfg, events, cfg.CloudWatchNamespace, limiter)

		acts.Events = aws
		acts.Publisher = aws
		acts.Sources = connectors.NewSourceFactory(
			awsauth.NewSourceConfigProvider(cfg.AWSRegion, cfg.AWSProfile).WithLimiter(limiter), events, limiter)

	default: // stub mode
		fixturesDir := cfg.FixturesDir
		if fixturesDir == "" {
			fixturesDir = testutil.FixturesDir()
		}
		acts.Events = &testutil.StubEvents{FixturesDir: fixturesDir}
	}

	if cfg.EventCommand != "" {
		src, err := command.ParseCommandLine(cfg.EventCommand)
		if err != nil {
			log.Fatalf("event command: %v", err)
		}
		acts.Events = src
	}

	storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	results, closeStore, err := store.Open(storeCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("result store: %v", err)
	}
	defer closeStore()
	acts.Store = results

	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(context.Background(), "eventcheck-worker", cfg)
		if err != nil {
			logger.Error("otel init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
		if acts.Metrics, err = observability.NewMetrics(); err != nil {
			logger.Error("metrics init failed", "error", err)
		}
	}

	if cfg.ActivityBudget > 0 {
		acts.Budget = ratelimit.NewActivityBudget(cfg.ActivityBudget, time.Hour)
	}

	c, err := client.Dial(client.Options{
		HostPort:      cfg.TemporalHostPort,
		Namespace:     cfg.TemporalNamespace,
		Logger:        observability.NewTemporalSlogAdapter(logger),
		DataConverter: codecs.DataConverter(),
	})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer c.Close()

	configs := queues.DefaultConfigs()
	var workers []worker.Worker
	for _, name := range queueNames {
		qc := configs[name]
		w := worker.New(c, qc.Name, qc.Options)
		queues.Register(w, qc, acts)
		workers = append(workers, w)
	}

	for i, w := range workers {
		if err := w.Start(); err != nil {
			log.Fatalf("worker %s failed to start: %v", queueNames[i], err)
		}
		defer w.Stop()
	}

	logger.Info("workers started", "queues", queueNames, "mode", cfg.Mode, "event_command", cfg.EventCommand != "")
	<-worker.InterruptCh()
	logger.Info("shutting down workers")
}
