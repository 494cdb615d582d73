// Command mcp-eventcheck runs the MCP tool server for event comparisons and
// consistency audits. Uses stdio transport for integration with AI assistants.
package main

import (
	"context"
	"log"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.temporal.io/sdk/client"

	"github.com/finops-claw-gang/eventcheck-go/internal/compare"
	"github.com/finops-claw-gang/eventcheck-go/internal/config"
	"github.com/finops-claw-gang/eventcheck-go/internal/mcpserver"
	"github.com/finops-claw-gang/eventcheck-go/internal/store"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/codecs"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/querier"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	aliases, err := config.LoadAliases(cfg.AliasFile)
	if err != nil {
		log.Fatalf("alias rules: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	results, closeStore, err := store.Open(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("result store: %v", err)
	}
	defer closeStore()

	deps := mcpserver.Deps{
		Comparator: compare.New(aliases...),
		BatchLimit: cfg.BatchConcurrency,
		Store:      results,
	}

	c, err := client.Dial(client.Options{
		HostPort:      cfg.TemporalHostPort,
		Namespace:     cfg.TemporalNamespace,
		DataConverter: codecs.DataConverter(),
	})
	if err != nil {
		log.Printf("Temporal unavailable, audit tools disabled: %v", err)
	} else {
		defer c.Close()
		deps.Querier = querier.New(c)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "eventcheck",
		Version: cfg.ServiceVersion,
	}, nil)
	mcpserver.RegisterTools(server, deps)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
