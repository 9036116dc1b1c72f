package main

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/sgranger-dev/boardroom/internal/api"
	"github.com/sgranger-dev/boardroom/internal/config"
	"github.com/sgranger-dev/boardroom/internal/department"
	"github.com/sgranger-dev/boardroom/internal/images"
	"github.com/sgranger-dev/boardroom/internal/orchestrator"
	"github.com/sgranger-dev/boardroom/internal/sandbox"
	"github.com/sgranger-dev/boardroom/internal/store"
)

// buildCaller creates the Anthropic client from configuration.
func buildCaller(cfg *config.Config) (*api.Client, error) {
	return api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
}

// openStore selects SQLite or in-memory persistence from configuration.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Path == "" {
		return store.NewMemoryStore(), nil
	}
	return store.OpenSQLite(cfg.Store.Path)
}

// buildCoordinator wires the execution engine from configuration. An empty
// sandbox endpoint disables previews without disabling engineering runs; an
// empty images endpoint makes logo tools draw an inline placeholder.
func buildCoordinator(cfg *config.Config, caller api.Caller, st store.Store) *orchestrator.Coordinator {
	var sandboxes *sandbox.Manager
	if cfg.Sandbox.Endpoint != "" {
		provider := sandbox.NewRESTProvider(cfg.Sandbox.Endpoint)
		sandboxes = sandbox.NewManager(provider, cfg.Sandbox.SettleTime)
	}

	deps := department.Deps{Documents: store.DocumentSink{Store: st}}
	if cfg.Images.Endpoint != "" {
		deps.Images = images.NewRESTGenerator(cfg.Images.Endpoint)
	}

	return orchestrator.New(orchestrator.Config{
		Caller:            caller,
		Deps:              deps,
		Sandboxes:         sandboxes,
		DepartmentTimeout: cfg.Timeouts.Department,
		SandboxTimeout:    cfg.Sandbox.CreateTimeout,
		StreamBuffer:      cfg.Server.StreamBuffer,
	})
}
