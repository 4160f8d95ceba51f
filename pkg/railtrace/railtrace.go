// Package railtrace is the public API for the runtime-failure
// diagnosis pipeline: given a traceback or panic, it returns a
// structured root-cause diagnosis, escalating from instant pattern
// matching through hosted model tiers as needed.
package railtrace

import (
	"context"
	"fmt"
	"time"

	"github.com/HoyeonS/railtrace/internal/config"
	"github.com/HoyeonS/railtrace/internal/gateway"
	"github.com/HoyeonS/railtrace/internal/memory"
	"github.com/HoyeonS/railtrace/internal/metrics"
	"github.com/HoyeonS/railtrace/internal/orchestrator"
	"github.com/HoyeonS/railtrace/internal/project"
	"github.com/HoyeonS/railtrace/internal/report"
	"github.com/HoyeonS/railtrace/internal/vcs"
	"github.com/prometheus/client_golang/prometheus"
)

// Options mirrors the DiagnoseRequest contract's optional flags.
type Options = orchestrator.Options

// DefaultOptions returns {deep: false, haiku: false, use_memory: true,
// skip_vcs: false}.
func DefaultOptions() Options {
	return orchestrator.DefaultOptions()
}

// DiagnosisReport, ChainResult, and BatchResult are re-exported so
// callers never need to import internal/report directly.
type (
	DiagnosisReport = report.DiagnosisReport
	ChainResult     = report.ChainResult
	BatchResult     = report.BatchResult
	ProjectProfile  = report.ProjectProfile
)

// Client runs the diagnosis cascade against a configured set of
// backends (memory store, model providers, VCS collector).
type Client struct {
	orch *orchestrator.Orchestrator
	mem  *memory.Store
}

// New builds a Client from cfg. The memory store is always opened:
// cfg.Validate rejects an empty MemoryConfig.DSN, so an empty DSN makes
// New return an error rather than run without memory. GitHub
// enrichment is optional: an empty GitHubConfig.Token leaves it
// disabled.
func New(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("railtrace: invalid configuration: %w", err)
	}

	var memStore *memory.Store
	if cfg.Memory.DSN != "" {
		m, err := memory.Open(ctx, cfg.Memory.Backend, cfg.Memory.DSN)
		if err != nil {
			return nil, fmt.Errorf("railtrace: opening memory store: %w", err)
		}
		memStore = m
	}

	var enricher project.GitHubEnricher
	if cfg.GitHub.Token != "" {
		enricher = project.NewGitHubProfile(cfg.GitHub.Token, 10*time.Second)
	}

	gatewayReg := buildGatewayRegistry(cfg)
	vcsCollector := vcs.New(cfg.Vcs.BlameTimeout, cfg.Vcs.LogTimeout)

	var collector *metrics.Collector
	if reg != nil {
		collector = metrics.NewCollector(reg)
	}

	orch := orchestrator.New(vcsCollector, memStore, gatewayReg, enricher, collector)

	return &Client{orch: orch, mem: memStore}, nil
}

func buildGatewayRegistry(cfg config.Config) *gateway.Registry {
	reg := gateway.NewRegistry()
	if cfg.Gateway.Tier2APIKey != "" {
		reg.Register(gateway.TierFast, gateway.NewHTTPProvider(
			"tier2", "https://api.anthropic.com/v1/messages", "claude-haiku-4-5", cfg.Gateway.Tier2APIKey, 30*time.Second))
	}
	if cfg.Gateway.Tier3ClientID != "" && cfg.Gateway.Tier3ClientSecret != "" {
		reg.Register(gateway.TierDeep, gateway.NewOAuthProvider(
			"tier3", "https://api.anthropic.com/v1/messages", "claude-sonnet-4-6",
			cfg.Gateway.Tier3ClientID, cfg.Gateway.Tier3ClientSecret, cfg.Gateway.Tier3TokenURL, 60*time.Second))
	}
	if cfg.Gateway.Tier4APIKey != "" {
		reg.Register(gateway.TierGateway, gateway.NewHTTPProvider(
			"tier4", "https://api.anthropic.com/v1/messages", "claude-opus-4-6", cfg.Gateway.Tier4APIKey, 120*time.Second))
	}
	return reg
}

// Close releases any open backend connections (currently the memory
// store, if one was configured).
func (c *Client) Close() error {
	if c.mem != nil {
		return c.mem.Close()
	}
	return nil
}

// Diagnose runs the single-trace cascade described in §4.L.
func (c *Client) Diagnose(ctx context.Context, trace string, opts Options) (DiagnosisReport, error) {
	return c.orch.Diagnose(ctx, trace, opts)
}

// DiagnoseChain runs the cascade over each causally-linked segment of
// a chained exception.
func (c *Client) DiagnoseChain(ctx context.Context, trace string, opts Options) (ChainResult, error) {
	return c.orch.DiagnoseChain(ctx, trace, opts)
}

// DiagnoseBatch extracts and diagnoses every independent error in a
// log blob.
func (c *Client) DiagnoseBatch(ctx context.Context, text string, opts Options) (BatchResult, error) {
	return c.orch.DiagnoseBatch(ctx, text, opts)
}

// ScanProject profiles a project root without running any diagnosis.
func (c *Client) ScanProject(ctx context.Context, root string) (ProjectProfile, error) {
	return project.Scan(ctx, root, nil)
}
