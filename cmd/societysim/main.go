// Command societysim runs a pedestrian society simulation: agents walk
// a navigable grid between points of interest, driven by decaying needs
// and, when configured, an external reasoning service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/talgya/society-sim/internal/agents"
	"github.com/talgya/society-sim/internal/api"
	"github.com/talgya/society-sim/internal/brain"
	"github.com/talgya/society-sim/internal/config"
	"github.com/talgya/society-sim/internal/grid"
	"github.com/talgya/society-sim/internal/metrics"
	"github.com/talgya/society-sim/internal/persistence"
	"github.com/talgya/society-sim/internal/scenario"
	"github.com/talgya/society-sim/internal/sim"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (empty = defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("society-sim — pedestrian simulation",
		"seed", cfg.Seed,
		"population", cfg.Population,
	)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Scenario Assets ───────────────────────────────────────────────
	var assets *scenario.Assets
	if cfg.ScenarioDir != "" {
		assets, err = scenario.Load(cfg.ScenarioDir)
		if err != nil {
			slog.Error("failed to load scenario", "dir", cfg.ScenarioDir, "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("no scenario dir configured, generating synthetic grid")
		assets = scenario.Synthetic(cfg.Seed)
	}
	slog.Info("scenario ready",
		"id", assets.ScenarioID,
		"grid", fmt.Sprintf("%dx%d", assets.Grid.Height(), assets.Grid.Width()),
		"pois", len(assets.POIs),
	)

	// ── Population ────────────────────────────────────────────────────
	spawner := agents.NewSpawner(cfg.Seed)
	var pop []*agents.Agent
	if cfg.SpawnCluster {
		center := grid.Cell{Y: assets.Grid.Height() / 2, X: assets.Grid.Width() / 2}
		pop = spawner.SpawnCluster(cfg.Population, assets.Grid, center, cfg.SpawnClusterSigma)
	} else {
		pop = spawner.SpawnRandom(cfg.Population, assets.Grid)
	}

	// ── Reasoning Service ─────────────────────────────────────────────
	brainClient := brain.NewClient(cfg.BrainURL)
	params := cfg.Params()

	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if brainClient.Enabled() {
		hypothesis := cfg.HypothesisID
		if hypothesis == "" {
			hypothesis = assets.ScenarioID
		}
		remoteID, err := brainClient.StartRun(ctx, hypothesis, cfg.Seed, params.SpeedMul)
		if err != nil {
			slog.Error("reasoning service unreachable", "url", cfg.BrainURL, "error", err)
			os.Exit(1)
		}
		runID = remoteID
		slog.Info("run opened on reasoning service", "run", runID)
	} else {
		slog.Warn("brain_url not set — agents fall back to needs-driven goals only")
	}

	// ── Simulation ────────────────────────────────────────────────────
	world := sim.New(params, assets, pop, brainClient, cfg.Seed)
	world.RunID = runID
	defer world.Close()

	if brainClient.Enabled() {
		regs := make([]brain.RegisterAgent, 0, len(world.Eligible))
		for _, a := range world.Eligible {
			regs = append(regs, brain.RegisterAgent{
				ID:   string(a.ID),
				Role: string(a.Role),
				Seed: cfg.Seed,
			})
		}
		if err := brainClient.RegisterAgents(ctx, runID, regs); err != nil {
			slog.Error("agent registration failed", "error", err)
			os.Exit(1)
		}
		slog.Info("eligible agents registered", "count", len(regs))
	}

	agg := metrics.NewAggregator(cfg.MetricsBinSecs)
	world.OnTrip = func(t agents.TripSample) {
		agg.RecordTrip(world.Clock, t)
		if err := db.SaveTrip(runID, world.Clock, t); err != nil {
			slog.Warn("trip not saved", "agent", t.AgentID, "error", err)
		}
	}
	world.OnDecision = func(agents.AgentID) { agg.RecordDecision(world.Clock) }
	world.OnMeeting = func(sim.MeetingEvent) { agg.RecordMeeting(world.Clock) }

	if err := db.StartRun(runID, assets.ScenarioID, params.DurationSecs, len(pop), cfg.Seed); err != nil {
		slog.Error("run header not saved", "error", err)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	apiServer := &api.Server{
		DB:      db,
		Metrics: agg,
		Port:    cfg.APIPort,
	}
	apiServer.Start()

	// ── Run ───────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	eng := sim.NewEngine(world)
	eng.OnTick = func(tick uint64) {
		// Observers get a fresh frame every 5 ticks (4 Hz at default rate).
		if tick%5 == 0 {
			apiServer.Publish(api.BuildSnapshot(world, tick))
		}
	}

	fmt.Printf("\n%d pedestrians on %s (%d eligible for external reasoning).\n",
		len(pop), assets.ScenarioID, len(world.Eligible))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	// ── Wrap Up ───────────────────────────────────────────────────────
	summary := agg.Summarize(runID, world.Clock, len(pop))
	slog.Info("run complete",
		"clock", fmt.Sprintf("%.1fs", world.Clock),
		"decisions", summary.Decisions,
		"arrivals", summary.Arrivals,
		"meetings", summary.Meetings,
	)

	if brainClient.Enabled() {
		// Shutdown-scoped context: the run context is already cancelled.
		flushCtx := context.Background()
		samples := make([]map[string]any, 0, len(summary.Bins))
		for _, b := range summary.Bins {
			samples = append(samples, map[string]any{
				"start_secs":   b.StartSecs,
				"decisions":    b.Decisions,
				"arrivals":     b.Arrivals,
				"meetings":     b.Meetings,
				"walked_cells": b.WalkedCells,
				"travel_secs":  b.TravelSecs,
			})
		}
		if err := brainClient.Metrics(flushCtx, runID, samples); err != nil {
			slog.Warn("metrics upload failed", "error", err)
		}
		if err := brainClient.EndRun(flushCtx, runID); err != nil {
			slog.Warn("end run failed", "error", err)
		}
	}

	if err := db.SaveRunState(runID, world.Events, summary); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. Run saved.")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
