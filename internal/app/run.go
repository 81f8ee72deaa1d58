package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/executor"
	"github.com/vk/taskgrid/internal/graph"
	"github.com/vk/taskgrid/internal/orchestrator"
	"github.com/vk/taskgrid/internal/snapshot"
)

// Run loads every pipeline at the configured path and executes them in
// declaration order, printing each pipeline's final result as JSON.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	input, err := a.decodeInput()
	if err != nil {
		return err
	}

	graphs, err := a.loader.LoadPath(ctx, a.config.PipelinePath)
	if err != nil {
		return fmt.Errorf("failed to load pipelines: %w", err)
	}
	if len(graphs) == 0 {
		a.logger.Warn("No pipelines found, nothing to execute.", "path", a.config.PipelinePath)
		return nil
	}

	for _, g := range graphs {
		if err := a.runPipeline(ctx, g, input); err != nil {
			return fmt.Errorf("pipeline %q: %w", g.Name(), err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// runPipeline executes one graph through the orchestration loop, flushing
// the snapshot to disk after the run so an aborted process can resume.
func (a *App) runPipeline(ctx context.Context, g *graph.Graph, input any) error {
	a.logger.Info("🚀 Starting pipeline execution...", "pipeline", g.Name())

	var snap *snapshot.Snapshot
	store := a.snapshotStore(g.Name())
	if store != nil {
		loaded, err := store.Load()
		if err != nil {
			return err
		}
		snap = loaded
	}

	loop := orchestrator.New(g, snap, orchestrator.Options{
		Executor: executor.Options{
			Parallel: a.config.Parallel,
			Workers:  a.config.Workers,
		},
		Observe: a.logEvent,
	})

	result, runErr := loop.Run(ctx, input, nil)

	if store != nil {
		if err := store.Save(loop.Snapshot()); err != nil {
			a.logger.Error("Failed to persist snapshot", "pipeline", g.Name(), "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	a.logger.Info("🏁 Pipeline finished.", "pipeline", g.Name())
	return a.printResult(g.Name(), result)
}

func (a *App) decodeInput() (any, error) {
	if a.config.Input == "" {
		return nil, nil
	}
	var input any
	if err := json.Unmarshal([]byte(a.config.Input), &input); err != nil {
		return nil, fmt.Errorf("invalid input JSON: %w", err)
	}
	return input, nil
}

// printResult writes the pipeline's final result to the output stream as
// one JSON document.
func (a *App) printResult(name string, result any) error {
	doc := map[string]any{"pipeline": name, "result": result}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = fmt.Fprintln(a.outW, string(data))
	return err
}

// logEvent maps one progress event onto the application logger.
func (a *App) logEvent(ev event.Event) {
	attrs := []any{"graph", ev.Graph}
	if ev.NodeID != "" {
		attrs = append(attrs, "nodeID", ev.NodeID)
	}

	switch ev.Type {
	case event.TypeNodeStarting:
		a.logger.Info("Node starting.", attrs...)
	case event.TypeNodeCompleted:
		a.logger.Info("Node completed.", attrs...)
	case event.TypeNodeFailed:
		a.logger.Error("Node failed.", append(attrs, "error", ev.Error)...)
	case event.TypeGraphCompleted:
		a.logger.Info("Pipeline completed.",
			append(attrs, "completed", ev.CompletedNodes, "failed", ev.FailedNodes)...)
	case event.TypeGraphFailed:
		a.logger.Error("Pipeline failed.", append(attrs, "error", ev.Error)...)
	case event.TypeLog:
		a.logger.Log(context.Background(), eventLevel(ev.Level), ev.Message, attrs...)
	default:
		a.logger.Info(string(ev.Type), attrs...)
	}
}

func eventLevel(level string) slog.Level {
	switch level {
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

// snapshotStore returns the per-pipeline snapshot store, or nil when resume
// is disabled.
func (a *App) snapshotStore(name string) *snapshot.FileStore {
	if a.config.SnapshotDir == "" {
		return nil
	}
	return snapshot.NewFileStore(filepath.Join(a.config.SnapshotDir, name+".json"))
}
