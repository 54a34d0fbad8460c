package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jsjgdh/Graphite/internal/ctxlog"
	"github.com/jsjgdh/Graphite/internal/document"
	"github.com/jsjgdh/Graphite/internal/engine"
	"github.com/jsjgdh/Graphite/internal/executor"
	"github.com/jsjgdh/Graphite/internal/export"
	"github.com/jsjgdh/Graphite/internal/monitor"
	"github.com/jsjgdh/Graphite/internal/render"
	"github.com/jsjgdh/Graphite/internal/runtimeio"
)

// awaitTimeout bounds how long a headless run waits for the engine to
// answer a submission before giving up.
const awaitTimeout = 30 * time.Second

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	opts := []engine.Option{engine.WithWorkers(a.config.WorkerCount)}
	if a.config.MonitorPort > 0 {
		mon, err := monitor.New(ctx, a.config.MonitorPort)
		if err != nil {
			return fmt.Errorf("failed to start monitor server: %w", err)
		}
		defer mon.Close(ctx)
		opts = append(opts, engine.WithHook(mon.Hook()))
	}

	rio := runtimeio.New()
	eng := engine.New(rio, a.registry, opts...)
	engCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go eng.Run(engCtx)

	doc, err := document.Load(ctx, a.config.DocumentPath, a.registry)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	a.logger.Info("Document loaded.", "path", a.config.DocumentPath, "nodes", len(doc.Network().Nodes))

	exec := executor.New(rio, export.Capabilities{SupportsRasterEncode: true})
	pres := &consolePresenter{logger: a.logger}
	sink := &fileSink{dir: a.config.OutputDir, logger: a.logger}

	// An initial render resolves types and populates the spatial indices the
	// export path derives its bounds from.
	if _, err := exec.SubmitEvaluation(doc, 1, executor.EvalOptions{
		Width:  a.config.Width,
		Height: a.config.Height,
		Scale:  1,
	}); err != nil {
		return fmt.Errorf("failed to submit evaluation: %w", err)
	}
	if err := a.await(ctx, exec, doc, pres, sink); err != nil {
		return err
	}

	if a.config.ExportKind != "" {
		return a.runExport(ctx, exec, doc, pres, sink)
	}

	fmt.Fprintln(a.outW, pres.artwork)
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) runExport(ctx context.Context, exec *executor.Executor, doc *document.Document, pres *consolePresenter, sink *fileSink) error {
	kind, err := export.ParseFileKind(a.config.ExportKind)
	if err != nil {
		return err
	}

	bounds, ok := doc.ClickTarget(doc.Network().Output)
	if !ok {
		bounds = render.Rect{W: float64(a.config.Width), H: float64(a.config.Height)}
	}

	if _, err := exec.SubmitExport(doc, 1, export.Config{
		Kind:        kind,
		Name:        a.config.ExportName,
		Transparent: a.config.Transparent,
		ScaleFactor: a.config.ScaleFactor,
	}, bounds); err != nil {
		return fmt.Errorf("failed to submit export: %w", err)
	}
	if err := a.await(ctx, exec, doc, pres, sink); err != nil {
		return err
	}
	a.logger.Info("🏁 Export finished.", "kind", kind.String())
	return nil
}

// await polls the executor until every pending execution has been routed.
func (a *App) await(ctx context.Context, exec *executor.Executor, doc *document.Document, pres *consolePresenter, sink *fileSink) error {
	deadline := time.NewTimer(awaitTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	var errs []error
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for the engine after %s", awaitTimeout)
		case <-ticker.C:
			if err := exec.Poll(ctx, doc, pres, sink); err != nil {
				errs = append(errs, err)
			}
			if exec.Pending() == 0 {
				return errors.Join(errs...)
			}
		}
	}
}
