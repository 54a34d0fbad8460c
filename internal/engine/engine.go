// Package engine owns the compiled program and executes it on request. It
// is driven entirely through the runtimeio channel pair: graph updates
// mutate the compiled program, execution requests evaluate it, and
// side-channel updates adjust the font cache and editor preferences. The
// controller never touches the program directly.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/ctxlog"
	"github.com/jsjgdh/Graphite/internal/fontcache"
	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/instrument"
	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/internal/runtimeio"
)

// defaultWorkers sizes the evaluation pool when the caller does not.
const defaultWorkers = 8

// Event describes one completed engine operation, for diagnostics hooks.
type Event struct {
	// Kind is "compilation" or "execution".
	Kind     string
	ID       uint64
	OK       bool
	Message  string
	Duration time.Duration
}

// Hook receives engine events. It is called from the engine goroutine and
// must not block.
type Hook func(Event)

// Engine evaluates compiled node graphs.
type Engine struct {
	io       *runtimeio.IO
	registry *registry.Registry
	fonts    *fontcache.Cache
	prefs    registry.Preferences
	pool     *ants.Pool
	hook     Hook

	program  *program
	resolved map[graph.NodeID]cty.Type
	inspect  graph.NodeID

	// records maps tap path strings to the value recorded during the most
	// recent execution of the instrumented program.
	records sync.Map
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the evaluation pool size.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			if pool, err := ants.NewPool(n); err == nil {
				e.pool.Release()
				e.pool = pool
			}
		}
	}
}

// WithHook installs a diagnostics hook.
func WithHook(h Hook) Option {
	return func(e *Engine) { e.hook = h }
}

// New creates an engine bound to one side of the channel pair.
func New(io *runtimeio.IO, reg *registry.Registry, opts ...Option) *Engine {
	pool, err := ants.NewPool(defaultWorkers)
	if err != nil {
		panic(err)
	}
	e := &Engine{
		io:       io,
		registry: reg,
		fonts:    fontcache.New(),
		prefs:    registry.DefaultPreferences(),
		pool:     pool,
		resolved: make(map[graph.NodeID]cty.Type),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fonts exposes the engine-owned font resource. Tests seed it directly;
// production updates arrive over the side channel.
func (e *Engine) Fonts() *fontcache.Cache {
	return e.fonts
}

// Run drains the request channel until the context is canceled. It is the
// engine's only entry point; all state mutation happens on this goroutine.
func (e *Engine) Run(ctx context.Context) {
	logger := ctxlog.FromContext(ctx).With("component", "engine")
	defer e.pool.Release()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Engine shutting down.", "reason", ctx.Err())
			return
		case req := <-e.io.Requests():
			switch r := req.(type) {
			case runtimeio.GraphUpdate:
				e.handleGraphUpdate(ctx, r)
			case runtimeio.ExecutionRequest:
				e.handleExecution(ctx, r)
			case runtimeio.FontUpdate:
				logger.Debug("Applying font cache delta.", "fonts", len(r.Delta))
				e.fonts.Merge(r.Delta)
			case runtimeio.PreferencesUpdate:
				logger.Debug("Applying editor preferences.")
				e.prefs = r.Prefs
			}
		}
	}
}

func (e *Engine) handleGraphUpdate(ctx context.Context, r runtimeio.GraphUpdate) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	e.inspect = r.Inspect
	e.records.Range(func(k, _ any) bool {
		e.records.Delete(k)
		return true
	})

	prog, delta, errs, err := e.compile(r.Network)
	result := runtimeio.CompilationResult{Delta: delta, Errors: errs}
	if err != nil {
		// The partial delta still ships so the UI can show whatever type
		// information did resolve.
		result.ErrMessage = err.Error()
		e.program = nil
		logger.Debug("Graph compilation failed.", "error", err)
	} else {
		e.program = prog
		logger.Debug("Graph compiled.", "nodes", len(prog.order), "delta", len(delta))
	}
	e.io.Push(result)
	e.emit(Event{Kind: "compilation", OK: err == nil, Message: result.ErrMessage, Duration: time.Since(start)})
}

func (e *Engine) handleExecution(ctx context.Context, r runtimeio.ExecutionRequest) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	result := runtimeio.ExecutionResult{ID: r.ID, Value: cty.NilVal}
	if e.program == nil {
		result.ErrMessage = "no runnable program: the graph failed to compile"
	} else {
		value, updates, inspected, err := e.execute(ctx, r.Config)
		if err != nil {
			result.ErrMessage = err.Error()
		} else {
			result.Value = value
			result.Updates = updates
			result.Inspected = inspected
		}
	}

	ok := result.ErrMessage == ""
	logger.Debug("Execution finished.", "executionID", r.ID, "ok", ok, "duration", time.Since(start))
	e.io.Push(result)
	e.emit(Event{Kind: "execution", ID: r.ID, OK: ok, Message: result.ErrMessage, Duration: time.Since(start)})
}

// Introspect returns the value recorded at a tap path during the most
// recent execution. It implements instrument.Introspector.
func (e *Engine) Introspect(path graph.Path) (instrument.Recorded, bool) {
	v, ok := e.records.Load(path.String())
	if !ok {
		return instrument.Recorded{}, false
	}
	return v.(instrument.Recorded), true
}

func (e *Engine) emit(ev Event) {
	if e.hook != nil {
		e.hook(ev)
	}
}
