// Package runtimeio is the transport between the synchronous editing
// control flow and the execution engine: an asynchronous, FIFO-per-direction
// channel pair carrying requests out and results back. No other shared
// mutable state crosses that boundary.
package runtimeio

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/export"
	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/internal/render"
)

// Request is a controller-to-engine message.
type Request interface{ isRequest() }

// GraphUpdate replaces the engine's compiled graph with a new snapshot.
// Inspect designates the node whose intermediate value should be surfaced
// after execution; zero means none.
type GraphUpdate struct {
	Network *graph.Network
	Inspect graph.NodeID
}

// ExecutionRequest asks the engine to evaluate the current compiled graph.
// ID is the monotonic correlation key matched against the result.
type ExecutionRequest struct {
	ID         uint64
	Config     render.Config
	ExportKind export.FileKind
}

// FontUpdate is a side-channel font-data delta. It carries no execution id
// and is never matched against the pending ledger.
type FontUpdate struct {
	Delta map[string][]byte
}

// PreferencesUpdate is a side-channel editor-preference update.
type PreferencesUpdate struct {
	Prefs registry.Preferences
}

func (GraphUpdate) isRequest()       {}
func (ExecutionRequest) isRequest()  {}
func (FontUpdate) isRequest()        {}
func (PreferencesUpdate) isRequest() {}

// Update is an engine-to-controller message.
type Update interface{ isUpdate() }

// CompilationResult reports a (re)compile. Delta is the type-resolution
// delta, partial when ErrMessage is non-empty; it is never dropped on error.
type CompilationResult struct {
	Delta      graph.TypesDelta
	Errors     []graph.Error
	ErrMessage string
}

// InspectResult is the intermediate value recorded for the designated
// inspect node during one execution.
type InspectResult struct {
	Node  graph.NodeID
	Value cty.Value
}

// DocUpdate is an auxiliary UI update record computed during execution,
// such as recomputed bounding geometry.
type DocUpdate struct {
	Node   graph.NodeID
	Bounds render.Rect
}

// ExecutionResult reports one evaluation. Exactly one result is produced
// per dispatched execution id. On failure Value is cty.NilVal and
// ErrMessage carries the human-readable diagnostic.
type ExecutionResult struct {
	ID         uint64
	Value      cty.Value
	ErrMessage string
	Updates    []DocUpdate
	Inspected  *InspectResult
}

func (CompilationResult) isUpdate() {}
func (ExecutionResult) isUpdate()   {}
