// Package registry holds the node-kind handlers available to the execution
// engine for a single application instance.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/fontcache"
	"github.com/jsjgdh/Graphite/internal/render"
)

// Module is the interface that all node-kind modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Preferences are editor-level settings forwarded into node evaluation via
// the side-channel update path.
type Preferences struct {
	// MaxRasterDimension clamps the edge length of generated raster buffers.
	MaxRasterDimension int
}

// DefaultPreferences returns the preferences used before any side-channel
// update arrives.
func DefaultPreferences() Preferences {
	return Preferences{MaxRasterDimension: 4096}
}

// Call is the per-node evaluation context handed to a handler.
type Call struct {
	// Inputs holds one evaluated value per input slot, in declaration order.
	Inputs []cty.Value
	Render render.Config
	Fonts  *fontcache.Cache
	Prefs  Preferences
}

// Param declares one named input of a node kind, in declaration order.
type Param struct {
	Name string
	// Type is the expected input type; cty.DynamicPseudoType accepts any.
	Type cty.Type
}

// Handler is the compiled Go implementation of a node kind.
type Handler struct {
	Params []Param
	// OutputType is the resolved output type; cty.DynamicPseudoType means
	// the output type follows the first input (pass-through generics).
	OutputType cty.Type
	Evaluate   func(ctx context.Context, call *Call) (cty.Value, error)
}

// Registry maps kind names to handlers.
type Registry struct {
	handlers map[string]*Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]*Handler)}
}

// Register adds a handler for a kind. Double registration is a programmer
// error and panics.
func (r *Registry) Register(kind string, h *Handler) {
	if _, exists := r.handlers[kind]; exists {
		panic(fmt.Sprintf("node kind %q already registered", kind))
	}
	slog.Debug("Registering node kind.", "kind", kind)
	r.handlers[kind] = h
}

// Handler looks up the handler for a kind.
func (r *Registry) Handler(kind string) (*Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds returns all registered kind names, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.handlers))
	for kind := range r.handlers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
