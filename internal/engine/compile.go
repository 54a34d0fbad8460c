package engine

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/instrument"
)

type srcKind int

const (
	srcValue srcKind = iota
	srcNode
)

// src is a resolved input source: either an inline value or the output of
// another flattened node, addressed by its structural path key.
type src struct {
	kind  srcKind
	key   string
	value cty.Value
}

// flatNode is one executable node after nested networks are inlined.
type flatNode struct {
	id     graph.NodeID
	path   graph.Path
	kind   string
	inputs []src
}

// program is the compiled form of a document network: flattened nodes in
// topological order.
type program struct {
	nodes  map[string]*flatNode
	order  []string
	output string
	// byID maps original node identities (including nested-network
	// wrappers) to the flattened node producing their output.
	byID map[graph.NodeID]string
}

// compile flattens, orders, and type-resolves a network snapshot. The
// returned delta holds every node whose resolved output type changed since
// the previous compile; it is populated even when compilation fails.
func (e *Engine) compile(network *graph.Network) (*program, graph.TypesDelta, []graph.Error, error) {
	prog := &program{
		nodes: make(map[string]*flatNode),
		byID:  make(map[graph.NodeID]string),
	}
	var errs []graph.Error

	e.flatten(network, graph.Path{}, nil, prog, &errs)

	if out, ok := e.resolveRef(network, graph.Path{}, network.Output); ok && out.kind == srcNode {
		prog.output = out.key
	} else {
		errs = append(errs, graph.Error{Node: network.Output, Message: "document has no resolvable output node"})
	}

	if err := prog.sortTopological(); err != nil {
		errs = append(errs, graph.Error{Message: err.Error()})
	}

	resolved := e.resolveTypes(prog, &errs)

	delta := make(graph.TypesDelta)
	for id, ty := range resolved {
		if prev, ok := e.resolved[id]; !ok || !prev.Equals(ty) {
			delta[id] = ty
		}
	}
	e.resolved = resolved

	if len(errs) > 0 {
		return nil, delta, errs, fmt.Errorf("failed to compile node graph: %s", errs[0].String())
	}
	return prog, delta, errs, nil
}

// flatten inlines nested networks, resolving each node's inputs to value or
// flattened-node sources. ports carries the enclosing wrapper's resolved
// inputs for InputPort references.
func (e *Engine) flatten(network *graph.Network, path graph.Path, ports []src, prog *program, errs *[]graph.Error) {
	for _, id := range network.SortedIDs() {
		node := network.Nodes[id]
		if node.Nested != nil {
			wrapperPorts := make([]src, len(node.Inputs))
			for i, in := range node.Inputs {
				wrapperPorts[i] = e.resolveInput(network, path, ports, id, in, errs)
			}
			e.flatten(node.Nested, path.Child(id), wrapperPorts, prog, errs)
			if out, ok := e.resolveRef(node.Nested, path.Child(id), node.Nested.Output); ok {
				prog.byID[id] = out.key
			} else {
				*errs = append(*errs, graph.Error{Node: id, Message: "nested network has no resolvable output node"})
			}
			continue
		}

		fn := &flatNode{
			id:     id,
			path:   path.Child(id),
			kind:   node.Kind,
			inputs: make([]src, len(node.Inputs)),
		}
		for i, in := range node.Inputs {
			fn.inputs[i] = e.resolveInput(network, path, ports, id, in, errs)
		}
		key := fn.path.String()
		prog.nodes[key] = fn
		prog.byID[id] = key
	}
}

func (e *Engine) resolveInput(network *graph.Network, path graph.Path, ports []src, referrer graph.NodeID, in graph.Input, errs *[]graph.Error) src {
	switch in.Kind {
	case graph.InputValue:
		return src{kind: srcValue, value: in.Value}
	case graph.InputPort:
		if in.Port < 0 || in.Port >= len(ports) {
			*errs = append(*errs, graph.Error{Node: referrer, Message: fmt.Sprintf("port %d is out of range", in.Port)})
			return src{kind: srcValue, value: cty.NilVal}
		}
		return ports[in.Port]
	case graph.InputNode:
		if s, ok := e.resolveRef(network, path, in.Node); ok {
			return s
		}
		*errs = append(*errs, graph.Error{Node: referrer, Message: fmt.Sprintf("input references unknown node %s", in.Node)})
		return src{kind: srcValue, value: cty.NilVal}
	}
	return src{kind: srcValue, value: cty.NilVal}
}

// resolveRef follows a node reference down through nested-network wrappers
// to the flattened node that produces its output.
func (e *Engine) resolveRef(network *graph.Network, path graph.Path, id graph.NodeID) (src, bool) {
	node, ok := network.Nodes[id]
	if !ok {
		return src{}, false
	}
	if node.Nested == nil {
		return src{kind: srcNode, key: path.Child(id).String()}, true
	}
	return e.resolveRef(node.Nested, path.Child(id), node.Nested.Output)
}

// sortTopological orders the flattened nodes by dependency (Kahn's
// algorithm). A cycle is a compile error.
func (p *program) sortTopological() error {
	indegree := make(map[string]int, len(p.nodes))
	dependents := make(map[string][]string, len(p.nodes))
	for key, fn := range p.nodes {
		if _, ok := indegree[key]; !ok {
			indegree[key] = 0
		}
		for _, in := range fn.inputs {
			if in.kind != srcNode {
				continue
			}
			if _, ok := p.nodes[in.key]; !ok {
				return fmt.Errorf("node %s depends on missing node %s", key, in.key)
			}
			indegree[key]++
			dependents[in.key] = append(dependents[in.key], key)
		}
	}

	ready := make([]string, 0, len(p.nodes))
	for key, deg := range indegree {
		if deg == 0 {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(p.nodes))
	for len(ready) > 0 {
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)
		for _, dep := range dependents[key] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	if len(order) != len(p.nodes) {
		return fmt.Errorf("node graph contains a cycle")
	}
	p.order = order
	return nil
}

// resolveTypes walks the program in dependency order and resolves each
// node's output type. Resolution keeps going past errors so a failed
// compile still yields as much type information as possible.
func (e *Engine) resolveTypes(prog *program, errs *[]graph.Error) map[graph.NodeID]cty.Type {
	byKey := make(map[string]cty.Type, len(prog.order))
	resolved := make(map[graph.NodeID]cty.Type, len(prog.order))

	inputType := func(in src) cty.Type {
		switch in.kind {
		case srcValue:
			if in.value == cty.NilVal {
				return cty.DynamicPseudoType
			}
			return in.value.Type()
		case srcNode:
			if ty, ok := byKey[in.key]; ok {
				return ty
			}
		}
		return cty.DynamicPseudoType
	}

	for _, key := range prog.order {
		fn := prog.nodes[key]

		if fn.kind == instrument.TapKind {
			// A tap forwards its single input unchanged.
			ty := cty.DynamicPseudoType
			if len(fn.inputs) == 1 {
				ty = inputType(fn.inputs[0])
			}
			byKey[key] = ty
			resolved[fn.id] = ty
			continue
		}

		handler, ok := e.registry.Handler(fn.kind)
		if !ok {
			*errs = append(*errs, graph.Error{Node: fn.id, Message: fmt.Sprintf("unknown node kind %q", fn.kind)})
			byKey[key] = cty.DynamicPseudoType
			continue
		}

		if len(fn.inputs) != len(handler.Params) {
			*errs = append(*errs, graph.Error{
				Node:    fn.id,
				Message: fmt.Sprintf("kind %q expects %d inputs, got %d", fn.kind, len(handler.Params), len(fn.inputs)),
			})
		} else {
			for i, in := range fn.inputs {
				want := handler.Params[i].Type
				got := inputType(in)
				if want == cty.DynamicPseudoType || got == cty.DynamicPseudoType || got.Equals(want) {
					continue
				}
				if convert.GetConversion(got, want) == nil {
					*errs = append(*errs, graph.Error{
						Node:    fn.id,
						Message: fmt.Sprintf("input %q of kind %q wants %s, got %s", handler.Params[i].Name, fn.kind, want.FriendlyName(), got.FriendlyName()),
					})
				}
			}
		}

		ty := handler.OutputType
		if ty == cty.DynamicPseudoType && len(fn.inputs) > 0 {
			ty = inputType(fn.inputs[0])
		}
		byKey[key] = ty
		resolved[fn.id] = ty
	}
	return resolved
}
