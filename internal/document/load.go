package document

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/jsjgdh/Graphite/internal/ctxlog"
	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/registry"
)

// documentSchema is the top-level shape of a .gd.hcl document file: node
// blocks labelled by kind and name, and an output attribute designating the
// terminal node.
var documentSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "node", LabelNames: []string{"kind", "name"}},
	},
	Attributes: []hcl.AttributeSchema{
		{Name: "output", Required: true},
	},
}

// Load reads and decodes a document file from disk.
func Load(ctx context.Context, path string, reg *registry.Registry) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Parse(ctx, path, src, reg)
}

// Parse decodes a document from source bytes. Node parameter order follows
// the registered handler's declaration order; every parameter must be
// assigned either a literal value or a connection of the form
// node.<name>, optionally indexed as node.<name>[output].
func Parse(ctx context.Context, filename string, src []byte, reg *registry.Registry) (*Document, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse document: %w", diags)
	}

	content, diags := file.Body.Content(documentSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid document structure: %w", diags)
	}

	network := graph.NewNetwork()
	names := make(map[string]graph.NodeID)

	// First pass allocates identities so connections can reference nodes
	// declared in any order.
	for _, block := range content.Blocks {
		kind, name := block.Labels[0], block.Labels[1]
		if _, dup := names[name]; dup {
			return nil, fmt.Errorf("duplicate node name %q at %s", name, block.DefRange)
		}
		if _, ok := reg.Handler(kind); !ok {
			return nil, fmt.Errorf("unknown node kind %q at %s", kind, block.DefRange)
		}
		names[name] = network.Add(&graph.Node{Name: name, Kind: kind})
	}

	for _, block := range content.Blocks {
		node := network.Nodes[names[block.Labels[1]]]
		handler, _ := reg.Handler(node.Kind)
		inputs, err := decodeInputs(block, handler, names)
		if err != nil {
			return nil, err
		}
		node.Inputs = inputs
	}

	output, err := resolveConnection(content.Attributes["output"].Expr, names)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	network.Output = output.Node

	logger.Debug("Document parsed.", "file", filename, "nodes", len(network.Nodes))
	return New(network), nil
}

// decodeInputs builds the input slots of one node block in handler parameter
// order.
func decodeInputs(block *hcl.Block, handler *registry.Handler, names map[string]graph.NodeID) ([]graph.Input, error) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("node %q: %w", block.Labels[1], diags)
	}

	seen := make(map[string]bool, len(handler.Params))
	inputs := make([]graph.Input, len(handler.Params))
	for i, param := range handler.Params {
		seen[param.Name] = true
		attr, ok := attrs[param.Name]
		if !ok {
			return nil, fmt.Errorf("node %q: missing required argument %q", block.Labels[1], param.Name)
		}

		if isConnection(attr.Expr) {
			in, err := resolveConnection(attr.Expr, names)
			if err != nil {
				return nil, fmt.Errorf("node %q, argument %q: %w", block.Labels[1], param.Name, err)
			}
			inputs[i] = in
			continue
		}

		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("node %q, argument %q: %w", block.Labels[1], param.Name, diags)
		}
		if param.Type != cty.DynamicPseudoType && !val.Type().Equals(param.Type) {
			converted, err := convert.Convert(val, param.Type)
			if err != nil {
				return nil, fmt.Errorf("node %q, argument %q: %w", block.Labels[1], param.Name, err)
			}
			val = converted
		}
		inputs[i] = graph.FromValue(val)
	}

	for name, attr := range attrs {
		if !seen[name] {
			return nil, fmt.Errorf("node %q: unsupported argument %q at %s", block.Labels[1], name, attr.Range)
		}
	}
	return inputs, nil
}

// isConnection reports whether an expression is a reference into the node
// scope rather than a literal value.
func isConnection(expr hcl.Expression) bool {
	for _, traversal := range expr.Variables() {
		if traversal.RootName() == "node" {
			return true
		}
	}
	return false
}

// resolveConnection decodes a node.<name> traversal, with an optional
// numeric index selecting an output slot other than the first.
func resolveConnection(expr hcl.Expression, names map[string]graph.NodeID) (graph.Input, error) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return graph.Input{}, fmt.Errorf("expected a node.<name> reference: %w", diags)
	}
	if traversal.RootName() != "node" || len(traversal) < 2 {
		return graph.Input{}, fmt.Errorf("expected a node.<name> reference, got %q", traversal.RootName())
	}

	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return graph.Input{}, fmt.Errorf("expected a node.<name> reference")
	}
	id, ok := names[attr.Name]
	if !ok {
		return graph.Input{}, fmt.Errorf("reference to undeclared node %q", attr.Name)
	}

	output := 0
	if len(traversal) > 2 {
		index, ok := traversal[2].(hcl.TraverseIndex)
		if !ok || !index.Key.Type().Equals(cty.Number) {
			return graph.Input{}, fmt.Errorf("node reference index must be a number")
		}
		f, _ := index.Key.AsBigFloat().Float64()
		output = int(f)
	}
	if len(traversal) > 3 {
		return graph.Input{}, fmt.Errorf("node reference has too many components")
	}
	return graph.FromNode(id, output), nil
}

// SortedNames returns the declared node names in lexical order, for
// deterministic listings.
func (d *Document) SortedNames() []string {
	out := make([]string, 0, len(d.names))
	for name := range d.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
