package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/modules/artwork"
	"github.com/jsjgdh/Graphite/modules/raster"
	"github.com/jsjgdh/Graphite/modules/text"
	"github.com/jsjgdh/Graphite/modules/transform"
	"github.com/jsjgdh/Graphite/modules/value"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, m := range []registry.Module{
		&value.Module{},
		&raster.Module{},
		&transform.Module{},
		&text.Module{},
		&artwork.Module{},
	} {
		m.Register(reg)
	}
	return reg
}

const validDocument = `
node "raster" "fill" {
  width   = 32
  height  = 32
  color   = "#00ff00"
  checker = false
}

node "transform" "move" {
  source = node.fill
  matrix = [1, 0, 0, 1, 5, 5]
}

node "artwork" "present" {
  source = node.move
  clip   = true
}

output = node.present
`

func TestParse_ValidDocument(t *testing.T) {
	t.Parallel()

	doc, err := Parse(context.Background(), "test.gd.hcl", []byte(validDocument), testRegistry(t))
	require.NoError(t, err)

	n := doc.Network()
	require.Len(t, n.Nodes, 3)
	assert.Equal(t, []string{"fill", "move", "present"}, doc.SortedNames())

	present, ok := doc.Lookup("present")
	require.True(t, ok)
	assert.Equal(t, present, n.Output)

	fill, _ := doc.Lookup("fill")
	move, _ := doc.Lookup("move")

	// Connections resolve in handler parameter order.
	moveNode := n.Nodes[move]
	require.Len(t, moveNode.Inputs, 2)
	assert.Equal(t, graph.FromNode(fill, 0), moveNode.Inputs[0])
	assert.Equal(t, graph.InputValue, moveNode.Inputs[1].Kind)

	// Literals convert to the declared parameter type.
	fillNode := n.Nodes[fill]
	assert.True(t, cty.NumberIntVal(32).RawEquals(fillNode.Inputs[0].Value))
	assert.Equal(t, cty.StringVal("#00ff00"), fillNode.Inputs[2].Value)

	presentNode := n.Nodes[present]
	assert.Equal(t, cty.True, presentNode.Inputs[1].Value)
}

func TestParse_IndexedConnection(t *testing.T) {
	t.Parallel()

	src := `
node "value" "v" {
  value = "x"
}

node "artwork" "a" {
  source = node.v[0]
  clip   = false
}

output = node.a
`
	doc, err := Parse(context.Background(), "test.gd.hcl", []byte(src), testRegistry(t))
	require.NoError(t, err)

	a, _ := doc.Lookup("a")
	v, _ := doc.Lookup("v")
	assert.Equal(t, graph.FromNode(v, 0), doc.Network().Nodes[a].Inputs[0])
}

func TestParse_DeclarationOrderIrrelevant(t *testing.T) {
	t.Parallel()

	src := `
output = node.a

node "artwork" "a" {
  source = node.v
  clip   = false
}

node "value" "v" {
  value = 1
}
`
	doc, err := Parse(context.Background(), "test.gd.hcl", []byte(src), testRegistry(t))
	require.NoError(t, err)
	assert.Len(t, doc.Network().Nodes, 2)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown kind",
			src:  `node "bezier" "b" {}` + "\noutput = node.b\n",
			want: `unknown node kind "bezier"`,
		},
		{
			name: "duplicate name",
			src: `node "value" "v" {
  value = 1
}
node "value" "v" {
  value = 2
}
output = node.v
`,
			want: `duplicate node name "v"`,
		},
		{
			name: "missing argument",
			src: `node "value" "v" {}
output = node.v
`,
			want: `missing required argument "value"`,
		},
		{
			name: "unsupported argument",
			src: `node "value" "v" {
  value = 1
  extra = 2
}
output = node.v
`,
			want: `unsupported argument "extra"`,
		},
		{
			name: "undeclared reference",
			src: `node "artwork" "a" {
  source = node.ghost
  clip   = false
}
output = node.a
`,
			want: `undeclared node "ghost"`,
		},
		{
			name: "missing output",
			src: `node "value" "v" {
  value = 1
}
`,
			want: "output",
		},
		{
			name: "literal conversion failure",
			src: `node "raster" "r" {
  width   = true
  height  = 1
  color   = "#fff"
  checker = false
}
output = node.r
`,
			want: `argument "width"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(context.Background(), "test.gd.hcl", []byte(tc.src), testRegistry(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestDocument_IndicesRoundTrip(t *testing.T) {
	t.Parallel()

	doc, err := Parse(context.Background(), "test.gd.hcl", []byte(validDocument), testRegistry(t))
	require.NoError(t, err)

	fill, _ := doc.Lookup("fill")
	doc.UpdateTypes(graph.TypesDelta{fill: cty.String}, []graph.Error{{Node: fill, Message: "oops"}})

	ty, ok := doc.ResolvedType(fill)
	require.True(t, ok)
	assert.True(t, ty.Equals(cty.String))
	require.Len(t, doc.Errors(), 1)

	doc.UpdateClipTargets([]graph.NodeID{fill})
	assert.Equal(t, []graph.NodeID{fill}, doc.ClipTargets())
}

func TestDocument_SnapshotIsolated(t *testing.T) {
	t.Parallel()

	doc, err := Parse(context.Background(), "test.gd.hcl", []byte(validDocument), testRegistry(t))
	require.NoError(t, err)

	before := doc.Fingerprint()
	snapshot := doc.Snapshot()

	fill, _ := doc.Lookup("fill")
	doc.Network().Nodes[fill].Inputs[0] = graph.FromValue(cty.NumberIntVal(64))

	assert.NotEqual(t, before, doc.Fingerprint())
	assert.Equal(t, before, snapshot.Fingerprint(), "snapshots must not see later edits")
}
