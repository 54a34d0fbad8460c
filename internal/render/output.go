package render

import (
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/graph"
)

// Raster is an RGBA8 pixel buffer produced by raster-producing graphs.
type Raster struct {
	Width  int
	Height int
	// Pixels is tightly packed RGBA, row major, Width*Height*4 bytes.
	Pixels []byte
}

// At returns the RGBA components of the pixel at (x, y).
func (r *Raster) At(x, y int) (uint8, uint8, uint8, uint8) {
	i := (y*r.Width + x) * 4
	return r.Pixels[i], r.Pixels[i+1], r.Pixels[i+2], r.Pixels[i+3]
}

// SurfaceFrame is a handle to a live drawing surface owned by the
// presentation layer, referenced by id rather than by pixel content.
type SurfaceFrame struct {
	SurfaceID uint64
	Transform Transform
	Width     int
	Height    int
}

// OutputKind discriminates the payload of a render output.
type OutputKind int

const (
	OutputSVG OutputKind = iota
	OutputRaster
	OutputSurface
)

func (k OutputKind) String() string {
	switch k {
	case OutputSVG:
		return "svg"
	case OutputRaster:
		return "raster"
	case OutputSurface:
		return "surface"
	}
	return "unknown"
}

// Metadata is the auxiliary geometry recomputed alongside a render: spatial
// indices the editing tools query between evaluations. It must be cleared
// whenever the graph enters an un-renderable state.
type Metadata struct {
	UpstreamFootprints map[graph.NodeID]Footprint
	LocalTransforms    map[graph.NodeID]Transform
	ClickTargets       map[graph.NodeID]Rect
	ClipTargets        []graph.NodeID
}

// Output is the terminal value of a successful evaluation.
type Output struct {
	Kind     OutputKind
	SVG      string
	Raster   *Raster
	Surface  *SurfaceFrame
	Metadata Metadata
}

// OutputType is the capsule type carrying an Output through the typed value
// system. Node outputs, recorded tap values, and execution results all stay
// cty.Value; consumers unwrap through AsOutput.
var OutputType = cty.Capsule("render output", reflect.TypeOf(Output{}))

// RasterType is the capsule type for intermediate raster buffers.
var RasterType = cty.Capsule("raster", reflect.TypeOf(Raster{}))

// WrapOutput encapsulates an output as a cty value.
func WrapOutput(out *Output) cty.Value {
	return cty.CapsuleVal(OutputType, out)
}

// AsOutput unwraps a cty value holding a render output.
func AsOutput(v cty.Value) (*Output, bool) {
	if v == cty.NilVal || !v.Type().Equals(OutputType) || v.IsNull() {
		return nil, false
	}
	return v.EncapsulatedValue().(*Output), true
}

// WrapRaster encapsulates a raster buffer as a cty value.
func WrapRaster(r *Raster) cty.Value {
	return cty.CapsuleVal(RasterType, r)
}

// AsRaster unwraps a cty value holding a raster buffer.
func AsRaster(v cty.Value) (*Raster, bool) {
	if v == cty.NilVal || !v.Type().Equals(RasterType) || v.IsNull() {
		return nil, false
	}
	return v.EncapsulatedValue().(*Raster), true
}
