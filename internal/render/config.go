package render

// Footprint describes the region of document space a render covers: the
// document-to-viewport transform and the pixel resolution of the target.
type Footprint struct {
	Transform Transform
	Width     int
	Height    int
}

// Timing carries the clocks sampled at dispatch time.
type Timing struct {
	// Time is wall-clock milliseconds since process start.
	Time float64
	// AnimationTime is the document's animation playhead in seconds.
	AnimationTime float64
}

// Config is the immutable per-request render configuration. It is created
// when an evaluation is dispatched and consumed exactly once when its
// matching result arrives.
type Config struct {
	Viewport      Footprint
	Scale         float64
	PointerX      float64
	PointerY      float64
	Time          Timing
	HideArtboards bool
	ForExport     bool
	ForPreview    bool
}
