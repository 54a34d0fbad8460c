package app

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/render"
	"github.com/jsjgdh/Graphite/internal/runtimeio"
)

// fileSink writes finished export artifacts into the output directory. In a
// headless run a download trigger is just another file write.
type fileSink struct {
	dir    string
	logger *slog.Logger
}

func (s *fileSink) WriteFile(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	s.logger.Info("Writing export file.", "path", path, "bytes", len(data))
	return os.WriteFile(path, data, 0o644)
}

func (s *fileSink) TriggerDownload(name, mime string, data []byte) error {
	s.logger.Debug("Download trigger routed to file write.", "name", name, "mime", mime)
	return s.WriteFile(name, data)
}

// consolePresenter retains the last applied artwork so the run can print it
// on completion, and logs everything else it receives.
type consolePresenter struct {
	logger  *slog.Logger
	artwork string
}

func (p *consolePresenter) ApplyArtwork(svg string) {
	p.logger.Debug("Artwork updated.", "bytes", len(svg))
	p.artwork = svg
}

func (p *consolePresenter) ApplyUpstreamTransforms(footprints map[graph.NodeID]render.Footprint, transforms map[graph.NodeID]render.Transform) {
	p.logger.Debug("Upstream transforms updated.", "footprints", len(footprints), "transforms", len(transforms))
}

func (p *consolePresenter) ApplyGeometry(updates []runtimeio.DocUpdate) {
	p.logger.Debug("Geometry updated.", "updates", len(updates))
}

func (p *consolePresenter) ApplyPreview(raster *render.Raster) {
	p.logger.Debug("Preview sample received.", "width", raster.Width, "height", raster.Height)
}

func (p *consolePresenter) ApplyInspect(node graph.NodeID, value cty.Value) {
	p.logger.Debug("Inspected value received.", "node", node.String(), "type", value.Type().FriendlyName())
}

func (p *consolePresenter) ClearInspect() {}
