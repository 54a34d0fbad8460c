package app

import (
	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/modules/artwork"
	"github.com/jsjgdh/Graphite/modules/raster"
	"github.com/jsjgdh/Graphite/modules/text"
	"github.com/jsjgdh/Graphite/modules/transform"
	"github.com/jsjgdh/Graphite/modules/value"
)

// coreModules is the definitive list of all node-kind modules that are
// compiled into the binary.
var coreModules = []registry.Module{
	&value.Module{},
	&raster.Module{},
	&transform.Module{},
	&text.Module{},
	&artwork.Module{},
}
