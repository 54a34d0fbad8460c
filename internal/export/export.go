// Package export encodes a finished render output into the requested file
// container: vector markup as-is, raster buffers through the still-image
// codecs, or the ASCII-art transcoding path for raster-producing graphs.
package export

import "fmt"

// Capabilities describes what the running engine build can encode. A build
// without raster encoding routes raster exports into the same mismatch
// error path as a graph that produced no raster at all.
type Capabilities struct {
	SupportsRasterEncode bool
}

// FileKind selects the export container.
type FileKind int

const (
	// FileNone marks a non-export execution request.
	FileNone FileKind = iota
	FileSVG
	FilePNG
	FileJPEG
	FileASCII
)

// ParseFileKind maps a user-supplied name to a file kind.
func ParseFileKind(name string) (FileKind, error) {
	switch name {
	case "svg":
		return FileSVG, nil
	case "png":
		return FilePNG, nil
	case "jpg", "jpeg":
		return FileJPEG, nil
	case "ascii":
		return FileASCII, nil
	}
	return FileNone, fmt.Errorf("unknown export file kind %q", name)
}

// Extension returns the file extension, without a dot. ASCII art is carried
// in an SVG container.
func (k FileKind) Extension() string {
	switch k {
	case FileSVG, FileASCII:
		return "svg"
	case FilePNG:
		return "png"
	case FileJPEG:
		return "jpg"
	}
	return ""
}

// MIME returns the media type used when handing the export to a download
// trigger.
func (k FileKind) MIME() string {
	switch k {
	case FileSVG, FileASCII:
		return "image/svg+xml"
	case FilePNG:
		return "image/png"
	case FileJPEG:
		return "image/jpeg"
	}
	return "application/octet-stream"
}

func (k FileKind) String() string {
	switch k {
	case FileNone:
		return "none"
	case FileSVG:
		return "svg"
	case FilePNG:
		return "png"
	case FileJPEG:
		return "jpg"
	case FileASCII:
		return "ascii"
	}
	return "unknown"
}

// Config carries the purpose-specific parameters of an export request,
// created at dispatch time and consumed when the matching result arrives.
type Config struct {
	Kind          FileKind
	Name          string
	ArtboardName  string
	ArtboardCount int
	Transparent   bool
	ScaleFactor   float64
	// Width and Height are the document-space size of the exported region,
	// filled in at dispatch from the export bounds.
	Width  float64
	Height float64
}

// FileName composes the output file name, suffixing the artboard name when
// a document exports more than one artboard.
func (c Config) FileName() string {
	base := c.Name
	if c.ArtboardName != "" && c.ArtboardCount > 1 {
		base = fmt.Sprintf("%s - %s", c.Name, c.ArtboardName)
	}
	return fmt.Sprintf("%s.%s", base, c.Kind.Extension())
}
