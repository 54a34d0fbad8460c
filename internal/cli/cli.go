package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jsjgdh/Graphite/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("graphite", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Graphite runtime - headless node-graph renderer and exporter.

Usage:
  graphite [options] [DOCUMENT_PATH]

Arguments:
  DOCUMENT_PATH
    Path to a .gd.hcl document file.

Options:
`)
		flagSet.PrintDefaults()
	}

	docFlag := flagSet.String("document", "", "Path to the document file.")
	dFlag := flagSet.String("d", "", "Path to the document file (shorthand).")
	exportFlag := flagSet.String("export", "", "Export file kind: 'svg', 'png', 'jpg', or 'ascii'. Empty renders to stdout.")
	nameFlag := flagSet.String("name", "untitled", "Base name of the exported file.")
	outDirFlag := flagSet.String("output-dir", ".", "Directory receiving exported files.")
	transparentFlag := flagSet.Bool("transparent", false, "Export with a transparent background (PNG only).")
	scaleFlag := flagSet.Float64("scale", 1, "Export scale factor.")
	widthFlag := flagSet.Int("width", 1024, "Viewport width in pixels.")
	heightFlag := flagSet.Int("height", 1024, "Viewport height in pixels.")
	monitorPortFlag := flagSet.Int("monitor-port", 0, "Port for the socket.io monitor server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 8, "Number of concurrent workers for node evaluation.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *docFlag != "" {
		path = *docFlag
	} else if *dFlag != "" {
		path = *dFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Document path determined.", "path", path)

	if path == "" {
		slog.Debug("No document path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	exportKind := strings.ToLower(*exportFlag)
	switch exportKind {
	case "", "svg", "png", "jpg", "jpeg", "ascii":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid export: must be 'svg', 'png', 'jpg', or 'ascii'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		DocumentPath: path,
		ExportKind:   exportKind,
		ExportName:   *nameFlag,
		OutputDir:    *outDirFlag,
		Transparent:  *transparentFlag,
		ScaleFactor:  *scaleFlag,
		Width:        *widthFlag,
		Height:       *heightFlag,
		MonitorPort:  *monitorPortFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		WorkerCount:  *workersFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
