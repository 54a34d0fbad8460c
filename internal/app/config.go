package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DocumentPath string // .gd.hcl file

	// ExportKind selects the export container; empty renders to stdout.
	ExportKind  string
	ExportName  string
	OutputDir   string
	Transparent bool
	ScaleFactor float64

	Width  int
	Height int

	LogFormat   string
	LogLevel    string
	MonitorPort int
	WorkerCount int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.DocumentPath == "" {
		return nil, errors.New("DocumentPath is a required configuration field and cannot be empty")
	}
	if cfg.Width <= 0 {
		cfg.Width = 1024
	}
	if cfg.Height <= 0 {
		cfg.Height = 1024
	}
	if cfg.ExportName == "" {
		cfg.ExportName = "untitled"
	}
	if cfg.ScaleFactor <= 0 {
		cfg.ScaleFactor = 1
	}
	return &cfg, nil
}
