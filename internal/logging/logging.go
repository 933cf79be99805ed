// Package logging builds the hclog root logger shared by the API and worker.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"docvault/internal/config"
)

// New returns a root logger named after the process. Output defaults to
// stdout when w is nil.
func New(name string, cfg config.LogConfig, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stdout
	}
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     w,
		JSONFormat: cfg.Format != "text",
		TimeFormat: time.RFC3339Nano,
	})
}
