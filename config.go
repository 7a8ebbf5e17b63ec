package rowdb

import (
	"fmt"
	"log/slog"

	"github.com/oda/rowdb/internal/dberr"
	"github.com/oda/rowdb/internal/pager"
)

// Backend names accepted by Config.Backend.
const (
	BackendFile = "file"
	BackendMmap = "mmap"
)

// DefaultPath is the backing file used when no path is configured.
const DefaultPath = "database.db"

// Config holds table configuration.
type Config struct {
	Path       string // backing file location
	MaxPages   int    // capacity bound in pages
	CachePages int    // resident page bound; 0 keeps every page resident
	Backend    string // "file" or "mmap"

	// Logger receives storage events. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used by the command line tools.
func DefaultConfig() Config {
	return Config{
		Path:     DefaultPath,
		MaxPages: pager.DefaultMaxPages,
		Backend:  BackendFile,
	}
}

// withDefaults fills zero MaxPages and Backend.
func (c Config) withDefaults() Config {
	if c.MaxPages == 0 {
		c.MaxPages = pager.DefaultMaxPages
	}
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Path == "":
		return fmt.Errorf("%w: path is required", dberr.ErrInvalidConfig)
	case c.MaxPages <= 0:
		return fmt.Errorf("%w: max pages must be positive, got %d", dberr.ErrInvalidConfig, c.MaxPages)
	case c.CachePages < 0:
		return fmt.Errorf("%w: cache pages must not be negative, got %d", dberr.ErrInvalidConfig, c.CachePages)
	case c.Backend != BackendFile && c.Backend != BackendMmap:
		return fmt.Errorf("%w: unknown backend %q", dberr.ErrInvalidConfig, c.Backend)
	}
	return nil
}

// MaxRows returns the number of rows that fit in the configured pages.
func (c Config) MaxRows() int {
	return c.withDefaults().MaxPages * RowsPerPage
}
