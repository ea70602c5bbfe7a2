package record

import (
	"go.uber.org/zap"
)

const (
	defaultPageSize = 1000
	maxPageSize     = 10000
)

// Config holds configuration for a Model.
type Config struct {
	// PageSize is the number of rows fetched per page when a batch size is not given.
	// Default: 1000
	// Max: 10000
	PageSize int

	// Consistency is passed to the driver with every statement.
	// Default: "" (driver default)
	Consistency string

	// Logger receives statement debug logs. Default: no-op.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PageSize: defaultPageSize,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.PageSize < 1 {
		c.PageSize = defaultPageSize
	}
	if c.PageSize > maxPageSize {
		c.PageSize = maxPageSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}
