package engine

import (
	"github.com/danielpatrickdp/prism-engine/internal/calibrate"
	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/dimension"
	"github.com/danielpatrickdp/prism-engine/internal/overlay"
	"github.com/danielpatrickdp/prism-engine/internal/rank"
	"github.com/danielpatrickdp/prism-engine/internal/validate"
)

// Version is the results version stamped on every profile this engine writes.
// Bump it whenever a formula, constant or norm below changes.
var Version = catalog.MustParseVersion("v2.1.0")

// #region config
// Config bundles every stage's constants for one engine version.
type Config struct {
	Validate  validate.Config
	Dimension dimension.Config
	Rank      rank.Config
	Calibrate calibrate.Config
	Overlay   overlay.Config

	// MaxConflictRetries bounds how often a lost compare-and-swap is retried.
	MaxConflictRetries int
	// Trigger labels provenance rows and metrics ("score", "backfill", "rpc").
	Trigger string
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Validate:           validate.DefaultConfig(),
		Dimension:          dimension.DefaultConfig(),
		Rank:               rank.DefaultConfig(),
		Calibrate:          calibrate.DefaultConfig(),
		Overlay:            overlay.DefaultConfig(),
		MaxConflictRetries: 3,
		Trigger:            "score",
	}
}

// #endregion config
