package twentytwenty

import (
	env "github.com/caarlos0/env/v11"

	"github.com/KittyCAD/twenty-twenty/logging"
	"github.com/KittyCAD/twenty-twenty/store"
)

// EnvVar is the environment variable that selects the run mode.
const EnvVar = "TWENTY_TWENTY"

// Mode aliases the store's execution mode so callers configuring behavior
// programmatically don't need a second import.
type Mode = store.Mode

const (
	ModeAssert                  = store.ModeAssert
	ModeOverwrite               = store.ModeOverwrite
	ModeStoreArtifact           = store.ModeStoreArtifact
	ModeStoreArtifactOnMismatch = store.ModeStoreArtifactOnMismatch
)

// Config is the environment-driven configuration for one assertion call.
// Tests may run in any order and any process, so it is resolved fresh from
// the environment at every call rather than cached.
type Config struct {
	Mode        Mode   `env:"TWENTY_TWENTY"`
	ArtifactDir string `env:"TWENTY_TWENTY_ARTIFACT_DIR" envDefault:"artifacts"`
}

// ConfigFromEnv reads the process environment into a Config. The
// environment is only touched here, at the facade boundary; everything
// below runs as a pure function of its inputs. Mode parsing never fails
// (unknown values warn and assert), so errors here mean a malformed
// environment and degrade to the strict default.
func ConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		logging.Warnf("parsing environment configuration: %v", err)
		return Config{ArtifactDir: store.DefaultArtifactDir}
	}
	if cfg.ArtifactDir == "" {
		// A variable that is set but empty bypasses envDefault.
		cfg.ArtifactDir = store.DefaultArtifactDir
	}
	return cfg
}
