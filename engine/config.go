package engine

import (
	"github.com/interviewintel/pipeline/engine/config"
)

// Config is the public configuration surface for the Engine facade: the
// environment-driven table from spec §6, plus a couple of facade-level
// knobs that don't belong in the layered config package (ConfigPath is the
// thing that produces a config.Config, not part of it).
type Config struct {
	config.Config

	// MaxExperiencesPerCompany is the default quota passed to
	// RunCompleteAnalysis when a caller doesn't specify one.
	MaxExperiencesPerCompany int

	// ConfigPath records the path NewFromFile loaded this Config from; it is
	// empty for Defaults().
	ConfigPath string
}

// Defaults returns a Config with reasonable defaults layered from
// config.Defaults().
func Defaults() Config {
	return Config{
		Config:                   config.Defaults(),
		MaxExperiencesPerCompany: 20,
	}
}

// NewFromFile builds a Config by loading path (YAML + env overrides)
// through the config package, taking the facade-only fields from Defaults()
// and recording path in ConfigPath.
func NewFromFile(path string) (Config, error) {
	loaded, err := config.Load(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Defaults()
	cfg.Config = loaded
	cfg.ConfigPath = path
	return cfg, nil
}
