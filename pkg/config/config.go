// Package config holds runtime settings for the configurator backend.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults.
const (
	DefaultAngleTolerance = 0.5 // degrees
	DefaultTextureSize    = 256 // pixels per texture edge
	DefaultMeshCells      = 64  // marching-cubes cells along the longest axis
	DefaultEvalTimeout    = 5 * time.Second
	DefaultAlertColor     = "#e53935"
	DefaultStorePath      = "openings.db"
)

// Prefix is prepended to every environment variable name.
const Prefix = "OPENINGS_"

type Config struct {
	// AngleTolerance is how far a rotation may sit from a multiple of 45°
	// and still be snapped onto it.
	AngleTolerance float64
	TextureSize    int
	MeshCells      int
	EvalTimeout    time.Duration
	// AlertColor recolors primary materials of fixtures whose placement
	// is forbidden.
	AlertColor string
	// StorePath is the sqlite DSN; ":memory:" keeps layouts in process.
	StorePath string
	// CatalogPath names an optional catalog source file. Empty selects the
	// built-in catalog.
	CatalogPath string
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		AngleTolerance: DefaultAngleTolerance,
		TextureSize:    DefaultTextureSize,
		MeshCells:      DefaultMeshCells,
		EvalTimeout:    DefaultEvalTimeout,
		AlertColor:     DefaultAlertColor,
		StorePath:      DefaultStorePath,
	}
}

// Load reads the configuration from OPENINGS_* environment variables,
// falling back to Defaults for anything unset or unparsable.
func Load() *Config {
	d := Defaults()
	return &Config{
		AngleTolerance: getEnvAsFloat("ANGLE_TOLERANCE", d.AngleTolerance),
		TextureSize:    getEnvAsInt("TEXTURE_SIZE", d.TextureSize),
		MeshCells:      getEnvAsInt("MESH_CELLS", d.MeshCells),
		EvalTimeout:    getEnvAsDuration("EVAL_TIMEOUT", d.EvalTimeout),
		AlertColor:     getEnv("ALERT_COLOR", d.AlertColor),
		StorePath:      getEnv("STORE_PATH", d.StorePath),
		CatalogPath:    getEnv("CATALOG_PATH", d.CatalogPath),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(Prefix + key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(Prefix + key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(Prefix + key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 {
			return f
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(Prefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}
