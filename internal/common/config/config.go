package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string `toml:"port"`
	Environment  string `toml:"environment"`
	ReadTimeout  int    `toml:"read_timeout"`
	WriteTimeout int    `toml:"write_timeout"`
	// BodyLimit caps uploaded documents, in bytes.
	BodyLimit int `toml:"body_limit"`
	// CORSOrigins lists origins allowed to call the API; empty means any.
	CORSOrigins []string `toml:"cors_origins"`

	DBPath  string `toml:"db_path"`
	DataDir string `toml:"data_dir"`

	Normalizer Normalizer `toml:"normalizer"`
}

// Normalizer holds the knobs of a normalization run.
type Normalizer struct {
	Tolerance      float64 `toml:"tolerance"`
	ChordRatio     float64 `toml:"chord_ratio"`
	ArcMode        string  `toml:"arc_mode"`
	KeepCircleArcs bool    `toml:"keep_circle_arcs"`
	Strict         bool    `toml:"strict"`
	Limits         Limits  `toml:"limits"`
}

type Limits struct {
	MaxLoops int `toml:"max_loops"`
	MaxDepth int `toml:"max_depth"`
	MaxSteps int `toml:"max_steps"`
}

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "NORMALIZER_CONFIG"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:         "3000",
		Environment:  "development",
		ReadTimeout:  10,
		WriteTimeout: 10,
		BodyLimit:    32 << 20,
		DBPath:       "data/db/runs.db",
		DataDir:      "data/runs",
		Normalizer: Normalizer{
			Tolerance:  1e-6,
			ChordRatio: 1.0 / 3.0,
			ArcMode:    "bulge",
			Limits: Limits{
				MaxLoops: 10000,
				MaxSteps: 5_000_000,
			},
		},
	}
}

// Load reads the file named by NORMALIZER_CONFIG, if any, then applies
// environment overrides.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigPath))
}

// LoadFile layers defaults, the TOML file at path (skipped when path is
// empty) and environment variables, in that order.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENV", cfg.Environment)
	cfg.ReadTimeout = getEnvAsInt("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.BodyLimit = getEnvAsInt("BODY_LIMIT", cfg.BodyLimit)
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	cfg.DBPath = getEnv("NORMALIZER_DB_PATH", cfg.DBPath)
	cfg.DataDir = getEnv("NORMALIZER_DATA_DIR", cfg.DataDir)

	n := &cfg.Normalizer
	n.Tolerance = getEnvAsFloat("NORMALIZER_TOLERANCE", n.Tolerance)
	n.ChordRatio = getEnvAsFloat("NORMALIZER_CHORD_RATIO", n.ChordRatio)
	n.ArcMode = getEnv("NORMALIZER_ARC_MODE", n.ArcMode)
	n.KeepCircleArcs = getEnvAsBool("NORMALIZER_KEEP_CIRCLE_ARCS", n.KeepCircleArcs)
	n.Strict = getEnvAsBool("NORMALIZER_STRICT", n.Strict)
	n.Limits.MaxLoops = getEnvAsInt("NORMALIZER_MAX_LOOPS", n.Limits.MaxLoops)
	n.Limits.MaxDepth = getEnvAsInt("NORMALIZER_MAX_DEPTH", n.Limits.MaxDepth)
	n.Limits.MaxSteps = getEnvAsInt("NORMALIZER_MAX_STEPS", n.Limits.MaxSteps)
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	var errs []error
	n := c.Normalizer
	if !(n.Tolerance > 0) {
		errs = append(errs, fmt.Errorf("normalizer.tolerance must be positive, got %g", n.Tolerance))
	}
	if !(n.ChordRatio > 0) {
		errs = append(errs, fmt.Errorf("normalizer.chord_ratio must be positive, got %g", n.ChordRatio))
	}
	switch strings.ToLower(n.ArcMode) {
	case "", "flatten", "bulge":
	default:
		errs = append(errs, fmt.Errorf("normalizer.arc_mode must be flatten or bulge, got %q", n.ArcMode))
	}
	if n.Limits.MaxLoops < 0 || n.Limits.MaxDepth < 0 || n.Limits.MaxSteps < 0 {
		errs = append(errs, errors.New("normalizer.limits must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}
