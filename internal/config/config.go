package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"kinlib/domain/core"
	"kinlib/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Analysis AnalysisConfig
	Server   ServerConfig
	LogLevel string
}

// DataConfig holds the matrix and background file of each kinase type
type DataConfig struct {
	Dir                string
	SerThrMatrices     string
	TyrosineMatrices   string
	SerThrBackground   string
	TyrosineBackground string
	// MatrixScale is log2 (weights used as read) or linear (probabilities,
	// log2-transformed on load)
	MatrixScale string
}

// AnalysisConfig holds scoring and enrichment defaults
type AnalysisConfig struct {
	Workers            int
	Permutations       int
	Seed               *int64
	CenterFavorability bool
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// Default file names looked up under KINLIB_DATA_DIR
const (
	SerThrMatricesFile     = "ser_thr_matrices.csv"
	TyrosineMatricesFile   = "tyrosine_matrices.csv"
	SerThrBackgroundFile   = "ser_thr_background.csv"
	TyrosineBackgroundFile = "tyrosine_background.csv"
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	analysis, err := loadAnalysisConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis configuration")
	}

	config := &Config{
		Data:     *loadDataConfig(),
		Analysis: *analysis,
		Server:   ServerConfig{Port: getEnvOrDefault("PORT", "8080")},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDataConfig() *DataConfig {
	dir := os.Getenv("KINLIB_DATA_DIR")
	inDir := func(key, name string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if dir == "" {
			return ""
		}
		return filepath.Join(dir, name)
	}
	return &DataConfig{
		Dir:                dir,
		SerThrMatrices:     inDir("KINLIB_SER_THR_MATRICES", SerThrMatricesFile),
		TyrosineMatrices:   inDir("KINLIB_TYROSINE_MATRICES", TyrosineMatricesFile),
		SerThrBackground:   inDir("KINLIB_SER_THR_BACKGROUND", SerThrBackgroundFile),
		TyrosineBackground: inDir("KINLIB_TYROSINE_BACKGROUND", TyrosineBackgroundFile),
		MatrixScale:        getEnvOrDefault("KINLIB_MATRIX_SCALE", "log2"),
	}
}

func loadAnalysisConfig() (*AnalysisConfig, error) {
	cfg := &AnalysisConfig{
		Workers:            getEnvIntOrDefault("KINLIB_WORKERS", runtime.NumCPU()),
		Permutations:       getEnvIntOrDefault("KINLIB_PERMUTATIONS", 1000),
		CenterFavorability: getEnvBoolOrDefault("KINLIB_CENTER_FAVORABILITY", false),
	}
	if v := os.Getenv("KINLIB_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.ConfigInvalid("KINLIB_SEED must be an integer, got " + strconv.Quote(v))
		}
		cfg.Seed = &seed
	}
	return cfg, nil
}

// Validate checks that at least one kinase type is fully configured and the
// analysis defaults are usable
func (c *Config) Validate() error {
	if len(c.Types()) == 0 {
		return errors.ConfigInvalid("no kinase type has both a matrix and a background file (set KINLIB_DATA_DIR or KINLIB_*_MATRICES / KINLIB_*_BACKGROUND)")
	}
	if c.Data.MatrixScale != "log2" && c.Data.MatrixScale != "linear" {
		return errors.ConfigInvalid("KINLIB_MATRIX_SCALE must be log2 or linear, got " + strconv.Quote(c.Data.MatrixScale))
	}
	if c.Analysis.Workers < 1 {
		return errors.ConfigInvalid("KINLIB_WORKERS must be at least 1")
	}
	if c.Analysis.Permutations < 1 {
		return errors.ConfigInvalid("KINLIB_PERMUTATIONS must be at least 1")
	}
	return nil
}

// Types returns the kinase types with both files configured
func (c *Config) Types() []core.KinaseType {
	var out []core.KinaseType
	if c.Data.SerThrMatrices != "" && c.Data.SerThrBackground != "" {
		out = append(out, core.SerThr)
	}
	if c.Data.TyrosineMatrices != "" && c.Data.TyrosineBackground != "" {
		out = append(out, core.Tyrosine)
	}
	return out
}

// MatrixFiles returns the configured matrix file per kinase type
func (c *Config) MatrixFiles() map[core.KinaseType]string {
	return map[core.KinaseType]string{core.SerThr: c.Data.SerThrMatrices, core.Tyrosine: c.Data.TyrosineMatrices}
}

// BackgroundFiles returns the configured background file per kinase type
func (c *Config) BackgroundFiles() map[core.KinaseType]string {
	return map[core.KinaseType]string{core.SerThr: c.Data.SerThrBackground, core.Tyrosine: c.Data.TyrosineBackground}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
