package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string   `json:"serverAddress"`
	DatabasePath  string   `json:"databasePath"`
	DatabaseURL   string   `json:"databaseUrl"`
	Library       Library  `json:"library"`
	Overlay       Overlay  `json:"overlay"`
	Security      Security `json:"security"`
	Scanner       Scanner  `json:"scanner"`
}

// Library configuration for the photo source directory
type Library struct {
	Dir string `json:"dir"`
}

// Overlay configuration for the rendered canvas and text band
type Overlay struct {
	FontPath        string `json:"fontPath"`
	ThumbnailMaxDim int    `json:"thumbnailMaxDim"`
	ThumbnailJPEGQ  int    `json:"thumbnailJpegQuality"`
}

// Security configuration
type Security struct {
	AccessKey       string `json:"accessKey"`
	AccessKeyHeader string `json:"accessKeyHeader"`
}

// Scanner configuration for background library scanning
type Scanner struct {
	Enabled       bool `json:"enabled"`
	IntervalHours int  `json:"intervalHours"`
	ScanOnStart   bool `json:"scanOnStart"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "inktime.db",
		Library: Library{
			Dir: "./photos",
		},
		Overlay: Overlay{
			ThumbnailMaxDim: 400,
			ThumbnailJPEGQ:  80,
		},
		Security: Security{
			AccessKeyHeader: "X-Access-Key",
		},
		Scanner: Scanner{
			Enabled:       true,
			IntervalHours: 24,
			ScanOnStart:   true,
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if dir := os.Getenv("IMAGE_DIR"); dir != "" {
		cfg.Library.Dir = dir
	}
	if fontPath := os.Getenv("FONT_PATH"); fontPath != "" {
		cfg.Overlay.FontPath = fontPath
	}
	if key := os.Getenv("ACCESS_KEY"); key != "" {
		cfg.Security.AccessKey = key
	}

	// Scanner configuration
	if enabled := os.Getenv("SCANNER_ENABLED"); enabled != "" {
		cfg.Scanner.Enabled = enabled == "true" || enabled == "1"
	}
	if interval := os.Getenv("SCANNER_INTERVAL_HOURS"); interval != "" {
		if hours, err := strconv.Atoi(interval); err == nil && hours > 0 {
			cfg.Scanner.IntervalHours = hours
		}
	}
	if scanOnStart := os.Getenv("SCANNER_SCAN_ON_START"); scanOnStart != "" {
		cfg.Scanner.ScanOnStart = scanOnStart == "true" || scanOnStart == "1"
	}

	// Ensure the library directory exists
	if err := os.MkdirAll(cfg.Library.Dir, 0755); err != nil {
		return nil, err
	}

	// Make library path absolute
	absPath, err := filepath.Abs(cfg.Library.Dir)
	if err != nil {
		return nil, err
	}
	cfg.Library.Dir = absPath

	return cfg, nil
}
