// Package config provides configuration management for the Clipdeck Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// Default values
	DefaultPort     = 8765
	DefaultLogLevel = "info"
	DefaultDataDir  = ".clipdeck"

	// Environment variable names
	EnvPort        = "CLIPDECK_PORT"
	EnvLogLevel    = "CLIPDECK_LOG_LEVEL"
	EnvDataDir     = "CLIPDECK_DATA_DIR"
	EnvUserdataDir = "CLIPDECK_USERDATA_DIR"
	EnvExportDir   = "CLIPDECK_EXPORT_DIR"
	EnvFFmpeg      = "CLIPDECK_FFMPEG"
	EnvHeadless    = "CLIPDECK_HEADLESS"
	EnvChunkMB     = "CLIPDECK_UPLOAD_CHUNK_MB"

	// Database filename
	DBFilename = "clipdeck.db"

	// Persisted state filenames under the data dir
	GameNamesFilename     = "GameIDs.json"
	ClientSecretsFilename = "client_secrets.json"
	OAuthTokenFilename    = "youtube-oauth2-token.json"

	// Upload defaults
	DefaultChunkMB = 8
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	CacheDir() string
	UserdataDir() string
	ExportDir() string
	FFmpegPath() string
	Headless() bool
	UploadChunkBytes() int64
	GameNamesPath() string
	ClientSecretsPath() string
	OAuthTokenPath() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port        int
	logLevel    string
	dataDir     string
	userdataDir string
	exportDir   string
	ffmpegPath  string
	headless    bool
	chunkMB     int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:        DefaultPort,
		logLevel:    DefaultLogLevel,
		dataDir:     defaultDataDir(),
		userdataDir: defaultUserdataDir(),
		exportDir:   defaultExportDir(),
		chunkMB:     DefaultChunkMB,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if ud := os.Getenv(EnvUserdataDir); ud != "" {
		cfg.userdataDir = ud
	}

	if ed := os.Getenv(EnvExportDir); ed != "" {
		cfg.exportDir = ed
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpeg)

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if cm := os.Getenv(EnvChunkMB); cm != "" {
		chunkMB, err := strconv.Atoi(cm)
		if err != nil || chunkMB < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvChunkMB)
		}
		cfg.chunkMB = chunkMB
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// CacheDir returns the thumbnail cache directory path
func (c *EnvConfig) CacheDir() string {
	return filepath.Join(c.dataDir, "cache")
}

// UserdataDir returns the Steam userdata directory path
func (c *EnvConfig) UserdataDir() string {
	return c.userdataDir
}

// ExportDir returns the default directory for assembled clips
func (c *EnvConfig) ExportDir() string {
	return c.exportDir
}

// FFmpegPath returns the configured ffmpeg binary, or empty for PATH lookup
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// UploadChunkBytes returns the resumable upload chunk size in bytes
func (c *EnvConfig) UploadChunkBytes() int64 {
	return int64(c.chunkMB) * 1024 * 1024
}

func (c *EnvConfig) GameNamesPath() string {
	return filepath.Join(c.dataDir, GameNamesFilename)
}

func (c *EnvConfig) ClientSecretsPath() string {
	return filepath.Join(c.dataDir, ClientSecretsFilename)
}

func (c *EnvConfig) OAuthTokenPath() string {
	return filepath.Join(c.dataDir, OAuthTokenFilename)
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// defaultUserdataDir probes the known Steam install locations. The native
// install wins over Flatpak; if neither exists the native path is returned
// so error messages point somewhere meaningful.
func defaultUserdataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	candidates := []string{
		filepath.Join(home, ".local", "share", "Steam", "userdata"),
		filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", "data", "Steam", "userdata"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return candidates[0]
}

func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
