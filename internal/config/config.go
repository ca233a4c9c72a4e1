// Package config loads runtime configuration from a TOML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7411"
	DefaultDBFileName = "waingest.db"
	DefaultBucket     = "whatsapp-media"
	DefaultLogLevel   = "info"

	DefaultUploadWorkers            = 4
	DefaultMaxUploadBytes     int64 = 512 << 20
	DefaultMultipartMaxMemory int64 = 8 << 20

	configDirEnvKey = "WAINGEST_CONFIG_DIR"
	apiURLEnvKey    = "WAINGEST_API_URL"
	dbPathEnvKey    = "WAINGEST_DB_PATH"
	blobRootEnvKey  = "WAINGEST_BLOB_ROOT"
	bucketEnvKey    = "WAINGEST_BUCKET"
	tokenHashEnvKey = "WAINGEST_API_TOKEN_HASH"
	workersEnvKey   = "WAINGEST_UPLOAD_WORKERS"

	configFileName = "config.toml"
)

// IngestConfig defines runtime configuration for ingestion runs and uploads.
type IngestConfig struct {
	UploadWorkers      int   `toml:"upload_workers"`
	MaxUploadBytes     int64 `toml:"max_upload_bytes"`
	MultipartMaxMemory int64 `toml:"multipart_max_memory"`
}

// Config defines runtime configuration for waingest.
type Config struct {
	APIURL       string       `toml:"api_url"`
	DBPath       string       `toml:"db_path"`
	BlobRoot     string       `toml:"blob_root"`
	Bucket       string       `toml:"bucket"`
	LogLevel     string       `toml:"log_level"`
	APITokenHash string       `toml:"api_token_hash"`
	Ingest       IngestConfig `toml:"ingest"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   DefaultDBFileName,
		Bucket:   DefaultBucket,
		LogLevel: DefaultLogLevel,
		Ingest: IngestConfig{
			UploadWorkers:      DefaultUploadWorkers,
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
		},
	}
}

// Load builds the effective configuration: defaults, then the config file if
// present, then environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := configPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if _, err := loadFileIfExists(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.BlobRoot == "" {
		// Keep blobs next to the database by default.
		cfg.BlobRoot = filepath.Join(filepath.Dir(cfg.DBPath), ".waingest", "blobs")
	}
	if cfg.Ingest.UploadWorkers < 1 {
		cfg.Ingest.UploadWorkers = 1
	}
	return &cfg, nil
}

func configPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		// No resolvable config dir (e.g. HOME unset); run on defaults.
		return "", nil
	}
	return filepath.Join(base, "waingest", configFileName), nil
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(apiURLEnvKey)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(dbPathEnvKey)); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv(blobRootEnvKey)); v != "" {
		cfg.BlobRoot = v
	}
	if v := strings.TrimSpace(os.Getenv(bucketEnvKey)); v != "" {
		cfg.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv(tokenHashEnvKey)); v != "" {
		cfg.APITokenHash = v
	}
	if v := strings.TrimSpace(os.Getenv(workersEnvKey)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Ingest.UploadWorkers = n
		}
	}
}
