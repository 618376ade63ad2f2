package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/techtime/constants"
)

// Config holds all application configuration
type Config struct {
	Storage    StorageConfig
	OCR        OCRConfig
	Backup     BackupConfig
	Telemetry  TelemetryConfig
	Log        LogConfig
	AppVersion string
}

// StorageConfig holds key-value store configuration
type StorageConfig struct {
	DSN         string // sqlite path, postgres:// or redis:// URL
	DataDir     string
	DialTimeout time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Provider          string
	APIKey            string
	Endpoint          string
	Timeout           time.Duration
	MaxRetries        int
	RetryBase         time.Duration
	RequestsPerMinute int
	MaxImageDimension int
	ConnectivityHost  string
	TesseractBin      string
	TessdataDir       string
	HeicConverter     string
	ArtifactCacheDir  string
}

// BackupConfig holds backup and share configuration
type BackupConfig struct {
	Directory string
	ShareURL  string
}

// TelemetryConfig holds tracing configuration
type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from an optional .env file and the environment.
// A missing env file is not an error.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	dataDir := getEnv("TECHTIME_DATA_DIR", defaultDataDir())
	apiKey := getEnv("OCR_API_KEY", "")
	provider := strings.ToLower(getEnv("OCR_PROVIDER", ""))
	if provider == "" {
		provider = constants.ProviderNone
		if apiKey != "" {
			provider = constants.ProviderVision
		}
	}

	return &Config{
		Storage: StorageConfig{
			DSN:         getEnv("TECHTIME_DSN", filepath.Join(dataDir, "techtime.db")),
			DataDir:     dataDir,
			DialTimeout: getEnvAsDuration("TECHTIME_DIAL_TIMEOUT", 3*time.Second),
		},
		OCR: OCRConfig{
			Provider:          provider,
			APIKey:            apiKey,
			Endpoint:          getEnv("OCR_ENDPOINT", constants.DefaultVisionEndpoint),
			Timeout:           getEnvAsDuration("OCR_TIMEOUT", 12*time.Second),
			MaxRetries:        getEnvAsInt("OCR_MAX_RETRIES", 2),
			RetryBase:         getEnvAsDuration("OCR_RETRY_BASE", time.Second),
			RequestsPerMinute: getEnvAsInt("OCR_REQUESTS_PER_MINUTE", 30),
			MaxImageDimension: getEnvAsInt("OCR_MAX_IMAGE_DIM", 2048),
			ConnectivityHost:  getEnv("OCR_CONNECTIVITY_HOST", "vision.googleapis.com:443"),
			TesseractBin:      getEnv("TESSERACT_BIN", "tesseract"),
			TessdataDir:       getEnv("TESSDATA_PREFIX", ""),
			HeicConverter:     getEnv("HEIC_CONVERTER", "magick"),
			ArtifactCacheDir:  getEnv("ARTIFACT_CACHE_DIR", filepath.Join(dataDir, "tmp")),
		},
		Backup: BackupConfig{
			Directory: getEnv("TECHTIME_BACKUP_DIR", filepath.Join(dataDir, "backups")),
			ShareURL:  getEnv("TECHTIME_SHARE_URL", "dir://"+filepath.Join(dataDir, "outbox")),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		AppVersion: getEnv("APP_VERSION", "1.0.0"),
	}, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "techtime")
	}
	return "./data"
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Storage.DSN == "" {
		return NewAppError("CONFIG_ERROR", "TECHTIME_DSN is required", ErrInvalidInput)
	}
	switch c.OCR.Provider {
	case constants.ProviderVision, constants.ProviderMock, constants.ProviderTesseract, constants.ProviderNone:
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown OCR_PROVIDER %q", c.OCR.Provider), ErrInvalidInput)
	}
	if c.OCR.Timeout <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.OCR.MaxRetries < 0 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_RETRIES must not be negative", ErrInvalidInput)
	}
	if c.Backup.Directory == "" {
		return NewAppError("CONFIG_ERROR", "TECHTIME_BACKUP_DIR is required", ErrInvalidInput)
	}
	return nil
}
