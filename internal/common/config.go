package common

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Storage    StorageConfig
	Recognizer RecognizerConfig
	Pipeline   PipelineConfig
	Auth       AuthConfig
}

// DatabaseConfig holds document-store configuration
type DatabaseConfig struct {
	Driver           string // "postgres" or "sqlite"
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr        string
	MaxUploadMB int
}

// StorageConfig holds blob-store configuration
type StorageConfig struct {
	Backend   string // "s3" or "local"
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	BasePath  string // local backend root
}

// RecognizerConfig holds text-recognizer configuration
type RecognizerConfig struct {
	Provider        string // "vision" or "tesseract"
	CredentialsFile string
	Tesseract       string
	TesseractLang   string
	Timeout         time.Duration
}

// PipelineConfig holds extraction thresholds and worker settings
type PipelineConfig struct {
	MinConfidence  float32
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// fileConfig is the optional YAML overlay shape; any value present here wins
// over the environment.
type fileConfig struct {
	DBURL        string `yaml:"DB_URL"`
	JWTSecret    string `yaml:"JWT_SECRET"`
	S3Bucket     string `yaml:"S3_BUCKET"`
	S3Region     string `yaml:"S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`
	Credentials  string `yaml:"GOOGLE_CREDENTIALS_FILE"`
}

// LoadConfig loads configuration from environment variables, with an optional
// YAML file overlay (path may be empty).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "./expense-tracker.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			Addr:        getEnv("HTTP_ADDR", ":8080"),
			MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", 20),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "us-east-1"),
			AccessKey: getEnv("AWS_ACCESS_KEY", ""),
			SecretKey: getEnv("AWS_SECRET_KEY", ""),
			BasePath:  getEnv("STORAGE_PATH", "./receipts"),
		},
		Recognizer: RecognizerConfig{
			Provider:        getEnv("RECOGNIZER", "tesseract"),
			CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
			Tesseract:       getEnv("TESSERACT", "tesseract"),
			TesseractLang:   getEnv("TESSERACT_LANG", "eng"),
			Timeout:         getEnvAsDuration("RECOGNIZER_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			MinConfidence:  getEnvAsFloat32("MIN_CONFIDENCE", 0.5),
			Workers:        getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:      getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PIPELINE_TIMEOUT", 2*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "expense-tracker"),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 2*time.Hour),
		},
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapError(err, "read config file")
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return WrapError(err, "parse config file")
	}
	if fc.DBURL != "" {
		c.Database.DSN = fc.DBURL
	}
	if fc.JWTSecret != "" {
		c.Auth.JWTSecret = fc.JWTSecret
	}
	if fc.S3Bucket != "" {
		c.Storage.Bucket = fc.S3Bucket
	}
	if fc.S3Region != "" {
		c.Storage.Region = fc.S3Region
	}
	if fc.AWSAccessKey != "" {
		c.Storage.AccessKey = fc.AWSAccessKey
	}
	if fc.AWSSecretKey != "" {
		c.Storage.SecretKey = fc.AWSSecretKey
	}
	if fc.Credentials != "" {
		c.Recognizer.CredentialsFile = fc.Credentials
	}
	return nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrInvalidInput)
	}
	if c.Storage.Backend == "s3" && c.Storage.Bucket == "" {
		return NewAppError("CONFIG_ERROR", "S3_BUCKET is required for the s3 backend", ErrInvalidInput)
	}
	if c.Auth.JWTSecret == "" {
		return NewAppError("CONFIG_ERROR", "JWT_SECRET is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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
