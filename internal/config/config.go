package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Database     DatabaseConfig    `json:"database"`
	Storage      StorageConfig     `json:"storage"`
	Certificates CertificateConfig `json:"certificates"`
	Import       ImportConfig      `json:"import"`
	Repair       RepairConfig      `json:"repair"`
	Logging      LoggingConfig     `json:"logging"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// StorageConfig selects the artifact store backend. Backend is "local" or
// "s3"; PublicBaseURL is the prefix under which stored artifacts are served.
type StorageConfig struct {
	Backend       string `json:"backend"`
	LocalDir      string `json:"local_dir"`
	S3Bucket      string `json:"s3_bucket"`
	PublicBaseURL string `json:"public_base_url"`
}

// CertificateConfig configures the generation pipeline.
type CertificateConfig struct {
	VerificationBaseURL string `json:"verification_base_url"`
	TemplatePath        string `json:"template_path"`
}

// ImportConfig configures bulk imports.
type ImportConfig struct {
	Workers     int    `json:"workers"`
	OnDuplicate string `json:"on_duplicate"`
}

// RepairConfig configures the artifact repair worker.
type RepairConfig struct {
	CronSpec  string `json:"cron_spec"`
	BatchSize int    `json:"batch_size"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "certificate_portal",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
		},
		Storage: StorageConfig{
			Backend:       "local",
			LocalDir:      "uploads",
			PublicBaseURL: "http://localhost:8080/uploads",
		},
		Certificates: CertificateConfig{
			VerificationBaseURL: "http://localhost:5173",
		},
		Import: ImportConfig{
			Workers:     1,
			OnDuplicate: "reject",
		},
		Repair: RepairConfig{
			CronSpec:  "@every 15m",
			BatchSize: 50,
		},
		Logging: LoggingConfig{Level: "info"},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if dir := os.Getenv("STORAGE_DIR"); dir != "" {
		config.Storage.LocalDir = dir
	}
	if bucket := os.Getenv("STORAGE_S3_BUCKET"); bucket != "" {
		config.Storage.S3Bucket = bucket
	}
	if baseURL := os.Getenv("STORAGE_PUBLIC_BASE_URL"); baseURL != "" {
		config.Storage.PublicBaseURL = baseURL
	}
	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		config.Certificates.VerificationBaseURL = clientURL
	}
	if tpl := os.Getenv("CERTIFICATE_TEMPLATE_PATH"); tpl != "" {
		config.Certificates.TemplatePath = tpl
	}
	if workers := os.Getenv("IMPORT_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Import.Workers = w
		}
	}
	if policy := os.Getenv("IMPORT_ON_DUPLICATE"); policy != "" {
		config.Import.OnDuplicate = policy
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}
