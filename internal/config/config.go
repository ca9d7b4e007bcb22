package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MinJWTSecretLength is the shortest HMAC secret accepted for admin tokens
const MinJWTSecretLength = 32

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	DocStore      DocStoreConfig      `yaml:"docstore"`
	Database      DatabaseConfig      `yaml:"database"`
	Registrations RegistrationsConfig `yaml:"registrations"`
	Wallets       WalletsConfig       `yaml:"wallets"`
	Admin         AdminConfig         `yaml:"admin"`
	JWT           JWTConfig           `yaml:"jwt"`
	Redis         RedisConfig         `yaml:"redis"`
	Export        ExportConfig        `yaml:"export"`
	AWS           AWSConfig           `yaml:"aws"`
	Sheets        SheetsConfig        `yaml:"sheets"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	APNs          APNsConfig          `yaml:"apns"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// DocStoreConfig selects and configures the document store driver
type DocStoreConfig struct {
	Driver                  string        `yaml:"driver"` // appwrite, postgres or memory
	Endpoint                string        `yaml:"endpoint"`
	ProjectID               string        `yaml:"project_id"`
	APIKey                  string        `yaml:"api_key"`
	DatabaseID              string        `yaml:"database_id"`
	RegistrationsCollection string        `yaml:"registrations_collection"`
	WalletsCollection       string        `yaml:"wallets_collection"`
	PageLimit               int           `yaml:"page_limit"`
	Timeout                 time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds database configuration for the postgres driver
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RegistrationsConfig holds list view settings
type RegistrationsConfig struct {
	PageSize     int           `yaml:"page_size"`
	RecentWindow time.Duration `yaml:"recent_window"`
}

// WalletsConfig holds wallet form settings
type WalletsConfig struct {
	DeleteAfter time.Duration `yaml:"delete_after"`
}

// AdminConfig holds the coordinator login
type AdminConfig struct {
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// RedisConfig holds list cache configuration; an empty URL disables the cache
type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// ExportConfig selects the export sink: s3, sheets or empty for CSV download only
type ExportConfig struct {
	Sink string `yaml:"sink"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region    string        `yaml:"region"`
	S3Bucket  string        `yaml:"s3_bucket"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Endpoint  string        `yaml:"endpoint"`
	URLExpiry time.Duration `yaml:"url_expiry"`
}

// SheetsConfig holds Google Sheets export configuration
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

// TelegramConfig holds coordinator notification settings
type TelegramConfig struct {
	Token   string  `yaml:"token"`
	ChatIDs []int64 `yaml:"chat_ids"`
}

// APNsConfig holds push notification settings for the coordinators' app
type APNsConfig struct {
	KeyFile      string   `yaml:"key_file"`
	KeyID        string   `yaml:"key_id"`
	TeamID       string   `yaml:"team_id"`
	Topic        string   `yaml:"topic"`
	DeviceTokens []string `yaml:"device_tokens"`
	Production   bool     `yaml:"production"`
}

// Load reads configuration from a YAML file, overlays environment
// variables (a .env file is loaded first if present), applies defaults and
// validates the result. A missing file is not an error when the
// environment supplies everything needed.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("DOCSTORE_DRIVER", &c.DocStore.Driver)
	str("DOCSTORE_ENDPOINT", &c.DocStore.Endpoint)
	str("DOCSTORE_PROJECT_ID", &c.DocStore.ProjectID)
	str("DOCSTORE_API_KEY", &c.DocStore.APIKey)
	str("DATABASE_PASSWORD", &c.Database.Password)
	str("ADMIN_PASSWORD_HASH", &c.Admin.PasswordHash)
	str("JWT_SECRET", &c.JWT.Secret)
	str("REDIS_URL", &c.Redis.URL)
	str("AWS_ACCESS_KEY_ID", &c.AWS.AccessKey)
	str("AWS_SECRET_ACCESS_KEY", &c.AWS.SecretKey)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.Token)

	if v, ok := lookup("PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DocStore.Driver == "" {
		c.DocStore.Driver = "appwrite"
	}
	if c.DocStore.Endpoint == "" {
		c.DocStore.Endpoint = "https://cloud.appwrite.io/v1"
	}
	if c.DocStore.WalletsCollection == "" {
		c.DocStore.WalletsCollection = "wallets"
	}
	if c.DocStore.PageLimit <= 0 {
		c.DocStore.PageLimit = 100
	}
	if c.DocStore.Timeout <= 0 {
		c.DocStore.Timeout = 15 * time.Second
	}
	if c.Registrations.PageSize <= 0 {
		c.Registrations.PageSize = 5
	}
	if c.Registrations.RecentWindow <= 0 {
		c.Registrations.RecentWindow = 24 * time.Hour
	}
	if c.Wallets.DeleteAfter <= 0 {
		c.Wallets.DeleteAfter = 3 * time.Minute
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = 12 * time.Hour
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 30 * time.Second
	}
	if c.AWS.URLExpiry <= 0 {
		c.AWS.URLExpiry = 15 * time.Minute
	}
	if c.Sheets.SheetName == "" {
		c.Sheets.SheetName = "Registrations"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
}

// Validate checks that the selected drivers have what they need
func (c *Config) Validate() error {
	var problems []string

	switch c.DocStore.Driver {
	case "appwrite":
		if c.DocStore.ProjectID == "" {
			problems = append(problems, "docstore.project_id is required for the appwrite driver")
		}
	case "postgres":
		if c.Database.Host == "" {
			problems = append(problems, "database.host is required for the postgres driver")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown docstore driver %q", c.DocStore.Driver))
	}
	if c.DocStore.DatabaseID == "" {
		problems = append(problems, "docstore.database_id is required")
	}
	if c.DocStore.RegistrationsCollection == "" {
		problems = append(problems, "docstore.registrations_collection is required")
	}
	if c.DocStore.PageLimit > 100 {
		problems = append(problems, "docstore.page_limit must not exceed 100")
	}

	switch c.Export.Sink {
	case "", "csv":
	case "s3":
		if c.AWS.S3Bucket == "" {
			problems = append(problems, "aws.s3_bucket is required for the s3 export sink")
		}
	case "sheets":
		if c.Sheets.SpreadsheetID == "" || c.Sheets.CredentialsFile == "" {
			problems = append(problems, "sheets.spreadsheet_id and sheets.credentials_file are required for the sheets export sink")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown export sink %q", c.Export.Sink))
	}

	if c.Admin.PasswordHash != "" {
		switch {
		case c.JWT.Secret == "":
			problems = append(problems, "jwt.secret is required when admin login is enabled")
		case len(c.JWT.Secret) < MinJWTSecretLength:
			problems = append(problems, fmt.Sprintf("jwt.secret must be at least %d characters", MinJWTSecretLength))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
