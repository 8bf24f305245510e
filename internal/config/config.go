package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides
const EnvPrefix = "MODELFORGE"

// Config is the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" env:"SERVER"`
	Log         LogConfig         `yaml:"log" env:"LOG"`
	Data        DataConfig        `yaml:"data" env:"DATA"`
	User        UserConfig        `yaml:"user" env:"USER"`
	Interpreter InterpreterConfig `yaml:"interpreter" env:"INTERPRETER"`
	Database    DatabaseConfig    `yaml:"database" env:"DATABASE"`
	Redis       RedisConfig       `yaml:"redis" env:"REDIS"`
	ObjectStore ObjectStoreConfig `yaml:"object_store" env:"OBJECT_STORE"`
	Billing     BillingConfig     `yaml:"billing" env:"BILLING"`
	Auth        AuthConfig        `yaml:"auth" env:"AUTH"`
	Search      SearchConfig      `yaml:"search" env:"SEARCH"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
}

// LogConfig configures zap
type LogConfig struct {
	Level       string   `yaml:"level" env:"LEVEL"`
	Format      string   `yaml:"format" env:"FORMAT"` // json or console
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// DataConfig locates local files: the free-tier model store, printer profiles
// and the download fallback directory
type DataConfig struct {
	Dir         string `yaml:"dir" env:"DIR"`
	DownloadDir string `yaml:"download_dir" env:"DOWNLOAD_DIR"`
}

// UserConfig identifies the local user for CLI commands
type UserConfig struct {
	ID    string `yaml:"id" env:"ID"`
	Email string `yaml:"email" env:"EMAIL"`
}

// InterpreterConfig selects how prompts are interpreted
type InterpreterConfig struct {
	Mode     string        `yaml:"mode" env:"MODE"` // local or remote
	Provider string        `yaml:"provider" env:"PROVIDER"`
	APIKey   string        `yaml:"api_key" env:"API_KEY"`
	BaseURL  string        `yaml:"base_url" env:"BASE_URL"`
	Model    string        `yaml:"model" env:"MODEL"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// DatabaseConfig configures the relational store
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DRIVER"` // postgres, mysql, sqlite
	DSN             string        `yaml:"dsn" env:"DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// RedisConfig configures the key-value store. An empty address disables it.
type RedisConfig struct {
	Addr       string        `yaml:"addr" env:"ADDR"`
	Password   string        `yaml:"password" env:"PASSWORD"`
	DB         int           `yaml:"db" env:"DB"`
	PoolSize   int           `yaml:"pool_size" env:"POOL_SIZE"`
	DefaultTTL time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
}

// ObjectStoreConfig configures premium model file storage
type ObjectStoreConfig struct {
	Driver    string        `yaml:"driver" env:"DRIVER"` // fs or s3
	Dir       string        `yaml:"dir" env:"DIR"`
	Endpoint  string        `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string        `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string        `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string        `yaml:"bucket" env:"BUCKET"`
	Region    string        `yaml:"region" env:"REGION"`
	UseSSL    bool          `yaml:"use_ssl" env:"USE_SSL"`
	URLExpiry time.Duration `yaml:"url_expiry" env:"URL_EXPIRY"`
}

// BillingConfig configures the payment provider
type BillingConfig struct {
	SecretKey       string `yaml:"secret_key" env:"SECRET_KEY"`
	WebhookSecret   string `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	PriceID         string `yaml:"price_id" env:"PRICE_ID"`
	SuccessURL      string `yaml:"success_url" env:"SUCCESS_URL"`
	CancelURL       string `yaml:"cancel_url" env:"CANCEL_URL"`
	PortalReturnURL string `yaml:"portal_return_url" env:"PORTAL_RETURN_URL"`
}

// AuthConfig configures bearer token validation
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"ISSUER"`
	Audience  string `yaml:"audience" env:"AUDIENCE"`
}

// SearchConfig configures external model search
type SearchConfig struct {
	ThingiverseToken string        `yaml:"thingiverse_token" env:"THINGIVERSE_TOKEN"`
	ThingiverseURL   string        `yaml:"thingiverse_url" env:"THINGIVERSE_URL"`
	PrintablesURL    string        `yaml:"printables_url" env:"PRINTABLES_URL"`
	Limit            int           `yaml:"limit" env:"LIMIT"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Loader handles loading and validating YAML configuration files
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{envPrefix: EnvPrefix}
}

// WithConfigPath sets the YAML file to read. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load applies defaults, then the YAML file, then environment variables
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.resolvePaths()

	if err := l.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (l *Loader) Validate(cfg *Config) error {
	var errs []error

	switch cfg.Interpreter.Mode {
	case "local":
	case "remote":
		if cfg.Interpreter.Provider == "" {
			errs = append(errs, errors.New("interpreter.provider is required in remote mode"))
		}
		if cfg.Interpreter.APIKey == "" {
			errs = append(errs, errors.New("interpreter.api_key is required in remote mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("interpreter.mode must be local or remote, got %q", cfg.Interpreter.Mode))
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite, postgres or mysql, got %q", cfg.Database.Driver))
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.DSN == "" {
		errs = append(errs, fmt.Errorf("database.dsn is required for %s", cfg.Database.Driver))
	}

	switch cfg.ObjectStore.Driver {
	case "fs":
	case "s3":
		if cfg.ObjectStore.Endpoint == "" || cfg.ObjectStore.Bucket == "" {
			errs = append(errs, errors.New("object_store.endpoint and object_store.bucket are required for s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("object_store.driver must be fs or s3, got %q", cfg.ObjectStore.Driver))
	}

	switch cfg.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", cfg.Log.Format))
	}

	if cfg.Server.RateLimitRPS < 0 || cfg.Server.RateLimitBurst < 0 {
		errs = append(errs, errors.New("server rate limits must not be negative"))
	}
	if cfg.User.ID == "" {
		errs = append(errs, errors.New("user.id must not be empty"))
	}

	return errors.Join(errs...)
}

// resolvePaths fills directories derived from data.dir
func (c *Config) resolvePaths() {
	if c.ObjectStore.Dir == "" {
		c.ObjectStore.Dir = filepath.Join(c.Data.Dir, "objects")
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = filepath.Join(c.Data.Dir, "modelforge.db")
	}
}

// setFieldsFromEnv walks the struct and applies PREFIX_SECTION_FIELD variables
func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag
		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}
