package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port                 int              `json:"port"`
	JWTSecret            string           `json:"jwt_secret"`
	JWTTTLHours          int              `json:"jwt_ttl_hours"`
	VerifyCodeTTLMinutes int              `json:"verify_code_ttl_minutes"`
	CORSAllowlist        []string         `json:"cors_allowlist"`
	LogConfig            logger.LogConfig `json:"log_config"`
	Store                StoreConfig      `json:"store"`
	Mail                 MailConfig       `json:"mail"`
	AI                   AIConfig         `json:"ai"`
	Auth                 AuthConfig       `json:"auth"`
	Message              MessageConfig    `json:"message"`
}

type StoreConfig struct {
	Type     string         `json:"type"`
	Mongo    MongoConfig    `json:"mongo"`
	Postgres DatabaseConfig `json:"postgres"`
}

type MongoConfig struct {
	URI                   string `json:"uri"`
	Database              string `json:"database"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type MailConfig struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	AppName  string `json:"app_name"`
}

type AIConfig struct {
	Providers []AIProviderConfig `json:"providers"`
	Timeout   int                `json:"timeout"`
}

type AIProviderConfig struct {
	Name  string                 `json:"name"`
	Model string                 `json:"model"`
	Data  map[string]interface{} `json:"data"`
}

type AuthConfig struct {
	UnifySignInErrors bool `json:"unify_sign_in_errors"`
	CookieSecure      bool `json:"cookie_secure"`
}

type MessageConfig struct {
	MinLength int `json:"min_length"`
	MaxLength int `json:"max_length"`
}

// Load reads the JSON config at path, then applies .env files and process
// environment overrides. Missing .env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	ApplyEnv(&cfg, os.LookupEnv)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overlays connection strings and credentials from the environment.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("MONGODB_URI", &cfg.Store.Mongo.URI)
	str("DATABASE_URL", &cfg.Store.Postgres.DSN)
	str("SESSION_SECRET", &cfg.JWTSecret)
	str("SMTP_HOST", &cfg.Mail.Host)
	str("SMTP_USERNAME", &cfg.Mail.Username)
	str("SMTP_PASSWORD", &cfg.Mail.Password)
	str("SMTP_FROM", &cfg.Mail.From)
	if v, ok := lookup("SMTP_PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Mail.Port = port
		}
	}
	if v, ok := lookup("AI_API_KEY"); ok && strings.TrimSpace(v) != "" && len(cfg.AI.Providers) > 0 {
		p := &cfg.AI.Providers[0]
		if p.Data == nil {
			p.Data = map[string]interface{}{}
		}
		if existing, _ := p.Data["api_key"].(string); existing == "" {
			p.Data["api_key"] = strings.TrimSpace(v)
		}
	}
}

func (cfg *Config) normalize() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.VerifyCodeTTLMinutes == 0 {
		cfg.VerifyCodeTTLMinutes = 60
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Message.MinLength <= 0 {
		cfg.Message.MinLength = 1
	}
	if cfg.Message.MaxLength == 0 {
		cfg.Message.MaxLength = 300
	}
	if cfg.Message.MaxLength < cfg.Message.MinLength {
		return fmt.Errorf("message.max_length must be >= message.min_length")
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "mongo"
	}
	switch cfg.Store.Type {
	case "mongo":
		if cfg.Store.Mongo.URI == "" {
			return fmt.Errorf("store.mongo.uri (or MONGODB_URI) is required for mongo store")
		}
		if cfg.Store.Mongo.Database == "" {
			cfg.Store.Mongo.Database = "anonmsg"
		}
		if cfg.Store.Mongo.ConnectTimeoutSeconds == 0 {
			cfg.Store.Mongo.ConnectTimeoutSeconds = 10
		}
	case "postgres":
		pg := &cfg.Store.Postgres
		if pg.DSN == "" && (pg.Host == "" || pg.DBName == "") {
			return fmt.Errorf("store.postgres dsn or host/dbname are required for postgres store")
		}
		if pg.Port == 0 {
			pg.Port = 5432
		}
	case "memory":
	default:
		return fmt.Errorf("store.type must be mongo, postgres or memory")
	}
	if cfg.Mail.Type == "" {
		cfg.Mail.Type = "smtp"
	}
	switch cfg.Mail.Type {
	case "smtp":
		if cfg.Mail.Host == "" || cfg.Mail.Port == 0 || cfg.Mail.From == "" {
			return fmt.Errorf("mail host/port/from are required for smtp mail")
		}
	case "log":
	default:
		return fmt.Errorf("mail.type must be smtp or log")
	}
	if cfg.Mail.AppName == "" {
		cfg.Mail.AppName = "Anonymous Message"
	}
	return nil
}
