package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds client settings. Values come from defaults, then the optional
// TOML file, then the environment.
type Config struct {
	APIURL       string `toml:"api_url"`
	SocketURL    string `toml:"socket_url"`
	AuthGRPCAddr string `toml:"auth_grpc_addr"`
	Token        string `toml:"token"`
	IdentityDB   string `toml:"identity_db"`
	ViewAddr     string `toml:"view_addr"`
	Environment  string `toml:"environment"`

	LogLevel       string `toml:"log_level"`
	LogDevelopment bool   `toml:"log_development"`

	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	OTLPEndpoint string `toml:"otlp_endpoint"`

	TypingQuietMS int  `toml:"typing_quiet_ms"`
	DebugRoutes   bool `toml:"debug_routes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:        "http://localhost:5000",
		SocketURL:     "ws://localhost:5000/ws",
		AuthGRPCAddr:  "localhost:8084",
		IdentityDB:    "chat-client.db",
		ViewAddr:      "127.0.0.1:8090",
		Environment:   "local",
		LogLevel:      "info",
		AMQPExchange:  "client.events",
		TypingQuietMS: 3000,
	}
}

// Load reads the TOML file at path (skipped when empty or missing) and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api url is required")
	}
	if !strings.HasPrefix(c.SocketURL, "ws://") && !strings.HasPrefix(c.SocketURL, "wss://") {
		return fmt.Errorf("socket url must use ws or wss: %q", c.SocketURL)
	}
	if c.TypingQuietMS <= 0 {
		return fmt.Errorf("typing quiet period must be positive: %d", c.TypingQuietMS)
	}
	return nil
}

// TypingQuiet is the typing quiet period as a duration.
func (c Config) TypingQuiet() time.Duration {
	return time.Duration(c.TypingQuietMS) * time.Millisecond
}

func applyEnv(cfg *Config) {
	cfg.APIURL = getEnv("CHAT_API_URL", cfg.APIURL)
	cfg.SocketURL = getEnv("CHAT_SOCKET_URL", cfg.SocketURL)
	cfg.AuthGRPCAddr = getEnv("AUTH_GRPC_ADDR", cfg.AuthGRPCAddr)
	cfg.Token = getEnv("CHAT_TOKEN", cfg.Token)
	cfg.IdentityDB = getEnv("IDENTITY_DB", cfg.IdentityDB)
	cfg.ViewAddr = getEnv("VIEW_ADDR", cfg.ViewAddr)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogDevelopment = getEnvBool("LOG_DEVELOPMENT", cfg.LogDevelopment)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.TypingQuietMS = getEnvInt("TYPING_QUIET_MS", cfg.TypingQuietMS)
	cfg.DebugRoutes = getEnvBool("DEBUG_ROUTES", cfg.DebugRoutes)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
