package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"tradier-streamer/src/models"
	"tradier-streamer/src/stream"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRestBaseURL       = "https://api.tradier.com"
	DefaultStreamHTTPBaseURL = "https://stream.tradier.com"
	DefaultWSBaseURL         = "wss://ws.tradier.com"
	DefaultEventsPath        = "/v1/markets/events"
	DefaultAccountEventsPath = "/v1/accounts/events"
	DefaultSessionTTL        = 5 * time.Minute
)

const redacted = "[REDACTED]"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig

	// Warnings collects non-fatal problems found while loading (e.g. unparsable
	// env values that fell back to defaults). The caller logs them once a logger exists.
	Warnings []string
}

// -----------------------------------------------------------------------------

// DefaultModel returns the configuration used when nothing else is provided
func DefaultModel() models.MConfig {
	return models.MConfig{
		Name:      "tradier-streamer",
		LogLevel:  "INFO",
		Host:      "127.0.0.1",
		GRPC_Host: "127.0.0.1",
		RestAPI: models.MRestAPIConfig{
			BaseURL:        DefaultRestBaseURL,
			TimeoutSeconds: 30,
		},
		Streaming: models.MStreamingConfig{
			Kind:                     models.SessionKindMarket,
			HTTPBaseURL:              DefaultStreamHTTPBaseURL,
			WSBaseURL:                DefaultWSBaseURL,
			EventsPath:               DefaultEventsPath,
			ReconnectIntervalSeconds: 5,
			HandshakeTimeoutSeconds:  10,
			SessionTTL:               DefaultSessionTTL,
		},
		Publisher: models.MPublisherConfig{Type: "none"},
	}
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file, then applies
// environment overrides and validates the result
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data on top of the defaults
	modelConfig := DefaultModel()
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Environment wins over the file
	config.applyEnv()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// NewConfigFromEnv builds a Config from defaults and TRADIER_* environment variables only
func NewConfigFromEnv() (*Config, error) {
	return NewConfigFromModel(DefaultModel())
}

// -----------------------------------------------------------------------------

// NewConfigFromModel applies environment overrides to a caller-built model and validates it
func NewConfigFromModel(modelConfig models.MConfig) (*Config, error) {
	config := &Config{MConfig: &modelConfig}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// -----------------------------------------------------------------------------

// LoadEnvFile loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing files are ignored.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file '%s': %w", path, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// applyEnv overrides file values with TRADIER_* variables
func (c *Config) applyEnv() {
	c.Credentials.ClientID = c.getEnvString("TRADIER_CLIENT_ID", c.Credentials.ClientID)
	c.Credentials.ClientSecret = c.getEnvString("TRADIER_CLIENT_SECRET", c.Credentials.ClientSecret)
	c.Credentials.AccessToken = c.getEnvString("TRADIER_ACCESS_TOKEN", c.Credentials.AccessToken)
	c.Credentials.RefreshToken = c.getEnvString("TRADIER_REFRESH_TOKEN", c.Credentials.RefreshToken)

	c.RestAPI.BaseURL = c.getEnvString("TRADIER_REST_BASE_URL", c.RestAPI.BaseURL)
	c.RestAPI.TimeoutSeconds = c.getEnvInt("TRADIER_REST_TIMEOUT", c.RestAPI.TimeoutSeconds)

	c.Streaming.Kind = models.MSessionKind(c.getEnvString("TRADIER_STREAM_KIND", string(c.Streaming.Kind)))
	if symbols := os.Getenv("TRADIER_STREAM_SYMBOLS"); symbols != "" {
		c.Streaming.Market.Symbols = splitList(symbols)
	}
	c.Streaming.HTTPBaseURL = c.getEnvString("TRADIER_STREAM_HTTP_BASE_URL", c.Streaming.HTTPBaseURL)
	c.Streaming.WSBaseURL = c.getEnvString("TRADIER_WS_BASE_URL", c.Streaming.WSBaseURL)
	c.Streaming.EventsPath = c.getEnvString("TRADIER_STREAM_EVENTS_PATH", c.Streaming.EventsPath)
	c.Streaming.ReconnectIntervalSeconds = c.getEnvInt("TRADIER_STREAM_RECONNECT_INTERVAL", c.Streaming.ReconnectIntervalSeconds)
}

// -----------------------------------------------------------------------------

// splitList splits a comma separated value, trimming spaces around items
func splitList(value string) []string {
	items := strings.Split(value, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items
}

// -----------------------------------------------------------------------------

func (c *Config) getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// -----------------------------------------------------------------------------

func (c *Config) getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("failed to parse %s: %s, using default %d", key, value, fallback))
		return fallback
	}
	return parsed
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config name cannot be empty")
	}

	// Validate REST (handshake) configuration
	if c.RestAPI.BaseURL == "" {
		return fmt.Errorf("rest_api base_url cannot be empty")
	}
	if c.RestAPI.TimeoutSeconds <= 0 {
		return fmt.Errorf("rest_api timeout must be greater than 0")
	}

	// Validate streaming configuration
	switch c.Streaming.Kind {
	case "":
		c.Streaming.Kind = models.SessionKindMarket
	case models.SessionKindMarket, models.SessionKindAccount:
	default:
		return fmt.Errorf("unknown streaming kind '%s' (expected market or account)", c.Streaming.Kind)
	}
	if c.Streaming.Kind == models.SessionKindAccount && (c.Streaming.EventsPath == "" || c.Streaming.EventsPath == DefaultEventsPath) {
		c.Streaming.EventsPath = DefaultAccountEventsPath
	}
	if c.Streaming.EventsPath == "" {
		c.Streaming.EventsPath = DefaultEventsPath
	}
	if c.Streaming.ReconnectIntervalSeconds < 0 {
		return fmt.Errorf("reconnect interval cannot be negative")
	}
	if c.Streaming.SessionTTL <= 0 {
		c.Streaming.SessionTTL = DefaultSessionTTL
	}
	if c.Streaming.Kind == models.SessionKindMarket {
		if len(c.Streaming.Market.Symbols) == 0 {
			return fmt.Errorf("market streaming requires at least one symbol")
		}
		for i, symbol := range c.Streaming.Market.Symbols {
			if strings.TrimSpace(symbol) == "" {
				return fmt.Errorf("market symbol %d cannot be empty", i)
			}
		}
		// Filter tokens go through the same table used on the wire
		if _, err := stream.ParseFilters(c.Streaming.Market.Filters); err != nil {
			return fmt.Errorf("invalid market filters: %w", err)
		}
	}

	// Validate optional server ports (0 disables)
	if c.Port != 0 && (c.Port <= 1024 || c.Port > 65535) {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GRPC_Port != 0 && (c.GRPC_Port <= 1024 || c.GRPC_Port > 65535) {
		return fmt.Errorf("invalid gRPC port number: %d (must be between 1025 and 65535)", c.GRPC_Port)
	}

	// Validate publisher
	switch c.Publisher.Type {
	case "", "none":
	case "nats":
		if len(c.Publisher.NATS.Servers) == 0 {
			return fmt.Errorf("NATS servers list cannot be empty")
		}
	case "kafka":
		if len(c.Publisher.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers list cannot be empty")
		}
		if c.Publisher.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic cannot be empty")
		}
	default:
		return fmt.Errorf("unknown publisher type '%s'", c.Publisher.Type)
	}
	switch c.Publisher.Encoding {
	case "", "json", "gob":
	default:
		return fmt.Errorf("unknown publisher encoding '%s'", c.Publisher.Encoding)
	}

	// Validate storage
	switch c.Storage.DBType {
	case "":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unknown database type '%s'", c.Storage.DBType)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// interfaces.ICredentialsProvider
// -----------------------------------------------------------------------------

// GetBaseURL returns the REST base URL used by the session handshake
func (c *Config) GetBaseURL() string {
	return strings.TrimRight(c.RestAPI.BaseURL, "/")
}

// -----------------------------------------------------------------------------

// GetAccessToken returns the configured bearer token, if any
func (c *Config) GetAccessToken() (string, bool) {
	token := strings.TrimSpace(c.Credentials.AccessToken)
	return token, token != ""
}

// -----------------------------------------------------------------------------
// Derived values
// -----------------------------------------------------------------------------

// GetWSURL returns the websocket base URL joined with the events path
func (c *Config) GetWSURL() string {
	return c.Streaming.WSBaseURL + c.Streaming.EventsPath
}

// -----------------------------------------------------------------------------

// StreamURLOverride returns the URL the daemon dials instead of the one the
// handshake returned, or "" when use_handshake_url is set
func (c *Config) StreamURLOverride() string {
	if c.Streaming.UseHandshakeURL || c.Streaming.WSBaseURL == "" {
		return ""
	}
	return c.GetWSURL()
}

// -----------------------------------------------------------------------------

// GetHTTPURL returns the HTTP streaming base URL joined with the events path
func (c *Config) GetHTTPURL() string {
	return c.Streaming.HTTPBaseURL + c.Streaming.EventsPath
}

// -----------------------------------------------------------------------------

// RestTimeout returns the handshake request timeout
func (c *Config) RestTimeout() time.Duration {
	return time.Duration(c.RestAPI.TimeoutSeconds) * time.Second
}

// -----------------------------------------------------------------------------

// ReconnectInterval returns the pause between two daemon stream cycles
func (c *Config) ReconnectInterval() time.Duration {
	return time.Duration(c.Streaming.ReconnectIntervalSeconds) * time.Second
}

// -----------------------------------------------------------------------------

// HandshakeTimeout returns the websocket opening handshake timeout
func (c *Config) HandshakeTimeout() time.Duration {
	if c.Streaming.HandshakeTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Streaming.HandshakeTimeoutSeconds) * time.Second
}

// -----------------------------------------------------------------------------

// MarketFilters parses the configured filter tokens
func (c *Config) MarketFilters() ([]stream.FilterKind, error) {
	return stream.ParseFilters(c.Streaming.Market.Filters)
}

// -----------------------------------------------------------------------------

// String renders the configuration with every credential redacted
func (c *Config) String() string {
	secret := func(v string) string {
		if v == "" {
			return "null"
		}
		return `"` + redacted + `"`
	}

	return fmt.Sprintf(
		`{"name":"%s","credentials":{"client_id":"%s","client_secret":"%s","access_token":%s,"refresh_token":%s},`+
			`"rest_api":{"base_url":"%s","timeout":%d},`+
			`"streaming":{"kind":"%s","http_base_url":"%s","ws_base_url":"%s","events_path":"%s","reconnect_interval":%d}}`,
		c.Name,
		redacted, redacted, secret(c.Credentials.AccessToken), secret(c.Credentials.RefreshToken),
		c.RestAPI.BaseURL, c.RestAPI.TimeoutSeconds,
		c.Streaming.Kind, c.Streaming.HTTPBaseURL, c.Streaming.WSBaseURL, c.Streaming.EventsPath, c.Streaming.ReconnectIntervalSeconds,
	)
}
