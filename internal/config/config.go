package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Logger         LoggerConfig
	Auth           AuthConfig
	Payment        PaymentConfig
	S3             S3Config
	CouponImport   CouponImportConfig
	Kafka          KafkaConfig
	RateLimit      RateLimitConfig
	Registration   RegistrationConfig
	ThirdPartyAuth ThirdPartyAuthConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds session token configuration.
type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	Issuer       string
	SecureCookie bool
}

// PaymentConfig holds settings for the payment processor.
type PaymentConfig struct {
	SharedSecret string
	PaymentURL   string
	Currency     string
}

// S3Config holds AWS S3 configuration for coupon import files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "coupons/")
}

// CouponImportConfig holds the local directory coupon import files are read from.
type CouponImportConfig struct {
	Dir string
}

// KafkaConfig holds settings for the commerce event publisher.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// RateLimitConfig bounds registration code redemption attempts per client.
type RateLimitConfig struct {
	Attempts int
	Window   time.Duration
	// TrustedProxies lists the IPs or CIDR ranges whose forwarding headers
	// name the client. Requests from anywhere else are keyed by peer address.
	TrustedProxies []string
}

// RegistrationConfig controls the registration form.
type RegistrationConfig struct {
	PlatformName string
	// ExtraFields maps an optional field name to required, optional or hidden.
	ExtraFields map[string]string
}

// OAuth client types.
const (
	ClientPublic       = "public"
	ClientConfidential = "confidential"
)

// ThirdPartyAuthConfig controls third-party sign-in and access token exchange.
type ThirdPartyAuthConfig struct {
	Enabled   bool
	Providers []string
	// UserInfoURLs maps a provider backend to its OAuth2 userinfo endpoint.
	UserInfoURLs map[string]string
	// Clients maps an OAuth client ID to its type, public or confidential.
	Clients map[string]string
}

// Field visibility values for RegistrationConfig.ExtraFields.
const (
	FieldRequired = "required"
	FieldOptional = "optional"
	FieldHidden   = "hidden"
)

// ExtraFieldNames lists the configurable registration fields in display order.
var ExtraFieldNames = []string{
	"city",
	"country",
	"gender",
	"year_of_birth",
	"level_of_education",
	"mailing_address",
	"goals",
	"honor_code",
	"terms_of_service",
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "coursecart"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TokenTTL:     getEnvAsDuration("JWT_TTL", 24*time.Hour),
			Issuer:       getEnv("JWT_ISSUER", "coursecart"),
			SecureCookie: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Payment: PaymentConfig{
			SharedSecret: getEnv("PAYMENT_SHARED_SECRET", ""),
			PaymentURL:   getEnv("PAYMENT_URL", "/shoppingcart/payment_fake"),
			Currency:     strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "coupons/"),
		},
		CouponImport: CouponImportConfig{
			Dir: getEnv("COUPON_IMPORT_DIR", "data/coupons"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "shoppingcart.events"),
		},
		RateLimit: RateLimitConfig{
			Attempts:       getEnvAsInt("REDEEM_RATE_LIMIT", 30),
			Window:         getEnvAsDuration("REDEEM_RATE_WINDOW", 300*time.Second),
			TrustedProxies: getEnvAsList("RATE_LIMIT_TRUSTED_PROXIES", nil),
		},
		Registration: RegistrationConfig{
			PlatformName: getEnv("PLATFORM_NAME", "Course Cart"),
			ExtraFields:  parseExtraFields(getEnv("REGISTRATION_EXTRA_FIELDS", "")),
		},
		ThirdPartyAuth: ThirdPartyAuthConfig{
			Enabled:      getEnvAsBool("THIRD_PARTY_AUTH_ENABLED", false),
			Providers:    getEnvAsList("THIRD_PARTY_AUTH_PROVIDERS", nil),
			UserInfoURLs: parsePairs(getEnv("THIRD_PARTY_AUTH_USERINFO_URLS", "")),
			Clients:      parsePairs(getEnv("OAUTH_CLIENTS", "")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive")
	}

	if c.Payment.SharedSecret == "" {
		return fmt.Errorf("payment shared secret is required")
	}

	if len(c.Payment.Currency) != 3 {
		return fmt.Errorf("invalid payment currency: %s", c.Payment.Currency)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	if c.RateLimit.Attempts < 1 {
		return fmt.Errorf("rate limit attempts must be at least 1")
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}

	if _, err := c.RateLimit.TrustedProxyPrefixes(); err != nil {
		return err
	}

	if c.CouponImport.Dir == "" {
		return fmt.Errorf("coupon import directory is required")
	}

	for backend, raw := range c.ThirdPartyAuth.UserInfoURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return fmt.Errorf("invalid userinfo URL for provider %s: %q", backend, raw)
		}
	}

	for clientID, kind := range c.ThirdPartyAuth.Clients {
		if kind != ClientPublic && kind != ClientConfidential {
			return fmt.Errorf("OAuth client %s must be either public or confidential", clientID)
		}
	}

	known := make(map[string]bool, len(ExtraFieldNames))
	for _, name := range ExtraFieldNames {
		known[name] = true
	}
	for name, visibility := range c.Registration.ExtraFields {
		if !known[name] {
			return fmt.Errorf("unknown registration field: %s", name)
		}
		if visibility != FieldRequired && visibility != FieldOptional && visibility != FieldHidden {
			return fmt.Errorf("registration field %s must be either required, optional, or hidden", name)
		}
	}

	return nil
}

// FieldVisibility returns how the named extra registration field is shown.
// The honor code is required unless configured otherwise; every other field
// is hidden by default.
func (c *RegistrationConfig) FieldVisibility(name string) string {
	if v, ok := c.ExtraFields[name]; ok {
		return v
	}
	if name == "honor_code" {
		return FieldRequired
	}
	return FieldHidden
}

// ProviderEnabled reports whether the named third-party auth provider is active.
func (c *ThirdPartyAuthConfig) ProviderEnabled(name string) bool {
	if !c.Enabled {
		return false
	}
	for _, p := range c.Providers {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// TrustedProxyPrefixes parses TrustedProxies. Bare addresses become
// single-host prefixes.
func (c *RateLimitConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// ClientType returns the type of a registered OAuth client.
func (c *ThirdPartyAuthConfig) ClientType(clientID string) (string, bool) {
	kind, ok := c.Clients[clientID]
	return kind, ok
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// parseExtraFields parses "city=required,country=optional" pairs.
func parseExtraFields(raw string) map[string]string {
	fields := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, visibility, found := strings.Cut(pair, "=")
		if !found {
			visibility = FieldOptional
		}
		fields[strings.TrimSpace(name)] = strings.ToLower(strings.TrimSpace(visibility))
	}
	return fields
}

// parsePairs parses "key=value,key2=value2" lists. Values keep their case.
func parsePairs(raw string) map[string]string {
	pairs := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found || strings.TrimSpace(name) == "" {
			continue
		}
		pairs[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return pairs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("5m") or plain seconds ("300").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
