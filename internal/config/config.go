package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mealbox/mealbox/pkg/logger"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	OAuth     OAuthConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// CORSOrigins lists the UI origins allowed to call the API; empty allows any.
	CORSOrigins []string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// OAuthConfig describes the identity provider. Endpoints are derived from
// Domain unless Discover is set, in which case the issuer's discovery
// document is used.
type OAuthConfig struct {
	Domain       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Audience     string
	Scopes       []string
	Discover     bool
}

// SessionConfig tunes the session lifecycle.
type SessionConfig struct {
	Namespace       string
	LoginCooldown   time.Duration
	ExpiryBuffer    time.Duration
	RefreshOnExpiry bool
	AuthTimeout     time.Duration
	BrowserCommand  string
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type LogConfig struct {
	Level string
	// File, when set, receives a copy of the log output.
	File string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "127.0.0.1")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "mealbox")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("OAUTH_REDIRECT_URI", "http://127.0.0.1:5002/callback")
	viper.SetDefault("OAUTH_SCOPES", "openid profile email offline_access")
	viper.SetDefault("SESSION_NAMESPACE", "mealbox:")
	viper.SetDefault("SESSION_LOGIN_COOLDOWN_MS", 1000)
	viper.SetDefault("SESSION_EXPIRY_BUFFER_SECONDS", 300)
	viper.SetDefault("SESSION_AUTH_TIMEOUT_SECONDS", 300)
	viper.SetDefault("RATE_LIMIT_RPS", 20)
	viper.SetDefault("RATE_LIMIT_BURST", 40)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  strings.Split(viper.GetString("SERVER_CORS_ORIGINS"), ","),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		OAuth: OAuthConfig{
			Domain:       strings.TrimRight(viper.GetString("OAUTH_DOMAIN"), "/"),
			ClientID:     viper.GetString("OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
			RedirectURI:  viper.GetString("OAUTH_REDIRECT_URI"),
			Audience:     viper.GetString("OAUTH_AUDIENCE"),
			Scopes:       strings.Fields(viper.GetString("OAUTH_SCOPES")),
			Discover:     viper.GetBool("OAUTH_DISCOVER"),
		},
		Session: SessionConfig{
			Namespace:       viper.GetString("SESSION_NAMESPACE"),
			LoginCooldown:   time.Duration(viper.GetInt("SESSION_LOGIN_COOLDOWN_MS")) * time.Millisecond,
			ExpiryBuffer:    time.Duration(viper.GetInt("SESSION_EXPIRY_BUFFER_SECONDS")) * time.Second,
			RefreshOnExpiry: viper.GetBool("SESSION_REFRESH_ON_EXPIRY"),
			AuthTimeout:     time.Duration(viper.GetInt("SESSION_AUTH_TIMEOUT_SECONDS")) * time.Second,
			BrowserCommand:  viper.GetString("SESSION_BROWSER_COMMAND"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
			File:  viper.GetString("LOG_FILE"),
		},
	}

	// Basic validation
	if cfg.OAuth.Domain == "" || cfg.OAuth.ClientID == "" {
		logger.Warnf("OAUTH_DOMAIN / OAUTH_CLIENT_ID not set; login will fail until the provider is configured")
	}

	return cfg, nil
}

// Issuer returns the provider's issuer URL.
func (o OAuthConfig) Issuer() string {
	if o.Domain == "" {
		return ""
	}
	if strings.HasPrefix(o.Domain, "http://") || strings.HasPrefix(o.Domain, "https://") {
		return o.Domain + "/"
	}
	return "https://" + o.Domain + "/"
}
