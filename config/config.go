package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the interaction server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	PublicURL string `mapstructure:"PUBLIC_URL"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	OtelExporterEndpoint string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	OtelServiceName      string `mapstructure:"OTEL_SERVICE_NAME"`

	// Session cookie signing.
	SessionSecretKey       string        `mapstructure:"SESSION_SECRET_KEY"`
	SessionCookieName      string        `mapstructure:"SESSION_COOKIE_NAME"`
	SessionLifetime        time.Duration `mapstructure:"SESSION_LIFETIME"`
	RememberMeLifetime     time.Duration `mapstructure:"REMEMBER_ME_LIFETIME"`
	SecureCookies          bool          `mapstructure:"SECURE_COOKIES"`
	BcryptCost             int           `mapstructure:"BCRYPT_COST"`
	AssertionTTL           time.Duration `mapstructure:"ASSERTION_TTL"`
	AllowedRedirectOrigins []string      `mapstructure:"ALLOWED_REDIRECT_ORIGINS"`

	// Account behavior toggles surfaced on the login and logout screens.
	AllowLocalLogin              bool `mapstructure:"ALLOW_LOCAL_LOGIN"`
	AllowRememberLogin           bool `mapstructure:"ALLOW_REMEMBER_LOGIN"`
	ShowLogoutPrompt             bool `mapstructure:"SHOW_LOGOUT_PROMPT"`
	AutomaticRedirectAfterLogout bool `mapstructure:"AUTOMATIC_REDIRECT_AFTER_LOGOUT"`

	Providers []ProviderConfig `mapstructure:"PROVIDERS"`
}

// ProviderConfig describes one upstream identity provider.
type ProviderConfig struct {
	Name          string   `mapstructure:"name"`
	DisplayName   string   `mapstructure:"display_name"`
	Type          string   `mapstructure:"type"` // "oidc" or "github"
	ClientID      string   `mapstructure:"client_id"`
	ClientSecret  string   `mapstructure:"client_secret"`
	Issuer        string   `mapstructure:"issuer"`
	AuthURL       string   `mapstructure:"auth_url"`
	TokenURL      string   `mapstructure:"token_url"`
	UserInfoURL   string   `mapstructure:"userinfo_url"`
	EndSessionURL string   `mapstructure:"end_session_url"`
	Scopes        []string `mapstructure:"scopes"`
	RedirectURL   string   `mapstructure:"redirect_url"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults, in that order of increasing precedence for env vars.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mimoto/")
	v.AddConfigPath("$HOME/.mimoto")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/mimoto_dev")
	v.SetDefault("MONGO_DB_NAME", "mimoto_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "mimoto-interaction")
	v.SetDefault("SESSION_COOKIE_NAME", "mimoto_session")
	v.SetDefault("SESSION_LIFETIME", "12h")
	v.SetDefault("REMEMBER_ME_LIFETIME", "720h")
	v.SetDefault("SECURE_COOKIES", false)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ASSERTION_TTL", "10m")
	v.SetDefault("ALLOW_LOCAL_LOGIN", true)
	v.SetDefault("ALLOW_REMEMBER_LOGIN", true)
	v.SetDefault("SHOW_LOGOUT_PROMPT", true)
	v.SetDefault("AUTOMATIC_REDIRECT_AFTER_LOGOUT", false)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars carry the
		// development setup. Anything else is a real failure.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if cfg.SessionSecretKey == "" {
		return nil, fmt.Errorf("SESSION_SECRET_KEY must be set")
	}
	return &cfg, nil
}
