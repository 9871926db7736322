package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers selectable through STORE_DRIVER.
const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
)

const (
	defaultJWTAccessSecret  = "a-very-secret-key-should-be-longer-and-random"
	defaultJWTRefreshSecret = "default_insecure_refresh_secret_please_change_this_!@#$"
)

// Config holds application configuration.
type Config struct {
	Port         string
	IsProduction bool
	LogLevel     string

	// Credential store
	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	StoreTimeout  time.Duration

	// Tokens
	JWTIssuer                string
	JWTAccessSecret          string
	JWTAccessExpiryDuration  time.Duration
	JWTRefreshSecret         string
	JWTRefreshExpiryDuration time.Duration
	EmailVerificationTTL     time.Duration
	PasswordResetTTL         time.Duration
	BcryptCost               int

	// External OAuth Providers
	GoogleClientID        string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL     string `mapstructure:"GOOGLE_REDIRECT_URL"`
	FacebookClientID      string `mapstructure:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret  string `mapstructure:"FACEBOOK_CLIENT_SECRET"`
	FacebookRedirectURL   string `mapstructure:"FACEBOOK_REDIRECT_URL"`
	OAuthTrustedProviders []string
	OAuthStateHashKey     string
	OAuthStateBlockKey    string
	FrontendBaseURL       string `mapstructure:"FRONTEND_BASE_URL"`

	// HTTP surface
	CORSAllowedOrigins []string
	AuthRateLimit      string

	// Analytics
	PosthogAPIKey   string
	PosthogEndpoint string
}

// GoogleEnabled reports whether Google sign-in has client credentials.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// FacebookEnabled reports whether Facebook sign-in has client credentials.
func (c *Config) FacebookEnabled() bool {
	return c.FacebookClientID != "" && c.FacebookClientSecret != ""
}

// IsTrustedProvider reports whether a provider's email verification claim is accepted.
func (c *Config) IsTrustedProvider(provider string) bool {
	for _, p := range c.OAuthTrustedProviders {
		if strings.EqualFold(p, provider) {
			return true
		}
	}
	return false
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORE_DRIVER", StoreDriverMongo)
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "auth_service")
	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("STORE_TIMEOUT", "5s")
	viper.SetDefault("JWT_ISSUER", "auth-service")
	viper.SetDefault("JWT_ACCESS_SECRET", "")
	viper.SetDefault("JWT_ACCESS_EXPIRY_DURATION", "15m")
	viper.SetDefault("JWT_REFRESH_SECRET", "")
	viper.SetDefault("JWT_REFRESH_EXPIRY_DURATION", "168h")
	viper.SetDefault("EMAIL_VERIFICATION_TTL", "24h")
	viper.SetDefault("PASSWORD_RESET_TTL", "1h")
	viper.SetDefault("BCRYPT_COST", 12)
	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("GOOGLE_CLIENT_SECRET", "")
	viper.SetDefault("GOOGLE_REDIRECT_URL", "")
	viper.SetDefault("FACEBOOK_CLIENT_ID", "")
	viper.SetDefault("FACEBOOK_CLIENT_SECRET", "")
	viper.SetDefault("FACEBOOK_REDIRECT_URL", "")
	viper.SetDefault("OAUTH_TRUSTED_PROVIDERS", "google")
	viper.SetDefault("OAUTH_STATE_HASH_KEY", "")
	viper.SetDefault("OAUTH_STATE_BLOCK_KEY", "")
	viper.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("AUTH_RATE_LIMIT", "10-M")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "https://eu.i.posthog.com")

	// Environment variables override defaults and the .env file.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.LogLevel = strings.ToLower(viper.GetString("LOG_LEVEL"))

	cfg.StoreDriver = strings.ToLower(viper.GetString("STORE_DRIVER"))
	cfg.MongoURI = viper.GetString("MONGO_URI")
	cfg.MongoDatabase = viper.GetString("MONGO_DATABASE")
	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	switch cfg.StoreDriver {
	case StoreDriverMongo:
		if cfg.MongoURI == "" {
			return nil, errors.New("MONGO_URI must be set when STORE_DRIVER is mongo")
		}
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("PGSQL_URL must be set when STORE_DRIVER is postgres")
		}
	default:
		return nil, errors.New("STORE_DRIVER must be one of: mongo, postgres")
	}
	cfg.StoreTimeout = parseDuration("STORE_TIMEOUT", 5*time.Second)

	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "auth-service" // Default JWT issuer
		log.Printf("Warning: JWT_ISSUER not set. Defaulting to %s.\n", cfg.JWTIssuer)
	}

	cfg.JWTAccessSecret = viper.GetString("JWT_ACCESS_SECRET")
	cfg.JWTRefreshSecret = viper.GetString("JWT_REFRESH_SECRET")
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		if cfg.IsProduction {
			return nil, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set in production")
		}
		log.Println("Warning: JWT secrets not set. Using default insecure keys. THIS IS NOT FOR PRODUCTION.")
		if cfg.JWTAccessSecret == "" {
			cfg.JWTAccessSecret = defaultJWTAccessSecret
		}
		if cfg.JWTRefreshSecret == "" {
			cfg.JWTRefreshSecret = defaultJWTRefreshSecret
		}
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		log.Println("Warning: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are identical.")
	}

	cfg.JWTAccessExpiryDuration = parseDuration("JWT_ACCESS_EXPIRY_DURATION", 15*time.Minute)
	cfg.JWTRefreshExpiryDuration = parseDuration("JWT_REFRESH_EXPIRY_DURATION", 7*24*time.Hour)
	cfg.EmailVerificationTTL = parseDuration("EMAIL_VERIFICATION_TTL", 24*time.Hour)
	cfg.PasswordResetTTL = parseDuration("PASSWORD_RESET_TTL", time.Hour)
	cfg.BcryptCost = viper.GetInt("BCRYPT_COST")

	cfg.GoogleClientID = viper.GetString("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = viper.GetString("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = viper.GetString("GOOGLE_REDIRECT_URL")
	cfg.FacebookClientID = viper.GetString("FACEBOOK_CLIENT_ID")
	cfg.FacebookClientSecret = viper.GetString("FACEBOOK_CLIENT_SECRET")
	cfg.FacebookRedirectURL = viper.GetString("FACEBOOK_REDIRECT_URL")
	cfg.OAuthTrustedProviders = splitList(viper.GetString("OAUTH_TRUSTED_PROVIDERS"))
	cfg.FrontendBaseURL = strings.TrimRight(viper.GetString("FRONTEND_BASE_URL"), "/")

	// Log warnings for missing OAuth ENV variables
	if !cfg.GoogleEnabled() {
		log.Println("Warning: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set. Google OAuth will not function.")
	}
	if !cfg.FacebookEnabled() {
		log.Println("Warning: FACEBOOK_CLIENT_ID or FACEBOOK_CLIENT_SECRET not set. Facebook OAuth will not function.")
	}

	cfg.OAuthStateHashKey = viper.GetString("OAUTH_STATE_HASH_KEY")
	cfg.OAuthStateBlockKey = viper.GetString("OAUTH_STATE_BLOCK_KEY")
	if cfg.OAuthStateHashKey == "" && cfg.IsProduction && (cfg.GoogleEnabled() || cfg.FacebookEnabled()) {
		return nil, errors.New("OAUTH_STATE_HASH_KEY must be set in production when OAuth is enabled")
	}
	if n := len(cfg.OAuthStateBlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, errors.New("OAUTH_STATE_BLOCK_KEY must be 16, 24 or 32 bytes long")
	}

	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{cfg.FrontendBaseURL}
	}
	cfg.AuthRateLimit = viper.GetString("AUTH_RATE_LIMIT")

	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.PosthogEndpoint = viper.GetString("POSTHOG_ENDPOINT")

	return cfg, nil
}

// parseDuration reads a duration key, falling back to def with a warning when it is invalid.
func parseDuration(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
