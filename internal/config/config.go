package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment mode.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

type Config struct {
	Env         Environment
	ListenAddr  string
	DatabaseURL string
	FrontendURL string
	BackendURL  string
	SessionTTL  time.Duration
	LogLevel    string

	Mail struct {
		Driver       string
		From         string
		SMTPAddr     string
		SMTPUsername string
		SMTPPassword string
		SMTPTimeout  time.Duration
		ResendAPIKey string
	}

	OAuth struct {
		GoogleClientID     string
		GoogleClientSecret string
		GitHubClientID     string
		GitHubClientSecret string
	}

	Admin struct {
		Email    string
		Password string
		// ListingAnyEnv enables the user listing outside development.
		ListingAnyEnv bool
	}

	PrometheusEnabled bool
	CSRFAuthKey       string
	TrustedOrigins    []string
	TrustedProxies    []string
	// NotFoundMasksForbidden renders access-denied outcomes as 404.
	NotFoundMasksForbidden bool

	LoginRatePerSecond float64
	LoginRateBurst     int
}

// IsDevelopment reports whether the deployment runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == Development
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BackendURL, "https://")
}

// Load reads the configuration from the environment. Callers load .env
// first (see cmd/server).
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.Env = Environment(strings.ToLower(getenvDefault("APP_ENV", string(Development))))
	if cfg.Env != Development && cfg.Env != Production {
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q (got %q)", Development, Production, cfg.Env))
	}
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", "sqlite:minicrm.db")
	cfg.FrontendURL = getenvDefault("FRONTEND_URL", "http://localhost:4321")
	cfg.BackendURL = getenvDefault("BACKEND_URL", "http://localhost:8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	var err error
	if cfg.SessionTTL, err = getenvDuration("SESSION_TTL", 7*24*time.Hour); err != nil {
		errs = append(errs, err)
	}

	cfg.Mail.Driver = strings.ToLower(getenvDefault("MAIL_DRIVER", "log"))
	cfg.Mail.From = getenvDefault("MAIL_FROM", "MiniCRM <noreply@minicrm.local>")
	cfg.Mail.SMTPAddr = os.Getenv("SMTP_ADDR")
	cfg.Mail.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.Mail.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	if cfg.Mail.SMTPTimeout, err = getenvDuration("SMTP_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	cfg.Mail.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	switch cfg.Mail.Driver {
	case "log":
	case "smtp":
		if cfg.Mail.SMTPAddr == "" {
			errs = append(errs, errors.New("SMTP_ADDR is required when MAIL_DRIVER=smtp"))
		}
	case "resend":
		if cfg.Mail.ResendAPIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required when MAIL_DRIVER=resend"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER must be log, smtp or resend (got %q)", cfg.Mail.Driver))
	}

	cfg.OAuth.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.OAuth.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.OAuth.GitHubClientID = os.Getenv("GITHUB_CLIENT_ID")
	cfg.OAuth.GitHubClientSecret = os.Getenv("GITHUB_CLIENT_SECRET")

	cfg.Admin.Email = strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	cfg.Admin.Password = os.Getenv("ADMIN_PASSWORD")
	cfg.Admin.ListingAnyEnv = getenvBool("ADMIN_USER_LISTING_ANY_ENV", false)

	cfg.PrometheusEnabled = getenvBool("PROMETHEUS_ENABLED", false)
	cfg.CSRFAuthKey = os.Getenv("CSRF_AUTH_KEY")
	if cfg.CSRFAuthKey != "" && len(cfg.CSRFAuthKey) < 32 {
		errs = append(errs, fmt.Errorf("CSRF_AUTH_KEY must be at least 32 characters long (got %d)", len(cfg.CSRFAuthKey)))
	}
	cfg.TrustedOrigins = getenvList("TRUSTED_ORIGINS")
	cfg.TrustedProxies = getenvList("TRUSTED_PROXIES")
	cfg.NotFoundMasksForbidden = getenvBool("NOT_FOUND_MASKS_FORBIDDEN", false)

	if cfg.LoginRatePerSecond, err = getenvFloat("LOGIN_RATE_PER_SECOND", 1); err != nil {
		errs = append(errs, err)
	}
	if cfg.LoginRateBurst, err = getenvInt("LOGIN_RATE_BURST", 5); err != nil {
		errs = append(errs, err)
	}

	if cfg.Env == Production && cfg.CSRFAuthKey == "" {
		errs = append(errs, errors.New("CSRF_AUTH_KEY is required when APP_ENV=production"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s must be an integer (got %q)", key, v)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s must be a number (got %q)", key, v)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a duration such as 30s or 24h (got %q)", key, v)
	}
	return d, nil
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}
