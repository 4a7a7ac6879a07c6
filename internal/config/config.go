package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/viper"

	"classattend/internal/attendance"
)

// App holds the runtime configuration. It is read once at startup.
type App struct {
	Env                 string        `mapstructure:"APP_ENV"`
	HTTPPort            string        `mapstructure:"HTTP_PORT"`
	StoreDriver         string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	RedisAddr           string        `mapstructure:"REDIS_ADDR"`
	TimeZone            string        `mapstructure:"TIME_ZONE"`
	CutoffHour          int           `mapstructure:"CUTOFF_HOUR"`
	CutoffMinute        int           `mapstructure:"CUTOFF_MINUTE"`
	AdminCode           string        `mapstructure:"ADMIN_CODE"`
	AdminCodeHash       string        `mapstructure:"ADMIN_CODE_HASH"`
	AdminTTL            time.Duration `mapstructure:"ADMIN_TTL"`
	TokenSigningKey     string        `mapstructure:"TOKEN_SIGNING_KEY"`
	TokenIssuer         string        `mapstructure:"TOKEN_ISSUER"`
	SessionSecret       string        `mapstructure:"SESSION_SECRET"`
	RateLimitPerMin     int           `mapstructure:"RATE_LIMIT_PER_MIN"`
	WalkUpRequiresAdmin bool          `mapstructure:"WALKUP_REQUIRES_ADMIN"`
	PublicBaseURL       string        `mapstructure:"PUBLIC_BASE_URL"`
	AllowedOrigins      []string      `mapstructure:"ALLOWED_ORIGINS"`
}

var defaults = map[string]any{
	"APP_ENV":               "dev",
	"HTTP_PORT":             "8081",
	"STORE_DRIVER":          "sqlite3",
	"DATABASE_URL":          "attendance.db",
	"REDIS_ADDR":            "",
	"TIME_ZONE":             "Asia/Bangkok",
	"CUTOFF_HOUR":           8,
	"CUTOFF_MINUTE":         35,
	"ADMIN_CODE":            "",
	"ADMIN_CODE_HASH":       "",
	"ADMIN_TTL":             "12h",
	"TOKEN_SIGNING_KEY":     "dev-signing-secret-change",
	"TOKEN_ISSUER":          "attendance-engine",
	"SESSION_SECRET":        "dev-session-secret-change",
	"RATE_LIMIT_PER_MIN":    120,
	"WALKUP_REQUIRES_ADMIN": true,
	"PUBLIC_BASE_URL":       "",
	"ALLOWED_ORIGINS":       "*",
}

// Load reads configuration from the environment and, when configFile is not
// empty, from that file. Environment variables win.
func Load(configFile string) (App, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return App{}, fmt.Errorf("v.ReadInConfig -> %w", err)
		}
	}
	v.AutomaticEnv()

	var app App
	if err := v.Unmarshal(&app); err != nil {
		return App{}, fmt.Errorf("v.Unmarshal -> %w", err)
	}
	app.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))
	app.StoreDriver = strings.ToLower(strings.TrimSpace(app.StoreDriver))

	if err := app.Validate(); err != nil {
		return App{}, fmt.Errorf("invalid config -> %w", err)
	}
	return app, nil
}

// Validate checks that the configuration can run the service.
func (a App) Validate() error {
	err := validation.ValidateStruct(&a,
		validation.Field(&a.HTTPPort, validation.Required),
		validation.Field(&a.StoreDriver, validation.Required, validation.In("sqlite3", "pgx")),
		validation.Field(&a.DatabaseURL, validation.Required),
		validation.Field(&a.TimeZone, validation.Required),
		validation.Field(&a.TokenSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&a.SessionSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&a.RateLimitPerMin, validation.Min(1)),
	)
	if err != nil {
		return err
	}
	if err := a.Cutoff().Validate(); err != nil {
		return err
	}
	if a.AdminCode == "" && a.AdminCodeHash == "" {
		return fmt.Errorf("ADMIN_CODE or ADMIN_CODE_HASH must be set")
	}
	if _, err := a.Location(); err != nil {
		return err
	}
	return nil
}

// Cutoff is the configured late threshold.
func (a App) Cutoff() attendance.Cutoff {
	return attendance.Cutoff{Hour: a.CutoffHour, Minute: a.CutoffMinute}
}

// Location resolves the attendance time zone.
func (a App) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time.LoadLocation(%q) -> %w", a.TimeZone, err)
	}
	return loc, nil
}

// Production reports whether the service runs in a production environment.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
