package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const minSecretBytes = 32

type Config struct {
	Port      string
	Log       LogConfig
	DB        DBConfig
	Auth      AuthConfig
	Weather   WeatherConfig
	AI        AIConfig
	CORS      CORSConfig
	Locations LocationsConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type DBConfig struct {
	Driver string
	DSN    string
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type WeatherConfig struct {
	ForecastURL    string
	GeocodingURL   string
	Timeout        time.Duration
	StreamInterval time.Duration
}

type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LocationsConfig struct {
	// RequireAuth binds location routes to the caller's session.
	RequireAuth bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "app.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("weather.forecast_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("weather.geocoding_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("weather.timeout", 10*time.Second)
	v.SetDefault("weather.stream_interval", 5*time.Minute)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-5-mini")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("locations.require_auth", true)
}

// Load reads dir/config.yml (optional), a .env file in the working directory
// (optional) and the environment, in increasing precedence.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", filepath.Join(dir, "config.yml"), err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"auth.jwt_secret": "JWT_SECRET",
		"ai.api_key":      "OPENAI_API_KEY",
		"db.dsn":          "DATABASE_URL",
		"port":            "PORT",
	} {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := &Config{
		Port: v.GetString("port"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		DB: DBConfig{
			Driver: v.GetString("db.driver"),
			DSN:    v.GetString("db.dsn"),
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("auth.jwt_secret"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
			BcryptCost: v.GetInt("auth.bcrypt_cost"),
		},
		Weather: WeatherConfig{
			ForecastURL:    v.GetString("weather.forecast_url"),
			GeocodingURL:   v.GetString("weather.geocoding_url"),
			Timeout:        v.GetDuration("weather.timeout"),
			StreamInterval: v.GetDuration("weather.stream_interval"),
		},
		AI: AIConfig{
			APIKey:  v.GetString("ai.api_key"),
			BaseURL: v.GetString("ai.base_url"),
			Model:   v.GetString("ai.model"),
			Timeout: v.GetDuration("ai.timeout"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetStringSlice("cors.allowed_origins")),
		},
		Locations: LocationsConfig{
			RequireAuth: v.GetBool("locations.require_auth"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList flattens comma-separated entries so that env values like
// "a,b" behave like a YAML list.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < minSecretBytes {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", minSecretBytes)
	}
	switch strings.ToLower(c.DB.Driver) {
	case "sqlite", "postgres", "postgresql", "pgx":
	default:
		return fmt.Errorf("db.driver %q is not supported", c.DB.Driver)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	for name, d := range map[string]time.Duration{
		"weather.timeout":         c.Weather.Timeout,
		"weather.stream_interval": c.Weather.StreamInterval,
		"ai.timeout":              c.AI.Timeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
