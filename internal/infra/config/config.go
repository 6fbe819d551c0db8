package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"

	envProduction = "production"
)

type Config struct {
	Env         string
	HTTPAddress string
	GRPCAddress string

	AccessTokenSecret  string
	RefreshTokenSecret string
	Issuer             string
	Audience           string

	UserStore     string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	PasswordPepper string

	CookieDomain     string
	AllowedOrigins   []string
	AllowCredentials bool
	TrustedProxies   []string

	HTTPSCertFile string
	HTTPSKeyFile  string

	RateLimitRPS   int
	RateLimitBurst int

	LogLevel string
}

// Production switches cookies to Secure.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, envProduction)
}

func (c *Config) TLSEnabled() bool {
	return c.HTTPSCertFile != "" && c.HTTPSKeyFile != ""
}

var keys = []string{
	"APP_ENV", "HTTP_ADDRESS", "GRPC_ADDRESS",
	"ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET", "JWT_ISSUER", "JWT_AUDIENCE",
	"USER_STORE", "MONGO_URI", "MONGO_DATABASE", "DATABASE_URL",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
	"PASSWORD_PEPPER", "COOKIE_DOMAIN", "ALLOWED_ORIGINS", "ALLOW_CREDENTIALS",
	"TRUSTED_PROXIES",
	"HTTPS_CERT_FILE", "HTTPS_KEY_FILE",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDRESS", ":3000")
	v.SetDefault("GRPC_ADDRESS", ":50051")
	v.SetDefault("USER_STORE", StoreMongo)
	v.SetDefault("MONGO_DATABASE", "ecommerce")
	v.SetDefault("ALLOW_CREDENTIALS", true)
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("LOG_LEVEL", "debug")

	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	origins, err := parseList(v.GetString("ALLOWED_ORIGINS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_ORIGINS: %w", err)
	}

	proxies, err := parseList(v.GetString("TRUSTED_PROXIES"))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	cfg := &Config{
		Env:                v.GetString("APP_ENV"),
		HTTPAddress:        v.GetString("HTTP_ADDRESS"),
		GRPCAddress:        v.GetString("GRPC_ADDRESS"),
		AccessTokenSecret:  v.GetString("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: v.GetString("REFRESH_TOKEN_SECRET"),
		Issuer:             v.GetString("JWT_ISSUER"),
		Audience:           v.GetString("JWT_AUDIENCE"),
		UserStore:          strings.ToLower(v.GetString("USER_STORE")),
		MongoURI:           v.GetString("MONGO_URI"),
		MongoDatabase:      v.GetString("MONGO_DATABASE"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		RedisAddress:       v.GetString("REDIS_ADDRESS"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		PasswordPepper:     v.GetString("PASSWORD_PEPPER"),
		CookieDomain:       v.GetString("COOKIE_DOMAIN"),
		AllowedOrigins:     origins,
		AllowCredentials:   v.GetBool("ALLOW_CREDENTIALS"),
		TrustedProxies:     proxies,
		HTTPSCertFile:      v.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:       v.GetString("HTTPS_KEY_FILE"),
		RateLimitRPS:       v.GetInt("RATE_LIMIT_RPS"),
		RateLimitBurst:     v.GetInt("RATE_LIMIT_BURST"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"ACCESS_TOKEN_SECRET":  c.AccessTokenSecret,
		"REFRESH_TOKEN_SECRET": c.RefreshTokenSecret,
		"REDIS_ADDRESS":        c.RedisAddress,
	}
	switch c.UserStore {
	case StoreMongo:
		required["MONGO_URI"] = c.MongoURI
	case StorePostgres:
		required["DATABASE_URL"] = c.DatabaseURL
	default:
		return fmt.Errorf("USER_STORE must be %q or %q, got %q", StoreMongo, StorePostgres, c.UserStore)
	}

	for k, val := range required {
		if val == "" {
			return fmt.Errorf("%s is not set", k)
		}
	}

	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// parseList accepts either a JSON array or a comma separated list.
func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
