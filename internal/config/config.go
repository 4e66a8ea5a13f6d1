package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	StorageDriverMemory = "memory"
	StorageDriverMinio  = "minio"
)

var ErrMissingAPIKey = errors.New("gemini api key is not set")

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level string
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type StorageConfig struct {
	Driver    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type SessionConfig struct {
	CookieName    string
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

type DiagnosticsConfig struct {
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	Log              LogConfig
	HTTP             HTTPConfig
	Gemini           GeminiConfig
	Storage          StorageConfig
	Redis            RedisConfig
	Session          SessionConfig
	Diagnostics      DiagnosticsConfig
	AllowCORSOrigins []string
}

// Load reads config.yaml (if any) and BACKPRO_* environment variables, then
// validates the result. A missing Gemini key is reported as ErrMissingAPIKey.
func Load() (*AppConfig, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDiagnostics loads the same sources for the diagnostics tail, which only
// needs Redis.
func LoadDiagnostics() (*AppConfig, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if cfg.Redis.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	return cfg, nil
}

func read() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("BACKPRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// API_KEY is the variable the hosted front end has always used.
	if err := v.BindEnv("gemini.apikey", "BACKPRO_GEMINI_APIKEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	switch c.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverMinio:
		if c.Storage.Endpoint == "" {
			return errors.New("storage endpoint is required for the minio driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "30s")
	v.SetDefault("http.writetimeout", "0s") // generation has no upper bound
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("gemini.model", "gemini-2.5-flash-image")
	v.SetDefault("gemini.baseurl", "")
	v.SetDefault("gemini.timeout", "0s")

	v.SetDefault("storage.driver", StorageDriverMemory)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "backpro-previews")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "backpro:diagnostics")
	v.SetDefault("redis.group", "backpro-diag")
	v.SetDefault("redis.consumer", "diag-1")

	v.SetDefault("session.cookiename", "backpro_session")
	v.SetDefault("session.idletimeout", "2h")
	v.SetDefault("session.sweepinterval", "5m")

	v.SetDefault("diagnostics.claiminterval", "30s")

	v.SetDefault("allowcorsorigins", "")
}
