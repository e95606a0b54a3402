// Package config loads the gateway configuration from defaults, config
// files, environment and flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/damacus/iron-dav/internal/services"
	"github.com/damacus/iron-dav/internal/utils"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "IRONDAV"

// Auth modes
const (
	AuthModeBasic = "basic"
	AuthModeFixed = "fixed"
)

// Backend drivers
const (
	DriverMinio = "minio"
	DriverS3    = "s3"
)

// Config is the root configuration struct
type Config struct {
	Env     string        `mapstructure:"env" validate:"required,oneof=dev prod production"`
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Backend BackendConfig `mapstructure:"backend"`
	WebDAV  WebDAVConfig  `mapstructure:"webdav"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize   string        `mapstructure:"max_upload_size" validate:"required,bytesize"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// MaxUploadBytes is MaxUploadSize in bytes. Load has already validated it.
func (s ServerConfig) MaxUploadBytes() int64 {
	n, _ := utils.ParseByteSize(s.MaxUploadSize)
	return n
}

// AuthConfig selects how backend credentials are obtained
type AuthConfig struct {
	Mode string `mapstructure:"mode" validate:"required,oneof=basic fixed"`
}

// BackendConfig describes the object store
type BackendConfig struct {
	Driver    string `mapstructure:"driver" validate:"required,oneof=minio s3"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
	Region    string `mapstructure:"region" validate:"required"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Services returns the endpoint settings used by the client factories
func (b BackendConfig) Services() services.BackendConfig {
	return services.BackendConfig{
		Endpoint:  b.Endpoint,
		PathStyle: b.PathStyle,
		Region:    b.Region,
	}
}

// Credentials returns the fixed-mode credentials
func (b BackendConfig) Credentials() services.Credentials {
	return services.Credentials{AccessKey: b.AccessKey, SecretKey: b.SecretKey}
}

// WebDAVConfig tunes protocol behaviour
type WebDAVConfig struct {
	DefaultBucket     string `mapstructure:"default_bucket"`
	StrictMkcol       bool   `mapstructure:"strict_mkcol"`
	Quota             bool   `mapstructure:"quota"`
	DeleteConcurrency int    `mapstructure:"delete_concurrency" validate:"min=1,max=256"`
}

// MetricsConfig toggles the /metrics endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// IsProd reports whether production logging applies
func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// flagToViperKey maps CLI flag names to viper configuration keys
var flagToViperKey = map[string]string{
	"port":            "server.port",
	"max-upload-size": "server.max_upload_size",
	"auth-mode":       "auth.mode",
	"driver":          "backend.driver",
	"endpoint":        "backend.endpoint",
	"path-style":      "backend.path_style",
	"region":          "backend.region",
	"default-bucket":  "webdav.default_bucket",
	"log-level":       "log.level",
}

// legacyEnv lists variable names honoured for compatibility with older
// deployments, after the prefixed name
var legacyEnv = map[string][]string{
	"backend.endpoint":   {"S3_ENDPOINT"},
	"backend.path_style": {"S3_FORCE_PATH_STYLE"},
	"backend.region":     {"AWS_REGION"},
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.max_upload_size", "10GiB")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("auth.mode", AuthModeBasic)

	v.SetDefault("backend.driver", DriverMinio)
	v.SetDefault("backend.endpoint", "")
	v.SetDefault("backend.path_style", false)
	v.SetDefault("backend.region", "us-east-1")
	v.SetDefault("backend.access_key", "")
	v.SetDefault("backend.secret_key", "")

	v.SetDefault("webdav.default_bucket", "")
	v.SetDefault("webdav.strict_mkcol", false)
	v.SetDefault("webdav.quota", false)
	v.SetDefault("webdav.delete_concurrency", services.DefaultDeleteConcurrency)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("log.level", "info")
}

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
		_, err := utils.ParseByteSize(fl.Field().String())
		return err == nil
	})
	return validate
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFiles[0], err)
		}
		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merge config %s: %w", cf, err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, prefixed}, names...)...)
	}

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := newValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
