package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CAPTIONER"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Recognize RecognizeConfig `mapstructure:"recognize"`
	Storage   StorageConfig   `mapstructure:"storage"`

	// TempDir is the parent of per-request workspaces, os.TempDir when empty.
	TempDir  string `mapstructure:"temp_dir"`
	FontsDir string `mapstructure:"fonts_dir"`
	MaxChars int    `mapstructure:"max_chars"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	LogLevel string `mapstructure:"log_level"`

	// RequestTimeout bounds synchronous requests, in seconds. Zero disables it.
	RequestTimeout int `mapstructure:"request_timeout"`
}

type RecognizeConfig struct {
	Provider      string `mapstructure:"provider"`
	Model         string `mapstructure:"model"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	ChunkDuration int    `mapstructure:"chunk_duration"`
	Concurrency   int    `mapstructure:"concurrency"`
}

type StorageConfig struct {
	Provider string   `mapstructure:"provider"`
	LocalDir string   `mapstructure:"local_dir"`
	BaseURL  string   `mapstructure:"base_url"`
	S3       S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`

	// PublicURL prefixes object keys in returned URLs. Defaults to the
	// virtual hosted bucket URL.
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

var defaults = map[string]any{
	"server.addr":                  ":8080",
	"server.log_level":             "info",
	"server.request_timeout":       0,
	"recognize.provider":           "openai",
	"recognize.model":              "",
	"recognize.openai_api_key":     "",
	"recognize.gemini_api_key":     "",
	"recognize.chunk_duration":     600,
	"recognize.concurrency":        4,
	"storage.provider":             "local",
	"storage.local_dir":            "./captioner-data",
	"storage.base_url":             "",
	"storage.s3.bucket":            "",
	"storage.s3.region":            "",
	"storage.s3.endpoint":          "",
	"storage.s3.access_key_id":     "",
	"storage.s3.secret_access_key": "",
	"storage.s3.use_path_style":    false,
	"storage.s3.public_url":        "",
	"storage.s3.prefix":            "",
	"temp_dir":                     "",
	"fonts_dir":                    "",
	"max_chars":                    56,
}

// provider keys also read from their conventional unprefixed variables
var extraEnv = map[string][]string{
	"recognize.openai_api_key":     {"OPENAI_API_KEY"},
	"recognize.gemini_api_key":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"storage.s3.access_key_id":     {"AWS_ACCESS_KEY_ID"},
	"storage.s3.secret_access_key": {"AWS_SECRET_ACCESS_KEY"},
	"storage.s3.region":            {"AWS_REGION"},
}

type loaderOptions struct {
	configFile string
	envFile    string
	flags      map[string]*pflag.Flag
}

type Option func(*loaderOptions)

// WithConfigFile reads a YAML/TOML/JSON file. A missing explicit file is
// an error.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile loads a dotenv file before reading the environment. Missing
// files are ignored.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithFlag binds a command line flag to key. Flags override every other
// source when set.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(o *loaderOptions) {
		if flag == nil {
			return
		}
		if o.flags == nil {
			o.flags = map[string]*pflag.Flag{}
		}
		o.flags[key] = flag
	}
}

// Load resolves configuration from defaults, an optional config file, a
// dotenv file, CAPTIONER_ prefixed environment variables and bound flags,
// in increasing priority.
func Load(opts ...Option) (*Config, error) {
	lo := loaderOptions{envFile: ".env"}
	for _, opt := range opts {
		opt(&lo)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if lo.configFile != "" {
		v.SetConfigFile(lo.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", lo.configFile, err)
		}
	}

	if lo.envFile != "" {
		if err := godotenv.Load(lo.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", lo.envFile, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range extraEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	for key, flag := range lo.flags {
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Recognize.Provider {
	case "openai":
		if c.Recognize.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("openai provider requires OPENAI_API_KEY"))
		}
	case "gemini":
		if c.Recognize.GeminiAPIKey == "" {
			errs = append(errs, errors.New("gemini provider requires GEMINI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown recognize provider %q", c.Recognize.Provider))
	}

	if c.Recognize.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("recognize.concurrency must be at least 1, got %d", c.Recognize.Concurrency))
	}
	if c.Recognize.ChunkDuration < 0 {
		errs = append(errs, fmt.Errorf("recognize.chunk_duration must not be negative"))
	}
	if c.MaxChars < 0 {
		errs = append(errs, fmt.Errorf("max_chars must not be negative"))
	}

	switch c.Storage.Provider {
	case "local":
		if c.Storage.LocalDir == "" {
			errs = append(errs, errors.New("storage.local_dir is required for local storage"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage provider %q", c.Storage.Provider))
	}

	return errors.Join(errs...)
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	if c.Recognize.Provider == "gemini" {
		return c.Recognize.GeminiAPIKey
	}
	return c.Recognize.OpenAIAPIKey
}
