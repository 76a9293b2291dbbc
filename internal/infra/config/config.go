package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultPath      = "config.yaml"
	dockerPath       = "/config/config.yaml"
	defaultChunkSize = 1 << 20
	maxChunkSize     = 64 << 20
)

type Config struct {
	Port   string       `mapstructure:"port" yaml:"port"`
	Root   string       `mapstructure:"root" yaml:"root"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Stream StreamConfig `mapstructure:"stream" yaml:"stream"`
	Upload UploadConfig `mapstructure:"upload" yaml:"upload"`
	Mime   MimeConfig   `mapstructure:"mime" yaml:"mime"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	v *viper.Viper
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StreamConfig struct {
	ChunkSize      int   `mapstructure:"chunk_size" yaml:"chunk_size"`
	StrictRanges   bool  `mapstructure:"strict_ranges" yaml:"strict_ranges"`
	RateLimitBytes int64 `mapstructure:"rate_limit_bytes" yaml:"rate_limit_bytes"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// MimeConfig adds content types on top of the built-in table. Entries
// are a list rather than a map because viper splits map keys on dots.
type MimeConfig struct {
	Extra []MimeEntry `mapstructure:"extra" yaml:"extra"`
}

type MimeEntry struct {
	Ext  string `mapstructure:"ext" yaml:"ext"`
	Type string `mapstructure:"type" yaml:"type"`
}

type ServerConfig struct {
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

// MimeExtras flattens Mime.Extra into an extension to type map.
func (c *Config) MimeExtras() map[string]string {
	out := make(map[string]string, len(c.Mime.Extra))
	for _, e := range c.Mime.Extra {
		out[e.Ext] = e.Type
	}
	return out
}

// Load reads path (or the default locations when path is empty) and
// layers environment variables and any bound command line flags on top.
// A missing default config file is not an error: defaults apply.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	file, err := locate(path)
	if err != nil {
		return nil, err
	}

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", file, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("GOFM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.v = v

	return cfg, nil
}

// Watch calls fn with a freshly decoded config every time the config
// file changes. Invalid edits are reported through onErr and skipped.
// It reports false when no file backs this config.
func (c *Config) Watch(fn func(*Config), onErr func(error)) bool {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return false
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(c.v)
		if err != nil {
			if onErr != nil {
				onErr(fmt.Errorf("reloading %s: %w", e.Name, err))
			}
			return
		}
		fn(next)
	})
	c.v.WatchConfig()

	return true
}

// DefaultYAML renders the built-in defaults as a config file.
func DefaultYAML() ([]byte, error) {
	cfg, err := decode(newViper())
	if err != nil {
		return nil, err
	}
	return cfg.YAML()
}

// YAML renders the effective settings in config file form.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func newViper() *viper.Viper {
	v := viper.New()

	// Set Defaults
	v.SetDefault("port", "8080")
	v.SetDefault("root", ".")
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("stream.chunk_size", defaultChunkSize)
	v.SetDefault("stream.strict_ranges", false)
	v.SetDefault("stream.rate_limit_bytes", 0)
	v.SetDefault("upload.max_bytes", 0)
	v.SetDefault("mime.extra", []MimeEntry{})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.read_header_timeout", "10s")

	return v
}

func locate(path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = defaultPath
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("config file %s: %w", path, err)
	}

	if explicit {
		return "", fmt.Errorf("config file not found: %s", path)
	}

	// FALLBACK: inside a container the config is usually mounted at /config
	if _, err := os.Stat(dockerPath); err == nil {
		return dockerPath, nil
	}
	return "", nil
}

var flagKeys = map[string]string{
	"port":       "port",
	"root":       "root",
	"log-level":  "log.level",
	"chunk-size": "stream.chunk_size",
	"strict":     "stream.strict_ranges",
	"rate-limit": "stream.rate_limit_bytes",
	"max-upload": "upload.max_bytes",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Root == "" {
		return errors.New("root is required")
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("port %q is not a valid TCP port", c.Port)
	}

	if c.Stream.ChunkSize <= 0 {
		// Default to a sane value
		c.Stream.ChunkSize = defaultChunkSize
	}
	if c.Stream.ChunkSize > maxChunkSize {
		return fmt.Errorf("stream.chunk_size %d exceeds %d", c.Stream.ChunkSize, maxChunkSize)
	}

	if c.Stream.RateLimitBytes < 0 {
		return errors.New("stream.rate_limit_bytes cannot be negative")
	}

	if c.Upload.MaxBytes < 0 {
		return errors.New("upload.max_bytes cannot be negative")
	}

	for i, e := range c.Mime.Extra {
		if e.Ext == "" || e.Type == "" {
			return fmt.Errorf("mime.extra[%d] requires both ext and type", i)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		fmt.Printf("Warning: unknown log level %q, using info\n", c.Log.Level)
		c.Log.Level = "info"
	}

	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = 10 * time.Second
	}

	return nil
}
