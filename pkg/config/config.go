// Package config loads the proxy configuration from the environment, an optional config file and flags.
package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wundergraph/github-graphql-proxy/pkg/playground"
)

const (
	DefaultEndpoint  = "https://api.github.com/graphql"
	DefaultPort      = 4070
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	EnvPrefix = "GHPROXY"
)

// Config is loaded once at startup and never changed afterwards.
type Config struct {
	Token       string              `mapstructure:"token"`
	Endpoint    string              `mapstructure:"endpoint"`
	Host        string              `mapstructure:"host"`
	Port        int                 `mapstructure:"port"`
	VerifyToken bool                `mapstructure:"verify_token"`
	Log         LogConfig           `mapstructure:"log"`
	Playground  playground.Settings `mapstructure:"playground"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Addr is the listen address of the server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) Validate() error {
	endpoint, err := url.Parse(c.Endpoint)
	if err != nil {
		return errors.Wrap(err, "endpoint")
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return errors.Errorf("endpoint: unsupported scheme %q", endpoint.Scheme)
	}
	if endpoint.Host == "" {
		return errors.New("endpoint: missing host")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port: %d out of range", c.Port)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Errorf("log.format: unsupported value %q", c.Log.Format)
	}
	return errors.Wrap(c.Playground.Validate(), "playground")
}

// NewViper returns a viper instance with defaults and environment bindings registered.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("token", TokenEnvKey)

	return v
}

func SetDefaults(v *viper.Viper) {
	defaults := playground.DefaultSettings()

	v.SetDefault("token", "")
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("host", "")
	v.SetDefault("port", DefaultPort)
	v.SetDefault("verify_token", false)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("playground.general.beta_updates", defaults.General.BetaUpdates)
	v.SetDefault("playground.editor.cursor_shape", defaults.Editor.CursorShape)
	v.SetDefault("playground.editor.font_size", defaults.Editor.FontSize)
	v.SetDefault("playground.editor.font_family", defaults.Editor.FontFamily)
	v.SetDefault("playground.editor.theme", defaults.Editor.Theme)
	v.SetDefault("playground.editor.reuse_headers", defaults.Editor.ReuseHeaders)
	v.SetDefault("playground.prettier.print_width", defaults.Prettier.PrintWidth)
	v.SetDefault("playground.request.credentials", defaults.Request.Credentials)
	v.SetDefault("playground.tracing.hide_tracing_response", defaults.Tracing.HideTracingResponse)
}

var flagKeys = map[string]string{
	"endpoint":     "endpoint",
	"host":         "host",
	"port":         "port",
	"verify-token": "verify_token",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// BindFlags binds the flags present in flags to their configuration keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.Wrapf(err, "binding flag %s", name)
		}
	}
	return nil
}

// ReadConfigFile merges a yaml config file into v. A leading ~ is expanded to the home directory.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return errors.Wrapf(err, "expanding %s", path)
	}

	v.SetConfigFile(expanded)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading config file %s", expanded)
	}
	return nil
}

func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Loader produces the configuration. It is the first stage of startup.
type Loader func() (Config, error)

// NewLoader checks the environment with env and then loads the configuration from v.
func NewLoader(v *viper.Viper, env EnvOptions) Loader {
	return func() (Config, error) {
		if err := LoadEnv(env); err != nil {
			return Config{}, err
		}
		return Load(v)
	}
}

// Static returns a Loader for an already assembled configuration.
func Static(cfg Config) Loader {
	return func() (Config, error) {
		return cfg, cfg.Validate()
	}
}
