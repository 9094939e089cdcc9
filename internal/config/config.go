// Package config loads the server's JSON/YAML/TOML/INI configuration file
// into a typed ServerConfig, matching original_source/src/core/config.cpp's
// dotted-key get_string/get_int/get_bool surface but as a validated struct
// decode, grounded on aofei-air's Air.Serve config-file loading
// (json.Unmarshal/yaml.Unmarshal/toml.Unmarshal into a map, then
// mapstructure.Decode into the typed struct) per SPEC_FULL.md §1.1.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	goccy "github.com/goccy/go-json"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v2"
)

// ServerConfig is the typed projection of the dotted keys spec.md §6 names
// (server.host, server.port, server.max_connections, ...).
type ServerConfig struct {
	Server struct {
		Host           string `mapstructure:"host" validate:"required"`
		Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
		MaxConnections int    `mapstructure:"max_connections" validate:"min=1"`
		ThreadPoolSize int    `mapstructure:"thread_pool_size" validate:"min=0"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"min=1"`
		LogLevel       string `mapstructure:"log_level"`
		LogFile        string `mapstructure:"log_file"`

		// ServerName is stamped onto the Server header and the default
		// error page (spec.md §6 server_name).
		ServerName string `mapstructure:"server_name"`
		// EnableKeepAlive/KeepAliveTimeout gate and bound connection
		// reuse (spec.md §6 enable_keep_alive, keep_alive_timeout).
		EnableKeepAlive  bool `mapstructure:"enable_keep_alive"`
		KeepAliveTimeout int  `mapstructure:"keep_alive_timeout" validate:"min=0"`
		// MaxRequestSize/MaxHeaderSize bound the codec's parser
		// (spec.md §6 max_request_size, max_header_size).
		MaxRequestSize int `mapstructure:"max_request_size" validate:"min=0"`
		MaxHeaderSize  int `mapstructure:"max_header_size" validate:"min=0"`
		// EnableLogging gates request logging (spec.md §6 enable_logging).
		EnableLogging bool `mapstructure:"enable_logging"`
		// EnableCORS is the server.enable_cors flag. Nothing reads it; the
		// CORS middleware is installed from the cors.enabled key instead.
		EnableCORS bool `mapstructure:"enable_cors"`
	} `mapstructure:"server" validate:"required"`

	Static []StaticMount `mapstructure:"static"`

	RateLimit struct {
		Enabled       bool `mapstructure:"enabled"`
		MaxRequests   int  `mapstructure:"max_requests" validate:"required_if=Enabled true"`
		WindowSeconds int  `mapstructure:"window_seconds" validate:"required_if=Enabled true"`
	} `mapstructure:"rate_limit"`

	CORS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"cors"`
}

// StaticMount is one entry of the config file's "static" array.
type StaticMount struct {
	Prefix string `mapstructure:"prefix" validate:"required"`
	Root   string `mapstructure:"root" validate:"required"`
}

// IdleTimeout returns TimeoutSeconds as a time.Duration.
func (c *ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// KeepAliveTimeoutDuration returns KeepAliveTimeout as a time.Duration.
func (c *ServerConfig) KeepAliveTimeoutDuration() time.Duration {
	return time.Duration(c.Server.KeepAliveTimeout) * time.Second
}

// DefaultServerConfig matches original_source's hardcoded fallbacks when a
// config file is absent or a key is missing.
func DefaultServerConfig() *ServerConfig {
	c := &ServerConfig{}
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Server.MaxConnections = 1024
	c.Server.ThreadPoolSize = 0
	c.Server.TimeoutSeconds = 60
	c.Server.LogLevel = "INFO"
	c.Server.ServerName = "xkoj"
	c.Server.EnableKeepAlive = true
	c.Server.KeepAliveTimeout = 60
	c.Server.MaxRequestSize = 1 << 20
	c.Server.MaxHeaderSize = 8192
	c.Server.EnableLogging = true
	return c
}

// Load reads path (".json", ".yaml"/".yml", ".toml", or ".ini"), decodes it
// over DefaultServerConfig's values, and validates the result.
func Load(path string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, validate(cfg)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	m := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = goccy.Unmarshal(raw, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &m)
	case ".toml":
		err = toml.Unmarshal(raw, &m)
	case ".ini":
		m, err = loadINI(raw)
	default:
		err = fmt.Errorf("config: unsupported extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	return cfg, validate(cfg)
}

func loadINI(raw []byte) (map[string]any, error) {
	f, err := ini.Load(raw)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, section := range f.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		sub := map[string]any{}
		for _, key := range section.Keys() {
			sub[key.Name()] = key.Value()
		}
		out[name] = sub
	}
	return out, nil
}

var validatorInstance = validator.New()

func validate(cfg *ServerConfig) error {
	if err := validatorInstance.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Watch reloads path whenever it changes on disk and invokes onChange
// with the newly decoded, validated config. It runs until stop is closed.
// A reload that fails validation is logged to onError and the previous
// config stays in effect, matching the "never crash on a bad edit" spirit
// of spec.md §9's config-manager notes.
func Watch(path string, stop <-chan struct{}, onChange func(*ServerConfig), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				if onChange != nil {
					onChange(cfg)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(err)
				}
			}
		}
	}()

	return nil
}
