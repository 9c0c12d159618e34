// Package config resolves the server configuration from defaults, an optional
// TOML file and the environment. The result is read once at startup.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/lingo/pkg/logger"
)

const (
	defaultHost          = "0.0.0.0"
	defaultPort          = 8080
	defaultProvider      = "ollama"
	defaultStaticDir     = "dist"
	defaultLogFormat     = logger.FormatConsole
	defaultOllamaHost    = "localhost"
	defaultOllamaPort    = 11434
	defaultOllamaTimeout = 5 * time.Minute
	defaultGeminiModel   = "gemini-2.0-flash"
)

// Config is the full server configuration.
type Config struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Provider    string `toml:"provider"`
	TestMode    bool   `toml:"test_mode"`
	Passthrough bool   `toml:"passthrough"`
	StaticDir   string `toml:"static_dir"`
	Debug       bool   `toml:"debug"`
	LogFormat   string `toml:"log_format"`

	Ollama OllamaConfig `toml:"ollama"`
	Gemini GeminiConfig `toml:"gemini"`
}

// OllamaConfig locates the local Ollama server.
type OllamaConfig struct {
	Host    string   `toml:"host"`
	Port    int      `toml:"port"`
	Timeout Duration `toml:"timeout"`
}

// BaseURL returns the http base URL of the Ollama server.
func (c OllamaConfig) BaseURL() string {
	return "http://" + c.HostPort()
}

// HostPort returns host:port, used as the forwarded Host header.
func (c OllamaConfig) HostPort() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// GeminiConfig holds the Gemini credential and default model.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Duration is a time.Duration decoded from strings like "90s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Error reports an invalid configuration value.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:      defaultHost,
		Port:      defaultPort,
		Provider:  defaultProvider,
		StaticDir: defaultStaticDir,
		LogFormat: defaultLogFormat,
		Ollama: OllamaConfig{
			Host:    defaultOllamaHost,
			Port:    defaultOllamaPort,
			Timeout: Duration{defaultOllamaTimeout},
		},
		Gemini: GeminiConfig{
			Model: defaultGeminiModel,
		},
	}
}

// Load starts from Default, applies the TOML file at path (skipped when path
// is empty), then the environment seen through lookup, and validates.
func Load(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if lookup != nil {
		if err := cfg.applyEnv(lookup); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	strVars := map[string]*string{
		"HOST":           &c.Host,
		"LLM_PROVIDER":   &c.Provider,
		"STATIC_DIR":     &c.StaticDir,
		"LOG_FORMAT":     &c.LogFormat,
		"OLLAMA_HOST":    &c.Ollama.Host,
		"GEMINI_API_KEY": &c.Gemini.APIKey,
		"GEMINI_MODEL":   &c.Gemini.Model,
	}
	for key, dst := range strVars {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	intVars := map[string]*int{
		"PORT":        &c.Port,
		"OLLAMA_PORT": &c.Ollama.Port,
	}
	for key, dst := range intVars {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Key: key, Err: err}
		}
		*dst = n
	}

	boolVars := map[string]*bool{
		"TEST_MODE":       &c.TestMode,
		"API_PASSTHROUGH": &c.Passthrough,
		"DEBUG":           &c.Debug,
	}
	for key, dst := range boolVars {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &Error{Key: key, Err: err}
		}
		*dst = b
	}

	if v, ok := lookup("OLLAMA_TIMEOUT"); ok && v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err != nil {
			return &Error{Key: "OLLAMA_TIMEOUT", Err: err}
		}
		c.Ollama.Timeout = d
	}

	return nil
}

// Validate checks that the configuration is usable. Provider credentials are
// checked when the adapter is built.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return &Error{Key: "port", Err: fmt.Errorf("%d out of range", c.Port)}
	}
	if c.Ollama.Host == "" {
		return &Error{Key: "ollama.host", Err: fmt.Errorf("must not be empty")}
	}
	if c.Ollama.Port <= 0 || c.Ollama.Port > 65535 {
		return &Error{Key: "ollama.port", Err: fmt.Errorf("%d out of range", c.Ollama.Port)}
	}
	if c.Ollama.Timeout.Duration <= 0 {
		return &Error{Key: "ollama.timeout", Err: fmt.Errorf("must be positive")}
	}
	switch c.LogFormat {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return &Error{Key: "log_format", Err: fmt.Errorf("unknown format %q", c.LogFormat)}
	}
	return nil
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
