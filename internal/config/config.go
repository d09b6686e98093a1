// Package config reads the optional YAML configuration file.
//
// Example (~/.glob1env/config.yaml):
//
//	console:
//	  history_lines: 100
//	  prompt: "> "
//	mailbox:
//	  capacity: 256
//	script:
//	  timeout: 30s
//	log:
//	  file: /tmp/glob1env.log
//	  level: debug
//	server:
//	  host: 127.0.0.1
//	  port: 8080
//
// Every field is optional; accessors apply defaults. A missing file is not an
// error, an unparsable or invalid one is.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHistoryLines = 100
	DefaultPrompt       = "> "
	DefaultCapacity     = 256
	DefaultLogLevel     = "info"
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8080
	DefaultOwner        = "glob1env"
	DefaultRepository   = "glob1env"
)

type Config struct {
	Console ConsoleConfig `yaml:"console"`
	Mailbox MailboxConfig `yaml:"mailbox"`
	Script  ScriptConfig  `yaml:"script"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Update  UpdateConfig  `yaml:"update"`
}

type ConsoleConfig struct {
	HistoryLines *int    `yaml:"history_lines,omitempty"`
	Prompt       *string `yaml:"prompt,omitempty"`
}

type MailboxConfig struct {
	Capacity *int `yaml:"capacity,omitempty"`
}

type ScriptConfig struct {
	// Timeout is a Go duration string; empty or "0" means no limit.
	Timeout *string `yaml:"timeout,omitempty"`
}

type LogConfig struct {
	File  *string `yaml:"file,omitempty"`
	Level *string `yaml:"level,omitempty"`
}

type ServerConfig struct {
	Host *string `yaml:"host,omitempty"`
	Port *int    `yaml:"port,omitempty"`
}

type UpdateConfig struct {
	Owner      *string `yaml:"owner,omitempty"`
	Repository *string `yaml:"repository,omitempty"`
}

// DefaultPaths returns the config dir and config file path.
func DefaultPaths() (configDir string, configFile string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("get user home dir: %w", err)
	}
	configDir = filepath.Join(home, ".glob1env")
	configFile = filepath.Join(configDir, "config.yaml")
	return configDir, configFile, nil
}

// Load reads the config file at path, or the default path when path is empty.
// A missing file yields the defaults. The returned string is the file that was
// looked up.
func Load(path string) (*Config, string, error) {
	if path == "" {
		_, def, err := DefaultPaths()
		if err != nil {
			return nil, "", err
		}
		path = def
	}

	cfg := &Config{}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, path, nil
		}
		return nil, "", fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse yaml config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w in %s", err, path)
	}
	return cfg, path, nil
}

// Validate checks the values that have no sensible fallback.
func (c *Config) Validate() error {
	if n := c.HistoryLines(); n < 1 {
		return fmt.Errorf("invalid console.history_lines %d", n)
	}
	if n := c.MailboxCapacity(); n < 1 {
		return fmt.Errorf("invalid mailbox.capacity %d", n)
	}
	if _, err := c.scriptTimeout(); err != nil {
		return err
	}
	switch c.LogLevel() {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.LogLevel())
	}
	if p := c.Port(); p < 1 || p > 65535 {
		return fmt.Errorf("invalid server.port %d", p)
	}
	return nil
}

// EnsureDefault writes a default config file at the default path if none
// exists yet, and returns its path.
func EnsureDefault() (string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configFile); err == nil {
		return configFile, nil
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	b, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(configFile, b, 0o600); err != nil {
		return "", fmt.Errorf("write default config file %s: %w", configFile, err)
	}
	return configFile, nil
}

// Default returns a config with every field set to its default.
func Default() *Config {
	return &Config{
		Console: ConsoleConfig{HistoryLines: ptr(DefaultHistoryLines), Prompt: ptr(DefaultPrompt)},
		Mailbox: MailboxConfig{Capacity: ptr(DefaultCapacity)},
		Script:  ScriptConfig{Timeout: ptr("0s")},
		Log:     LogConfig{File: ptr(""), Level: ptr(DefaultLogLevel)},
		Server:  ServerConfig{Host: ptr(DefaultHost), Port: ptr(DefaultPort)},
		Update:  UpdateConfig{Owner: ptr(DefaultOwner), Repository: ptr(DefaultRepository)},
	}
}

func (c *Config) HistoryLines() int {
	if c == nil || c.Console.HistoryLines == nil {
		return DefaultHistoryLines
	}
	return *c.Console.HistoryLines
}

func (c *Config) Prompt() string {
	if c == nil || c.Console.Prompt == nil {
		return DefaultPrompt
	}
	return *c.Console.Prompt
}

func (c *Config) MailboxCapacity() int {
	if c == nil || c.Mailbox.Capacity == nil {
		return DefaultCapacity
	}
	return *c.Mailbox.Capacity
}

// ScriptTimeout bounds a script run; zero means no limit.
func (c *Config) ScriptTimeout() time.Duration {
	d, _ := c.scriptTimeout()
	return d
}

func (c *Config) scriptTimeout() (time.Duration, error) {
	if c == nil || c.Script.Timeout == nil {
		return 0, nil
	}
	v := strings.TrimSpace(*c.Script.Timeout)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid script.timeout %q: %w", v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid script.timeout %q: negative", v)
	}
	return d, nil
}

func (c *Config) LogFile() string {
	if c == nil || c.Log.File == nil {
		return ""
	}
	return strings.TrimSpace(*c.Log.File)
}

func (c *Config) LogLevel() string {
	if c == nil || c.Log.Level == nil {
		return DefaultLogLevel
	}
	v := strings.ToLower(strings.TrimSpace(*c.Log.Level))
	if v == "" {
		return DefaultLogLevel
	}
	return v
}

func (c *Config) Host() string {
	if c == nil || c.Server.Host == nil {
		return DefaultHost
	}
	v := strings.TrimSpace(*c.Server.Host)
	if v == "" {
		return DefaultHost
	}
	return v
}

func (c *Config) Port() int {
	if c == nil || c.Server.Port == nil {
		return DefaultPort
	}
	return *c.Server.Port
}

// Addr is the web listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host(), c.Port())
}

func (c *Config) UpdateOwner() string {
	if c == nil || c.Update.Owner == nil || *c.Update.Owner == "" {
		return DefaultOwner
	}
	return *c.Update.Owner
}

func (c *Config) UpdateRepository() string {
	if c == nil || c.Update.Repository == nil || *c.Update.Repository == "" {
		return DefaultRepository
	}
	return *c.Update.Repository
}

func ptr[T any](v T) *T { return &v }
