package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the config file.
const (
	EnvPort        = "PORT"
	EnvDocsRoot    = "DOCS_ROOT"
	EnvRedirectURL = "REDIRECT_URL"
	EnvAPIURL      = "API_URL"
	EnvDeployKey   = "DEPLOY_KEY"
)

type RateLimitConfig struct {
	Requests int           `yaml:"requests" validate:"gt=0"`
	Window   time.Duration `yaml:"window" validate:"gt=0"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type DeployConfig struct {
	Enabled bool `yaml:"enabled"`
	// URL is the AMQP connection string, usually provided through DEPLOY_KEY.
	URL        string `yaml:"url" validate:"required_if=Enabled true"`
	Exchange   string `yaml:"exchange" validate:"required"`
	RoutingKey string `yaml:"routingKey" validate:"required"`
	// Durable must match the existing declaration of the shared exchange.
	Durable bool `yaml:"durable"`
	// Platform is the GOOS the deploy script is allowed to run on.
	Platform string `yaml:"platform" validate:"required"`
	Shell    string `yaml:"shell" validate:"required"`
	Script   string `yaml:"script" validate:"required"`
}

type StoreConfig struct {
	Path      string   `yaml:"path" validate:"required"`
	Versions  []string `yaml:"versions" validate:"min=1,dive,required"`
	Languages []string `yaml:"languages" validate:"min=1,dive,required"`
}

type MCPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint" validate:"startswith=/"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

type Config struct {
	Port            int             `yaml:"port" validate:"gt=0,lt=65536"`
	DocsRoot        string          `yaml:"docsRoot" validate:"required"`
	RedirectURL     string          `yaml:"redirectUrl" validate:"required,url"`
	APIURL          string          `yaml:"apiUrl" validate:"required,url"`
	ContentSelector string          `yaml:"contentSelector"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
	CORS            CORSConfig      `yaml:"cors"`
	Deploy          DeployConfig    `yaml:"deploy"`
	Store           StoreConfig     `yaml:"store"`
	MCP             MCPConfig       `yaml:"mcp"`
	Log             LogConfig       `yaml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		DocsRoot:        "./docs",
		RedirectURL:     "http://localhost:3000",
		APIURL:          "http://localhost:8080",
		ContentSelector: "body",
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Deploy: DeployConfig{
			Exchange:   "platform",
			RoutingKey: "server",
			Platform:   "linux",
			Shell:      "sh",
			Script:     "./deploy.sh",
		},
		Store: StoreConfig{
			Path:      "~/.docserver/store.db",
			Versions:  []string{"latest"},
			Languages: []string{"en", "de"},
		},
		MCP: MCPConfig{
			Enabled:  true,
			Endpoint: "/mcp",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		buf, err := afero.ReadFile(fs, path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(buf, cfg); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config file %s", path)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvPort)
		}
		cfg.Port = port
	}
	if v, ok := lookup(EnvDocsRoot); ok && v != "" {
		cfg.DocsRoot = v
	}
	if v, ok := lookup(EnvRedirectURL); ok && v != "" {
		cfg.RedirectURL = v
	}
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		cfg.APIURL = v
	}
	if v, ok := lookup(EnvDeployKey); ok && v != "" {
		cfg.Deploy.URL = v
		cfg.Deploy.Enabled = true
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// StorePath returns the expanded location of the client store database.
func (c *Config) StorePath() (string, error) {
	return ExpandPath(c.Store.Path)
}
