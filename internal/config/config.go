// Package config loads judgecore's YAML configuration file and applies
// environment-variable overrides and defaults, in the shape the rest of the
// pack's services use (see FouGuai-FUZOJ's cmd/*/config.go: a typed struct,
// gopkg.in/yaml.v3, defaults filled in after unmarshal).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultBuildTimeout    = 60 * time.Second
	defaultStdoutCapBytes  = 1 << 20
	defaultWorkspaceRoot   = "/var/lib/judgecore/workspaces"
	defaultSweepInterval   = 10 * time.Minute
	defaultSweepMaxAge     = 30 * time.Minute
	defaultMinTime         = 1
	defaultMaxTime         = 15
	defaultMinMemory       = 1
	defaultMaxMemory       = 10000
	defaultGlobalRPS       = 100
	defaultPerIPRPS        = 10
	defaultPerIPBurst      = 20
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// LoggerConfig controls zerolog's output shape.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // "console" or "json"
}

// CompilerConfig mirrors the original service's compiler.* property
// namespace: the admission ceiling, execution limit bounds, and image
// retention policy.
type CompilerConfig struct {
	MaxRequests       int           `yaml:"maxRequests"`
	MinExecutionTime  int           `yaml:"minExecutionTime"`
	MaxExecutionTime  int           `yaml:"maxExecutionTime"`
	MinExecutionMem   int           `yaml:"minExecutionMemory"`
	MaxExecutionMem   int           `yaml:"maxExecutionMemory"`
	DeleteDockerImage bool          `yaml:"deleteDockerImage"`
	BuildTimeout      time.Duration `yaml:"buildTimeout"`
	StdoutCapBytes    int64         `yaml:"stdoutCapBytes"`
}

// WorkspaceConfig controls where per-Execution directories live and how
// aggressively the startup/periodic sweep reclaims abandoned ones.
type WorkspaceConfig struct {
	Root          string        `yaml:"root"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	SweepMaxAge   time.Duration `yaml:"sweepMaxAge"`
}

// RateLimitConfig controls the per-client request-rate guard.
type RateLimitConfig struct {
	GlobalRPS  float64 `yaml:"globalRPS"`
	PerIPRPS   float64 `yaml:"perIPRPS"`
	PerIPBurst int     `yaml:"perIPBurst"`
}

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logger    LoggerConfig    `yaml:"logger"`
	Compiler  CompilerConfig  `yaml:"compiler"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// Load reads the YAML document at path, applies defaults for anything left
// zero-valued, then applies JUDGECORE_-prefixed environment overrides on top
// (so a deployment can tweak the admission ceiling or limits without editing
// the file).
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.Compiler.MaxRequests <= 0 {
		return nil, fmt.Errorf("compiler.maxRequests is required and must be positive")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	if cfg.Compiler.MinExecutionTime == 0 {
		cfg.Compiler.MinExecutionTime = defaultMinTime
	}
	if cfg.Compiler.MaxExecutionTime == 0 {
		cfg.Compiler.MaxExecutionTime = defaultMaxTime
	}
	if cfg.Compiler.MinExecutionMem == 0 {
		cfg.Compiler.MinExecutionMem = defaultMinMemory
	}
	if cfg.Compiler.MaxExecutionMem == 0 {
		cfg.Compiler.MaxExecutionMem = defaultMaxMemory
	}
	if cfg.Compiler.BuildTimeout == 0 {
		cfg.Compiler.BuildTimeout = defaultBuildTimeout
	}
	if cfg.Compiler.StdoutCapBytes == 0 {
		cfg.Compiler.StdoutCapBytes = defaultStdoutCapBytes
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = defaultWorkspaceRoot
	}
	if cfg.Workspace.SweepInterval == 0 {
		cfg.Workspace.SweepInterval = defaultSweepInterval
	}
	if cfg.Workspace.SweepMaxAge == 0 {
		cfg.Workspace.SweepMaxAge = defaultSweepMaxAge
	}
	if cfg.RateLimit.GlobalRPS == 0 {
		cfg.RateLimit.GlobalRPS = defaultGlobalRPS
	}
	if cfg.RateLimit.PerIPRPS == 0 {
		cfg.RateLimit.PerIPRPS = defaultPerIPRPS
	}
	if cfg.RateLimit.PerIPBurst == 0 {
		cfg.RateLimit.PerIPBurst = defaultPerIPBurst
	}
}

// applyEnvOverrides lists the environment variables that may override a loaded
// (or defaulted) config value, keeping the override surface explicit rather
// than reflecting over the struct.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("JUDGECORE_SERVER_ADDR"); ok {
		cfg.Server.Addr = v
	}
	if v, ok := envInt("JUDGECORE_MAX_REQUESTS"); ok {
		cfg.Compiler.MaxRequests = v
	}
	if v, ok := envInt("JUDGECORE_MIN_TIME"); ok {
		cfg.Compiler.MinExecutionTime = v
	}
	if v, ok := envInt("JUDGECORE_MAX_TIME"); ok {
		cfg.Compiler.MaxExecutionTime = v
	}
	if v, ok := envInt("JUDGECORE_MIN_MEMORY"); ok {
		cfg.Compiler.MinExecutionMem = v
	}
	if v, ok := envInt("JUDGECORE_MAX_MEMORY"); ok {
		cfg.Compiler.MaxExecutionMem = v
	}
	if v, ok := os.LookupEnv("JUDGECORE_DELETE_DOCKER_IMAGE"); ok {
		cfg.Compiler.DeleteDockerImage = v == "true" || v == "1"
	}
	if v, ok := os.LookupEnv("JUDGECORE_LOG_LEVEL"); ok {
		cfg.Logger.Level = v
	}
}

func envInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
