package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "FOCUSMIND"

// Profile is the configuration to start the engine and its HTTP surface.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string `mapstructure:"mode"`
	// Addr is the binding address for server
	Addr string `mapstructure:"addr"`
	// Port is the binding port for server
	Port int `mapstructure:"port"`
	// Data is the data directory
	Data string `mapstructure:"data"`
	// DSN points to where focusmind stores its blobs
	DSN string `mapstructure:"dsn"`
	// Driver is the persistence driver (sqlite, postgres or memory)
	Driver string `mapstructure:"driver"`
	// Version is the current version of server
	Version string `mapstructure:"version"`

	Logging   LoggingConfig   `mapstructure:"logging"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Learner   LearnerConfig   `mapstructure:"learner"`
	Context   ContextConfig   `mapstructure:"context"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Rules are user-defined signal rules evaluated after the built-in ones.
	Rules []RuleConfig `mapstructure:"rules"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CacheConfig holds the context cache tier TTLs and the invalidation debounce window.
type CacheConfig struct {
	TaskTTL     time.Duration `mapstructure:"task_ttl"`
	ProgressTTL time.Duration `mapstructure:"progress_ttl"`
	PresetTTL   time.Duration `mapstructure:"preset_ttl"`
	MemoryTTL   time.Duration `mapstructure:"memory_ttl"`
	FullTTL     time.Duration `mapstructure:"full_ttl"`
	Debounce    time.Duration `mapstructure:"debounce"`
}

// LearnerConfig controls the profile learner cadence.
type LearnerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Window   int           `mapstructure:"window"`
}

// ContextConfig bounds the assembled system prompt.
type ContextConfig struct {
	MaxTokens int `mapstructure:"max_tokens"`
}

// RateLimitConfig configures the per-client HTTP limiter.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// RuleConfig is a custom signal rule expressed in CEL.
type RuleConfig struct {
	Name    string `mapstructure:"name"`
	Kind    string `mapstructure:"kind"` // opportunity | risk
	Expr    string `mapstructure:"expr"`
	Message string `mapstructure:"message"`
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Default returns a profile populated with the same defaults Load applies.
func Default() *Profile {
	return &Profile{
		Mode:    "dev",
		Addr:    "127.0.0.1",
		Port:    8787,
		Driver:  "sqlite",
		Version: "0.1.0",
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Cache: CacheConfig{
			TaskTTL:     30 * time.Second,
			ProgressTTL: 60 * time.Second,
			PresetTTL:   120 * time.Second,
			MemoryTTL:   180 * time.Second,
			FullTTL:     15 * time.Second,
			Debounce:    100 * time.Millisecond,
		},
		Learner:   LearnerConfig{Interval: time.Hour, Window: 50},
		Context:   ContextConfig{MaxTokens: 2048},
		RateLimit: RateLimitConfig{RPS: 10, Burst: 20},
	}
}

// Load reads configuration from an optional file and FOCUSMIND_* environment variables.
// configFile may be empty, in which case focusmind.yaml is searched in ~/.focusmind and ".".
func Load(configFile string) (*Profile, error) {
	v := viper.New()
	setDefaults(v, Default())

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("focusmind")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir(), ".focusmind"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	p := &Profile{}
	if err := v.Unmarshal(p); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return p, nil
}

func setDefaults(v *viper.Viper, d *Profile) {
	v.SetDefault("mode", d.Mode)
	v.SetDefault("addr", d.Addr)
	v.SetDefault("port", d.Port)
	v.SetDefault("data", "")
	v.SetDefault("dsn", "")
	v.SetDefault("driver", d.Driver)
	v.SetDefault("version", d.Version)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("cache.task_ttl", d.Cache.TaskTTL)
	v.SetDefault("cache.progress_ttl", d.Cache.ProgressTTL)
	v.SetDefault("cache.preset_ttl", d.Cache.PresetTTL)
	v.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	v.SetDefault("cache.full_ttl", d.Cache.FullTTL)
	v.SetDefault("cache.debounce", d.Cache.Debounce)

	v.SetDefault("learner.interval", d.Learner.Interval)
	v.SetDefault("learner.window", d.Learner.Window)

	v.SetDefault("context.max_tokens", d.Context.MaxTokens)

	v.SetDefault("rate_limit.rps", d.RateLimit.RPS)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0o770); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and resolves the data directory and DSN.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	switch p.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return errors.Errorf("unknown driver %q: expected sqlite, postgres or memory", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	if p.Driver == "sqlite" {
		if p.Data == "" {
			p.Data = filepath.Join(homeDir(), ".focusmind")
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("focusmind_%s.db", p.Mode))
		}
	}

	if p.Cache.Debounce < 0 {
		return errors.New("cache.debounce must be >= 0")
	}
	if p.Learner.Interval <= 0 {
		return errors.New("learner.interval must be greater than 0")
	}
	if p.Learner.Window < 10 {
		return errors.Errorf("learner.window must be at least 10, got %d", p.Learner.Window)
	}
	if p.Context.MaxTokens <= 0 {
		return errors.New("context.max_tokens must be greater than 0")
	}
	for i, r := range p.Rules {
		if r.Expr == "" {
			return errors.Errorf("rules[%d].expr must not be empty", i)
		}
		if r.Kind != "opportunity" && r.Kind != "risk" {
			return errors.Errorf("rules[%d].kind must be opportunity or risk, got %q", i, r.Kind)
		}
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
