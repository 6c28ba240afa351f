package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
// Values come from defaults, then an optional YAML file, then environment
// variables, then explicitly set command-line flags.
type Config struct {
	// Listeners
	ControlAddr string `yaml:"controlAddr"`
	OpsAddr     string `yaml:"opsAddr"`
	LogLevel    string `yaml:"logLevel"`

	// Control protocol
	BufferSize  int           `yaml:"bufferSize"`
	ReadTimeout time.Duration `yaml:"readTimeout"`

	// Schema documents
	SpecDir          string        `yaml:"specDir"`
	DocumentCacheTTL time.Duration `yaml:"documentCacheTTL"`

	// Execution Manager guard
	BreakerMaxFailures uint32        `yaml:"breakerMaxFailures"`
	BreakerTimeout     time.Duration `yaml:"breakerTimeout"`

	// Observability
	TracingEnabled bool   `yaml:"tracingEnabled"`
	OTLPEndpoint   string `yaml:"otlpEndpoint"`

	// Simulator
	Sim SimConfig `yaml:"sim"`
}

// SimConfig parameterizes the in-process simulator.
type SimConfig struct {
	InitialServers   int           `yaml:"initialServers"`
	MaxServers       int           `yaml:"maxServers"`
	BootDelay        time.Duration `yaml:"bootDelay"`
	ArrivalRate      float64       `yaml:"arrivalRate"`
	BasicServiceTime float64       `yaml:"basicServiceTime"`
	OptServiceTime   float64       `yaml:"optServiceTime"`
	InitialDimmer    float64       `yaml:"initialDimmer"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ControlAddr: ":4242",
		OpsAddr:     ":8080",
		LogLevel:    "info",

		BufferSize:  4000,
		ReadTimeout: 5 * time.Second,

		SpecDir:          "specification",
		DocumentCacheTTL: time.Minute,

		BreakerMaxFailures: 3,
		BreakerTimeout:     10 * time.Second,

		TracingEnabled: false,
		OTLPEndpoint:   "localhost:4317",

		Sim: SimConfig{
			InitialServers:   1,
			MaxServers:       3,
			BootDelay:        0,
			ArrivalRate:      10,
			BasicServiceTime: 0.02,
			OptServiceTime:   0.05,
			InitialDimmer:    1,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// non-empty) and environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ControlAddr = getEnv("CONTROL_ADDR", c.ControlAddr)
	c.OpsAddr = getEnv("OPS_ADDR", c.OpsAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.BufferSize = getEnvInt("BUFFER_SIZE", c.BufferSize)
	c.ReadTimeout = getEnvDuration("READ_TIMEOUT", c.ReadTimeout)

	c.SpecDir = getEnv("SPEC_DIR", c.SpecDir)
	c.DocumentCacheTTL = getEnvDuration("DOCUMENT_CACHE_TTL", c.DocumentCacheTTL)

	c.BreakerMaxFailures = uint32(getEnvInt("BREAKER_MAX_FAILURES", int(c.BreakerMaxFailures)))
	c.BreakerTimeout = getEnvDuration("BREAKER_TIMEOUT", c.BreakerTimeout)

	c.TracingEnabled = getEnvBool("TRACING_ENABLED", c.TracingEnabled)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)

	c.Sim.InitialServers = getEnvInt("SIM_INITIAL_SERVERS", c.Sim.InitialServers)
	c.Sim.MaxServers = getEnvInt("SIM_MAX_SERVERS", c.Sim.MaxServers)
	c.Sim.BootDelay = getEnvDuration("SIM_BOOT_DELAY", c.Sim.BootDelay)
	c.Sim.ArrivalRate = getEnvFloat("SIM_ARRIVAL_RATE", c.Sim.ArrivalRate)
	c.Sim.BasicServiceTime = getEnvFloat("SIM_BASIC_SERVICE_TIME", c.Sim.BasicServiceTime)
	c.Sim.OptServiceTime = getEnvFloat("SIM_OPT_SERVICE_TIME", c.Sim.OptServiceTime)
	c.Sim.InitialDimmer = getEnvFloat("SIM_INITIAL_DIMMER", c.Sim.InitialDimmer)
}

// RegisterFlags defines the command-line overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("control-addr", "", "Control protocol listen address")
	fs.String("ops-addr", "", "Ops HTTP listen address")
	fs.String("log-level", "", "Log level (debug, info)")
	fs.Int("buffer-size", 0, "Receive buffer size in bytes")
	fs.String("spec-dir", "", "Directory holding the schema documents")
	fs.Bool("tracing", false, "Export traces over OTLP/gRPC")
	fs.Int("max-servers", 0, "Simulated server pool upper bound")
	fs.Int("initial-servers", 0, "Simulated servers at startup")
}

// ApplyFlags copies every flag that was explicitly set on fs.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var errs []error
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			v, err := fs.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if fs.Changed(name) {
			v, err := fs.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	str("control-addr", &c.ControlAddr)
	str("ops-addr", &c.OpsAddr)
	str("log-level", &c.LogLevel)
	num("buffer-size", &c.BufferSize)
	str("spec-dir", &c.SpecDir)
	num("max-servers", &c.Sim.MaxServers)
	num("initial-servers", &c.Sim.InitialServers)
	if fs.Changed("tracing") {
		v, err := fs.GetBool("tracing")
		errs = append(errs, err)
		c.TracingEnabled = v
	}
	return errors.Join(errs...)
}

// Validate reports the first structural problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ControlAddr) == "" {
		return errors.New("control address must not be empty")
	}
	if strings.TrimSpace(c.OpsAddr) == "" {
		return errors.New("ops address must not be empty")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.Sim.MaxServers < 1 {
		return fmt.Errorf("max servers must be at least 1, got %d", c.Sim.MaxServers)
	}
	if c.Sim.InitialServers < 0 || c.Sim.InitialServers > c.Sim.MaxServers {
		return fmt.Errorf("initial servers must be within [0, %d], got %d", c.Sim.MaxServers, c.Sim.InitialServers)
	}
	if c.Sim.ArrivalRate < 0 || c.Sim.BasicServiceTime < 0 || c.Sim.OptServiceTime < 0 {
		return errors.New("simulator rates and service times must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
