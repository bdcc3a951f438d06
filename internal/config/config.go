package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the whole application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Planner    PlannerConfig    `mapstructure:"planner" yaml:"planner"`
	Executor   ExecutorConfig   `mapstructure:"executor" yaml:"executor"`
	Supervisor SupervisorConfig `mapstructure:"supervisor" yaml:"supervisor"`
	World      WorldConfig      `mapstructure:"world" yaml:"world"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// LLMConfig selects and configures the text generator backend.
type LLMConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"`
	Model         string        `mapstructure:"model" yaml:"model"`
	OllamaHost    string        `mapstructure:"ollama_host" yaml:"ollama_host"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	APIKey        string        `mapstructure:"api_key" yaml:"-"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// PlannerConfig tunes the repair-and-retry loop.
type PlannerConfig struct {
	MaxAttempts  int    `mapstructure:"max_attempts" yaml:"max_attempts"`
	Vocabulary   string `mapstructure:"vocabulary" yaml:"vocabulary"`
	RegistryFile string `mapstructure:"registry_file" yaml:"registry_file"`
}

// ExecutorConfig holds the actor kinematics and tick settings.
type ExecutorConfig struct {
	MaxSpeed      float64 `mapstructure:"max_speed" yaml:"max_speed"`
	ArriveEpsilon float64 `mapstructure:"arrive_epsilon" yaml:"arrive_epsilon"`
	Tick          float64 `mapstructure:"tick" yaml:"tick"`
	MaxTicks      int     `mapstructure:"max_ticks" yaml:"max_ticks"`
}

// SupervisorConfig configures background mission execution.
type SupervisorConfig struct {
	TickInterval     time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	QueueSize        int           `mapstructure:"queue_size" yaml:"queue_size"`
	FleetConcurrency int           `mapstructure:"fleet_concurrency" yaml:"fleet_concurrency"`
}

// Point is a named or anonymous arena coordinate.
type Point struct {
	X float64 `mapstructure:"x" yaml:"x"`
	Y float64 `mapstructure:"y" yaml:"y"`
}

// WorldConfig describes the simulated arena.
type WorldConfig struct {
	Width     float64          `mapstructure:"width" yaml:"width"`
	Height    float64          `mapstructure:"height" yaml:"height"`
	Start     string           `mapstructure:"start" yaml:"start"`
	Locations map[string]Point `mapstructure:"locations" yaml:"locations"`
}

const (
	BackendOllama = "ollama"
	BackendGemini = "gemini"
	BackendOpenAI = "openai"

	VocabularyStrict     = "strict"
	VocabularyPermissive = "permissive"
)

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "mission-planner")
	v.SetDefault("logger.log_file", "planner.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", false)

	// -- LLM --
	v.SetDefault("llm.backend", BackendOllama)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.ollama_host", "http://localhost:11434")
	v.SetDefault("llm.openai_base_url", "")
	v.SetDefault("llm.timeout", "2m")

	// -- Planner --
	v.SetDefault("planner.max_attempts", 2)
	v.SetDefault("planner.vocabulary", VocabularyStrict)
	v.SetDefault("planner.registry_file", "")

	// -- Executor --
	v.SetDefault("executor.max_speed", 150.0)
	v.SetDefault("executor.arrive_epsilon", 1.0)
	v.SetDefault("executor.tick", 1.0/30.0)
	v.SetDefault("executor.max_ticks", 100000)

	// -- Supervisor --
	v.SetDefault("supervisor.tick_interval", "0s")
	v.SetDefault("supervisor.queue_size", 16)
	v.SetDefault("supervisor.fleet_concurrency", 4)

	// -- World --
	v.SetDefault("world.width", 600.0)
	v.SetDefault("world.height", 400.0)
	v.SetDefault("world.start", "analysis_center")
	v.SetDefault("world.locations", map[string]any{
		"analysis_center": map[string]any{"x": 100.0, "y": 100.0},
		"rock":            map[string]any{"x": 400.0, "y": 250.0},
		"photo_spot":      map[string]any{"x": 500.0, "y": 350.0},
	})
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// API keys come from the environment the same way the backends read them.
	_ = v.BindEnv("llm.api_key", "PLANNER_LLM_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.LLM.Backend = strings.ToLower(strings.TrimSpace(cfg.LLM.Backend))
	cfg.Planner.Vocabulary = strings.ToLower(strings.TrimSpace(cfg.Planner.Vocabulary))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.LLM.Backend {
	case BackendOllama, BackendGemini, BackendOpenAI:
	default:
		return fmt.Errorf("llm.backend must be one of %s, %s, %s (got %q)",
			BackendOllama, BackendGemini, BackendOpenAI, c.LLM.Backend)
	}
	if c.Planner.MaxAttempts < 1 {
		return fmt.Errorf("planner.max_attempts must be at least 1")
	}
	switch c.Planner.Vocabulary {
	case VocabularyStrict, VocabularyPermissive:
	default:
		return fmt.Errorf("planner.vocabulary must be %q or %q", VocabularyStrict, VocabularyPermissive)
	}
	if err := c.Executor.Validate(); err != nil {
		return fmt.Errorf("executor configuration invalid: %w", err)
	}
	if c.Supervisor.TickInterval < 0 {
		return fmt.Errorf("supervisor.tick_interval must not be negative")
	}
	if c.Supervisor.FleetConcurrency <= 0 {
		return fmt.Errorf("supervisor.fleet_concurrency must be a positive integer")
	}
	if err := c.World.Validate(); err != nil {
		return fmt.Errorf("world configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the executor settings.
func (e *ExecutorConfig) Validate() error {
	if e.MaxSpeed <= 0 {
		return fmt.Errorf("max_speed must be positive")
	}
	if e.ArriveEpsilon <= 0 {
		return fmt.Errorf("arrive_epsilon must be positive")
	}
	if e.Tick <= 0 {
		return fmt.Errorf("tick must be a positive number of seconds")
	}
	if e.MaxTicks <= 0 {
		return fmt.Errorf("max_ticks must be a positive integer")
	}
	return nil
}

// Validate checks the arena description.
func (w *WorldConfig) Validate() error {
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	if w.Start != "" && !w.hasLocation(w.Start) {
		return fmt.Errorf("start location %q is not a known location", w.Start)
	}
	return nil
}

// hasLocation matches names case-insensitively; viper lower-cases map keys
// but leaves string values alone.
func (w *WorldConfig) hasLocation(name string) bool {
	for known := range w.Locations {
		if strings.EqualFold(known, name) {
			return true
		}
	}
	return false
}
