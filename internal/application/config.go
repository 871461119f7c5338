// Package application wires the domain comparator and gate to the
// infrastructure boundaries: configuration, persistence, rendering, and
// observability.
package application

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-gauge/internal/domain"
	"github.com/ahrav/go-gauge/internal/ports"
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// Config is the top-level configuration for an evaluation gate
// deployment. It is loaded from YAML and validated before use.
type Config struct {
	// Version is the configuration schema version.
	Version string `yaml:"version" validate:"required"`

	// Gate controls the comparison threshold and exit-code policy.
	Gate GateConfig `yaml:"gate"`

	// Metrics declares the metric registry. When empty, the standard
	// agent evaluation registry is used.
	Metrics []MetricConfig `yaml:"metrics" validate:"omitempty,dive"`

	// Judge configures the model used for AI-assisted scoring.
	Judge JudgeConfig `yaml:"judge"`

	// Agent configures the model deployment evaluated by the suite.
	Agent AgentConfig `yaml:"agent"`

	// Suite configures the evaluation test queries and their execution.
	Suite SuiteConfig `yaml:"suite"`
}

// GateConfig controls the quality-gate decision.
type GateConfig struct {
	// ThresholdPct is the percentage band treated as neutral movement.
	// A quality or safety metric moving beyond it in the worse direction
	// fails the gate. Documented default: 5.
	ThresholdPct float64 `yaml:"threshold_pct" validate:"gt=0,lte=100"`

	// Strict makes the CLI exit nonzero on gate failure. When false the
	// verdict is advisory: the report is produced and the process exits
	// zero, leaving the decision to humans.
	Strict bool `yaml:"strict"`
}

// MetricConfig declares one metric and its kind for the registry.
type MetricConfig struct {
	// Name is the metric identifier as produced by the evaluators.
	Name string `yaml:"name" validate:"required,min=1,max=100"`

	// Kind determines the direction of improvement and whether the
	// metric participates in gating.
	Kind string `yaml:"kind" validate:"required,oneof=quality performance safety"`
}

// JudgeConfig configures the judge model provider.
type JudgeConfig struct {
	// Provider selects the judge implementation.
	Provider string `yaml:"provider" validate:"omitempty,oneof=openai anthropic google"`

	// Model is the provider-specific model identifier.
	Model string `yaml:"model"`

	// BaseURL overrides the provider's default endpoint, e.g. an Azure
	// OpenAI deployment URL.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// Temperature controls judge randomness; low values keep scoring
	// consistent across runs.
	Temperature float64 `yaml:"temperature" validate:"min=0,max=1"`

	// MaxTokens limits the judge's response length.
	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=16,max=4000"`

	// RequestsPerSecond and Burst bound the request rate to the
	// provider. Zero disables rate limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	Burst             int     `yaml:"burst" validate:"min=0"`

	// MaxRetries bounds retry attempts for transient provider errors.
	MaxRetries int `yaml:"max_retries" validate:"min=0,max=10"`

	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1,max=600"`
}

// AgentConfig configures the agent under evaluation. It shares the
// judge's provider settings and adds the system prompt applied to every
// suite query.
type AgentConfig struct {
	JudgeConfig `yaml:",inline"`

	// SystemPrompt is prepended to every suite query. Optional.
	SystemPrompt string `yaml:"system_prompt"`
}

// SuiteConfig configures evaluation suite execution.
type SuiteConfig struct {
	// MaxConcurrency bounds the number of queries executed in parallel.
	MaxConcurrency int `yaml:"max_concurrency" validate:"omitempty,min=1,max=20"`

	// Queries are the natural-language test cases run against the agent.
	Queries []QueryConfig `yaml:"queries" validate:"omitempty,dive"`
}

// QueryConfig is a single evaluation test case.
type QueryConfig struct {
	// Query is the user message sent to the agent.
	Query string `yaml:"query" validate:"required,min=1"`

	// GroundTruth is the expected answer used by the deterministic
	// similarity evaluator. Optional.
	GroundTruth string `yaml:"ground_truth"`
}

// DefaultConfig returns a Config with production defaults: the documented
// 5% threshold, advisory (non-strict) gating, and conservative judge
// settings.
func DefaultConfig() Config {
	return Config{
		Version: "1.0",
		Gate: GateConfig{
			ThresholdPct: domain.DefaultThresholdPct,
			Strict:       false,
		},
		Judge: JudgeConfig{
			Provider:          "openai",
			Temperature:       0.0,
			MaxTokens:         256,
			RequestsPerSecond: 5,
			Burst:             10,
			MaxRetries:        3,
			TimeoutSeconds:    60,
		},
		Agent: AgentConfig{
			JudgeConfig: JudgeConfig{
				Provider:          "openai",
				Temperature:       0.0,
				MaxTokens:         1024,
				RequestsPerSecond: 5,
				Burst:             10,
				MaxRetries:        3,
				TimeoutSeconds:    120,
			},
		},
		Suite: SuiteConfig{
			MaxConcurrency: 4,
		},
	}
}

// ParseConfig decodes YAML configuration on top of the defaults and
// validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, ports.NewConfigError("yaml", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, ports.NewConfigError("validation", err)
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, ports.NewConfigError(path, err)
	}
	return ParseConfig(data)
}

// Registry builds the metric registry from the declared metrics, falling
// back to the standard agent evaluation registry when none are declared.
func (c Config) Registry() (*domain.MetricRegistry, error) {
	if len(c.Metrics) == 0 {
		return domain.DefaultRegistry(), nil
	}

	kinds := make(map[string]domain.MetricKind, len(c.Metrics))
	for _, m := range c.Metrics {
		if _, dup := kinds[m.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate metric %q", domain.ErrInvalidRegistry, m.Name)
		}
		kinds[m.Name] = domain.MetricKind(m.Kind)
	}
	return domain.NewMetricRegistry(kinds)
}

// Comparator builds the comparator configured with the gate threshold.
func (c Config) Comparator() (domain.Comparator, error) {
	return domain.NewComparator(c.Gate.ThresholdPct)
}
