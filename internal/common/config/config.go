// internal/common/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // rules.timezone must resolve in minimal containers

	"opt-eligibility/internal/eligibility"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Server    ServerConfig            `mapstructure:"server"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	RateLimit RateLimitConfig         `mapstructure:"rate_limit"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Rules     RulesConfig             `mapstructure:"rules"`
	Logging   LoggingConfig           `mapstructure:"logging"`
	Tracing   TracingConfig           `mapstructure:"tracing"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	MetricsPort     int      `mapstructure:"metrics_port"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	RequestTimeout  int      `mapstructure:"request_timeout"`  // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

func (s ServerConfig) MetricsAddress() string {
	return fmt.Sprintf(":%d", s.MetricsPort)
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds

	// ActivityRegistry is the JSON file describing the service tasks this
	// deployment runs.
	ActivityRegistry string `mapstructure:"activity_registry"`
	// DeployResources are BPMN files deployed once the client connects.
	DeployResources []string `mapstructure:"deploy_resources"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig bounds POST /validate per client in fixed windows.
type RateLimitConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Requests  int    `mapstructure:"requests"`
	Window    int    `mapstructure:"window"` // milliseconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type DateWindowConfig struct {
	PastDays   int `mapstructure:"past_days"`
	FutureDays int `mapstructure:"future_days"`
}

// RulesConfig is the eligibility rule table as written in config. Cap keys
// are stage tokens matched case-insensitively, since viper lowercases keys.
type RulesConfig struct {
	DateWindow                     DateWindowConfig `mapstructure:"date_window"`
	UnemploymentCaps               map[string]int   `mapstructure:"unemployment_caps"`
	ExtensionDegrees               []string         `mapstructure:"extension_degrees"`
	StemGating                     bool             `mapstructure:"stem_gating"`
	PreCompletionRequiresFutureEnd bool             `mapstructure:"pre_completion_requires_future_end"`
	Timezone                       string           `mapstructure:"timezone"`
}

// Policy converts the rule section into an eligibility.Policy and validates it.
func (r RulesConfig) Policy() (eligibility.Policy, error) {
	policy := eligibility.Policy{
		DateWindow: eligibility.DateWindow{
			PastDays:   r.DateWindow.PastDays,
			FutureDays: r.DateWindow.FutureDays,
		},
		UnemploymentCaps:               make(map[eligibility.OptStage]int, len(r.UnemploymentCaps)),
		StemGating:                     r.StemGating,
		PreCompletionRequiresFutureEnd: r.PreCompletionRequiresFutureEnd,
		Location:                       time.UTC,
	}

	for key, limit := range r.UnemploymentCaps {
		stage, ok := matchStage(key)
		if !ok {
			return eligibility.Policy{}, fmt.Errorf("%w: unknown stage %q in rules.unemployment_caps",
				eligibility.ErrPolicyMisconfigured, key)
		}
		policy.UnemploymentCaps[stage] = limit
	}

	for _, name := range r.ExtensionDegrees {
		degree, ok := eligibility.ParseDegreeLevel(name)
		if !ok {
			return eligibility.Policy{}, fmt.Errorf("%w: unknown degree %q in rules.extension_degrees",
				eligibility.ErrPolicyMisconfigured, name)
		}
		policy.ExtensionDegrees = append(policy.ExtensionDegrees, degree)
	}

	if r.Timezone != "" {
		loc, err := time.LoadLocation(r.Timezone)
		if err != nil {
			return eligibility.Policy{}, fmt.Errorf("%w: rules.timezone: %v", eligibility.ErrPolicyMisconfigured, err)
		}
		policy.Location = loc
	}

	if err := policy.Validate(); err != nil {
		return eligibility.Policy{}, err
	}
	return policy, nil
}

func matchStage(key string) (eligibility.OptStage, bool) {
	for _, token := range []eligibility.OptStage{
		eligibility.StagePreCompletion,
		eligibility.StagePostCompletion,
		eligibility.StageStemExtension,
	} {
		if strings.EqualFold(string(token), strings.TrimSpace(key)) {
			return token, true
		}
	}
	return "", false
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
