// Package config loads the YAML rule file describing which transformers
// to chain before rewriting TABLE DATA blocks, plus the parameters used
// to spawn pg_dump when the CLI runs in --spawn mode (SPEC_FULL.md §4.9).
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/ak4code/pgdumb/internal/transform"
)

// ErrInvalidRule reports an unknown rule kind or a missing required
// parameter in a RuleConfig entry.
var ErrInvalidRule = errors.New("pgdumb: invalid rule")

// RuleConfig is the top-level YAML document.
type RuleConfig struct {
	Rules     []Rule           `yaml:"rules"`
	RateLimit *RateLimitConfig `yaml:"rateLimit,omitempty"`
	Process   *ProcessConfig   `yaml:"process,omitempty"`
}

// Rule is one transform step. Kind selects which fields apply:
//   - "regex": Pattern, Replacement
//   - "nullify": Columns
//   - "noop": (no fields)
type Rule struct {
	Kind        string `yaml:"kind"`
	Pattern     string `yaml:"pattern,omitempty"`
	Replacement string `yaml:"replacement,omitempty"`
	Columns     []int  `yaml:"columns,omitempty"`
}

// RateLimitConfig throttles transformer invocation.
type RateLimitConfig struct {
	EventsPerSecond float64 `yaml:"eventsPerSecond"`
	Burst           int     `yaml:"burst"`
}

// ProcessConfig parameterizes the optional pg_dump spawn helper
// (internal/pgexec), never consumed by the core rewrite packages.
type ProcessConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Database string   `yaml:"database"`
	Tables   []string `yaml:"tables,omitempty"`
	Binary   string   `yaml:"binary,omitempty"`
}

// Load reads and parses a RuleConfig from path.
func Load(path string) (*RuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg RuleConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RuleConfig) validate() error {
	for i, rule := range c.Rules {
		switch rule.Kind {
		case "regex":
			if rule.Pattern == "" {
				return fmt.Errorf("%w: rule %d (regex): missing pattern", ErrInvalidRule, i)
			}
		case "nullify":
			if len(rule.Columns) == 0 {
				return fmt.Errorf("%w: rule %d (nullify): missing columns", ErrInvalidRule, i)
			}
		case "noop":
			// no fields required
		default:
			return fmt.Errorf("%w: rule %d: unknown kind %q", ErrInvalidRule, i, rule.Kind)
		}
	}
	return nil
}

// BuildTransformer resolves the rule list into a single transform.Transformer,
// chaining rules in declared order and wrapping the result in a rate
// limiter when RateLimit is set.
func (c *RuleConfig) BuildTransformer() (transform.Transformer, error) {
	if len(c.Rules) == 0 {
		return transform.Noop(), nil
	}

	steps := make([]transform.Transformer, 0, len(c.Rules))
	for i, rule := range c.Rules {
		step, err := buildStep(rule)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		steps = append(steps, step)
	}

	t := transform.Chain(steps...)
	if c.RateLimit != nil {
		t = transform.RateLimited(t, rate.Limit(c.RateLimit.EventsPerSecond), c.RateLimit.Burst)
	}
	return t, nil
}

func buildStep(rule Rule) (transform.Transformer, error) {
	switch rule.Kind {
	case "regex":
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", rule.Pattern, err)
		}
		return transform.Regex(transform.Replacement{Pattern: pattern, Replacement: rule.Replacement}), nil
	case "nullify":
		return transform.ColumnNuller(rule.Columns...), nil
	case "noop":
		return transform.Noop(), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, rule.Kind)
	}
}
