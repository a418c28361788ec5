package mapper

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all cmpmap configuration.
type Config struct {
	// DBPath enables rule persistence. Empty keeps the mapper stateless.
	DBPath string `yaml:"db_path"`

	// Languages selects keyword packs; empty means every embedded pack.
	Languages []string `yaml:"languages"`
	// LexiconPath replaces the embedded packs with a YAML file.
	LexiconPath string `yaml:"lexicon_path"`

	// CandidateSelectors override the built-in candidate patterns.
	CandidateSelectors []string `yaml:"candidate_selectors"`
	// MaxCandidates bounds how many candidates DetectBanners scores.
	MaxCandidates int `yaml:"max_candidates"`
	// Workers bounds DetectAll concurrency.
	Workers int `yaml:"workers"`

	Thresholds ThresholdConfig `yaml:"thresholds"`
	Weights    WeightConfig    `yaml:"weights"`
	Selector   SelectorConfig  `yaml:"selector"`
	Capture    CaptureConfig   `yaml:"capture"`
	Sinks      SinkConfig      `yaml:"sinks"`
	Enrich     EnrichConfig    `yaml:"enrich"`
	HTTP       HTTPConfig      `yaml:"http"`
}

// ThresholdConfig labels confidence. Only Minimum gates acceptance.
type ThresholdConfig struct {
	Minimum  float64 `yaml:"minimum"`
	High     float64 `yaml:"high"`
	VeryHigh float64 `yaml:"very_high"`
}

// WeightConfig weights the five confidence factors. All zero means the
// built-in weights.
type WeightConfig struct {
	Text       float64 `yaml:"text"`
	Button     float64 `yaml:"button"`
	Structural float64 `yaml:"structural"`
	Selector   float64 `yaml:"selector"`
	Attribute  float64 `yaml:"attribute"`
}

// SelectorConfig bounds selector synthesis.
type SelectorConfig struct {
	MaxAlternatives int `yaml:"max_alternatives"`
	MaxIDLength     int `yaml:"max_id_length"`
	MaxClassLength  int `yaml:"max_class_length"`
	MaxAttrValue    int `yaml:"max_attr_value"`
}

// CaptureConfig configures snapshot acquisition for ProcessURL.
type CaptureConfig struct {
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	Browser     bool          `yaml:"browser"`
	RemoteURL   string        `yaml:"remote_url"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	// AllowPrivate lets API callers capture loopback and private hosts.
	AllowPrivate bool `yaml:"allow_private"`
}

// SinkConfig selects where accepted rules are delivered.
type SinkConfig struct {
	Stdout      bool   `yaml:"stdout"`
	WebhookURL  string `yaml:"webhook_url"`
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

// EnrichConfig enables the optional selector suggestion service.
type EnrichConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is the number of API requests allowed per client per
	// minute. Zero disables the limit.
	RateLimit int `yaml:"rate_limit"`
}

func (c *Config) defaults() {
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 5
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Thresholds.Minimum <= 0 {
		c.Thresholds.Minimum = 0.6
	}
	if c.Thresholds.High <= 0 {
		c.Thresholds.High = 0.8
	}
	if c.Thresholds.VeryHigh <= 0 {
		c.Thresholds.VeryHigh = 0.9
	}
	if c.Weights == (WeightConfig{}) {
		c.Weights = WeightConfig{Text: 0.25, Button: 0.30, Structural: 0.20, Selector: 0.15, Attribute: 0.10}
	}
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = 30 * time.Second
	}
	if c.Capture.WaitTimeout <= 0 {
		c.Capture.WaitTimeout = 5 * time.Second
	}
	if c.Enrich.Timeout <= 0 {
		c.Enrich.Timeout = 20 * time.Second
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8089"
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapper: read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("mapper: parse config: %w", err)
	}
	return cfg, nil
}
