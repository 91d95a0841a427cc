package sinks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported sink types.
	TypeLog    = "log"
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// configFile represents the structure of the sinks configuration file.
type configFile struct {
	Sinks []SinkConfig `json:"sinks" yaml:"sinks"`
}

// SinkConfig represents a single sink entry declared in config files.
type SinkConfig struct {
	ID      string            `json:"id" yaml:"id"`
	Type    string            `json:"type" yaml:"type"`
	Enabled *bool             `json:"enabled" yaml:"enabled"`
	HTTP    *HTTPSinkConfig   `json:"http" yaml:"http"`
	SQS     *SQSSinkConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSSinkConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubSinkConfig `json:"pubsub" yaml:"pubsub"`
}

// HTTPSinkConfig holds generic HTTP webhook settings.
type HTTPSinkConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// SQSSinkConfig holds AWS SQS specific settings. Static credentials are
// optional; the default AWS credential chain applies when absent.
type SQSSinkConfig struct {
	QueueURL        string `json:"uri" yaml:"uri"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SNSSinkConfig holds AWS SNS specific settings.
type SNSSinkConfig struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// PubSubSinkConfig holds GCP Pub/Sub specific settings.
type PubSubSinkConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// ConfigRegistry materializes sink definitions loaded from config files.
type ConfigRegistry struct {
	mu    sync.RWMutex
	sinks []SinkConfig
	idx   map[string]SinkConfig
}

// LoadRegistry loads the sink registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sinks file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sinks file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sinks file: %w", err)
	}

	cfg, err := parseConfig(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	idx := make(map[string]SinkConfig, len(cfg.Sinks))
	for i := range cfg.Sinks {
		c := sanitizeSinkConfig(cfg.Sinks[i])
		if err := validateSinkConfig(c); err != nil {
			return nil, fmt.Errorf("sink[%d]: %w", i, err)
		}
		if _, exists := idx[c.ID]; exists {
			return nil, fmt.Errorf("duplicate sink id %q", c.ID)
		}
		cfg.Sinks[i] = c
		idx[c.ID] = c
	}

	return &ConfigRegistry{sinks: cfg.Sinks, idx: idx}, nil
}

func parseConfig(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: func(d []byte, v any) error { return yaml.Unmarshal(d, v) }},
		{name: "yaml", ext: ".yml", fn: func(d []byte, v any) error { return yaml.Unmarshal(d, v) }},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var cfg configFile
		if err := d.fn(data, &cfg); err == nil {
			return cfg, nil
		}
	}

	return configFile{}, errors.New("sinks file format not recognized (expected YAML or JSON)")
}

func sanitizeSinkConfig(c SinkConfig) SinkConfig {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.TrimSpace(strings.ToLower(c.Type))

	if c.HTTP != nil {
		if strings.TrimSpace(c.HTTP.Method) == "" {
			c.HTTP.Method = httpDefaultMethod
		}
		if c.HTTP.TimeoutSeconds <= 0 {
			c.HTTP.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
	}
	return c
}

func validateSinkConfig(c SinkConfig) error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.Type == "" {
		return fmt.Errorf("type is required for sink %q", c.ID)
	}
	return nil
}

// All returns a copy of the loaded sink configs.
func (r *ConfigRegistry) All() []SinkConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SinkConfig, len(r.sinks))
	copy(out, r.sinks)
	return out
}

// Enabled returns configs that are enabled (default true).
func (r *ConfigRegistry) Enabled() []SinkConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []SinkConfig
	for _, c := range r.sinks {
		if c.Enabled == nil || *c.Enabled {
			out = append(out, c)
		}
	}
	return out
}
