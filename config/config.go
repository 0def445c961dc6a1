package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the model credentials and story defaults.
type Config struct {
	LLM        LLMConfig   `yaml:"llm" json:"llm" validate:"required"`
	Story      StoryConfig `yaml:"story" json:"story"`
	ServerAddr string      `yaml:"server_addr" json:"server_addr,omitempty"`
}

// LLMConfig 模型配置；provider 为 mock 时不需要 api_key。
type LLMConfig struct {
	Provider          string        `yaml:"provider" json:"provider" validate:"required,oneof=openai deepseek mock"`
	Model             string        `yaml:"model" json:"model" validate:"required_unless=Provider mock"`
	APIKey            string        `yaml:"api_key" json:"api_key,omitempty" validate:"required_unless=Provider mock"`
	APIKeyEnv         string        `yaml:"api_key_env" json:"api_key_env,omitempty"`
	BaseURL           string        `yaml:"base_url" json:"base_url,omitempty" validate:"required_if=Provider deepseek,omitempty,url"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" validate:"min=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute" validate:"min=0,max=10000"`
	Burst             int           `yaml:"burst" json:"burst" validate:"min=0,max=1000"`
}

type StoryConfig struct {
	HistoryWindow      int    `yaml:"history_window" json:"history_window" validate:"min=1,max=100"`
	FeedBuffer         int    `yaml:"feed_buffer" json:"feed_buffer" validate:"min=1,max=100000"`
	DefaultStyle       string `yaml:"default_style" json:"default_style"`
	ParallelCharacters bool   `yaml:"parallel_characters" json:"parallel_characters"`
	Language           string `yaml:"language" json:"language" validate:"oneof=en es"`
}

const defaultAPIKeyEnv = "OPENAI_API_KEY"

// Default returns a configuration that runs offline against the mock model.
func Default() Config {
	cfg := Config{LLM: LLMConfig{Provider: "mock"}}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML (or JSON) config from disk. A .env file in the working
// directory is loaded first so credentials can stay out of the config file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, completes and validates raw config bytes.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.resolveAPIKey()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolveAPIKey() {
	key := strings.TrimSpace(c.LLM.APIKey)
	if strings.HasPrefix(key, "${") && strings.HasSuffix(key, "}") {
		c.LLM.APIKey = os.Getenv(strings.TrimSuffix(strings.TrimPrefix(key, "${"), "}"))
		return
	}
	if key != "" {
		return
	}
	env := c.LLM.APIKeyEnv
	if env == "" {
		env = defaultAPIKeyEnv
	}
	c.LLM.APIKey = os.Getenv(env)
}

func (c *Config) applyDefaults() {
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 2 * time.Minute
	}
	if c.LLM.RequestsPerMinute == 0 {
		c.LLM.RequestsPerMinute = 60
	}
	if c.LLM.Burst == 0 {
		c.LLM.Burst = 5
	}
	if c.Story.HistoryWindow == 0 {
		c.Story.HistoryWindow = 5
	}
	if c.Story.FeedBuffer == 0 {
		c.Story.FeedBuffer = 64
	}
	if c.Story.DefaultStyle == "" {
		c.Story.DefaultStyle = "descriptive"
	}
	if c.Story.Language == "" {
		c.Story.Language = "en"
	}
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
}

var validate = validator.New()

// Validate checks the struct tags and returns a readable error listing every
// offending field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
}
