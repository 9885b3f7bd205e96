// internal/config/config.go
//
// This package resolves the runtime configuration for a flowscribe run.
// Values are layered: built-in defaults, then a config file, then environment
// variables, then explicit overrides from the caller. Once resolved, a Config
// is never mutated again; every component reads the same value.

package config

import (
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// BackendOllama selects the native Ollama chat endpoint.
	BackendOllama = "ollama"
	// BackendOpenAI selects any OpenAI-compatible chat-completions endpoint.
	BackendOpenAI = "openai"

	defaultHost       = "http://localhost:11434"
	defaultModel      = "llama3.2:1b"
	defaultOutputRoot = "generated"
	defaultProfile    = "n8n-doc"

	maxWorkers = 16
)

// SamplingOptions are the generation knobs forwarded verbatim to the backend.
// Nil fields are omitted from the request so the backend applies its own
// defaults.
type SamplingOptions struct {
	NumPredict    *int     `yaml:"num_predict,omitempty"`
	Temperature   *float64 `yaml:"temperature,omitempty"`
	TopP          *float64 `yaml:"top_p,omitempty"`
	NumCtx        *int     `yaml:"num_ctx,omitempty"`
	RepeatPenalty *float64 `yaml:"repeat_penalty,omitempty"`
}

// LLMConfig identifies the backend target and its sampling options.
type LLMConfig struct {
	Backend string          `yaml:"backend"`
	Host    string          `yaml:"host"`
	Model   string          `yaml:"model"`
	APIKey  string          `yaml:"api_key,omitempty"`
	Options SamplingOptions `yaml:"options"`
}

// PromptConfig carries the prompt templates. Template text is data, supplied
// here, never hard-coded in the prompt builder.
type PromptConfig struct {
	Profile        string `yaml:"profile"`
	SystemTemplate string `yaml:"system_template"`
	UserTemplate   string `yaml:"user_template"`
}

// RunConfig holds per-run execution flags.
type RunConfig struct {
	DryRun  bool `yaml:"dry_run"`
	Verbose bool `yaml:"verbose"`
	// Workers bounds concurrent in-flight backend calls. 1 means sequential.
	Workers int `yaml:"workers"`
	// ProtocolErrorLimit aborts the batch after this many consecutive
	// protocol errors. 0 disables the limit.
	ProtocolErrorLimit int `yaml:"protocol_error_limit"`
}

// Config is the fully resolved configuration for one run.
type Config struct {
	InputPath  string       `yaml:"input_path"`
	OutputRoot string       `yaml:"output_root"`
	LLM        LLMConfig    `yaml:"llm"`
	Prompts    PromptConfig `yaml:"prompts"`
	Run        RunConfig    `yaml:"run"`
}

// Defaults returns the built-in base layer. Every field has a usable value so
// later layers only ever replace, never fill gaps at use sites.
func Defaults() Config {
	return Config{
		OutputRoot: defaultOutputRoot,
		LLM: LLMConfig{
			Backend: BackendOllama,
			Host:    defaultHost,
			Model:   defaultModel,
		},
		Prompts: PromptConfig{
			Profile:        defaultProfile,
			SystemTemplate: DefaultSystemTemplate,
			UserTemplate:   DefaultUserTemplate,
		},
		Run: RunConfig{
			Workers: 1,
		},
	}
}

// Render marshals the config back to YAML for `config show`. The templates
// dominate the output, so they are elided to their first line unless verbose.
func (c Config) Render(verbose bool) (string, error) {
	shown := c
	if !verbose {
		shown.Prompts.SystemTemplate = firstLine(c.Prompts.SystemTemplate)
		shown.Prompts.UserTemplate = firstLine(c.Prompts.UserTemplate)
	}
	data, err := yaml.Marshal(shown)
	if err != nil {
		return "", fmt.Errorf("config: encode: %w", err)
	}
	return string(data), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func (c *Config) validate() error {
	host := strings.TrimSpace(c.LLM.Host)
	if host == "" {
		return fmt.Errorf("config: llm.host is required")
	}
	if u, err := url.Parse(host); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: llm.host %q is not a valid URL", c.LLM.Host)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("config: llm.model is required")
	}
	switch c.LLM.Backend {
	case BackendOllama, BackendOpenAI:
	default:
		return fmt.Errorf("config: llm.backend must be %q or %q, got %q", BackendOllama, BackendOpenAI, c.LLM.Backend)
	}
	opts := c.LLM.Options
	if opts.Temperature != nil && (*opts.Temperature < 0 || *opts.Temperature > 2) {
		return fmt.Errorf("config: llm.options.temperature %v outside [0, 2]", *opts.Temperature)
	}
	if opts.TopP != nil && (*opts.TopP <= 0 || *opts.TopP > 1) {
		return fmt.Errorf("config: llm.options.top_p %v outside (0, 1]", *opts.TopP)
	}
	if opts.NumPredict != nil && *opts.NumPredict <= 0 {
		return fmt.Errorf("config: llm.options.num_predict must be positive, got %d", *opts.NumPredict)
	}
	if opts.NumCtx != nil && *opts.NumCtx <= 0 {
		return fmt.Errorf("config: llm.options.num_ctx must be positive, got %d", *opts.NumCtx)
	}
	if opts.RepeatPenalty != nil && *opts.RepeatPenalty <= 0 {
		return fmt.Errorf("config: llm.options.repeat_penalty must be positive, got %v", *opts.RepeatPenalty)
	}
	if c.Run.Workers < 1 || c.Run.Workers > maxWorkers {
		return fmt.Errorf("config: run.workers must be in [1, %d], got %d", maxWorkers, c.Run.Workers)
	}
	if c.Run.ProtocolErrorLimit < 0 {
		return fmt.Errorf("config: run.protocol_error_limit must be >= 0, got %d", c.Run.ProtocolErrorLimit)
	}
	return nil
}
