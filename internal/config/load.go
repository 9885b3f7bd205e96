package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConventionalFiles are tried in order inside the working directory when no
// explicit config path is given. A missing file is skipped silently.
var ConventionalFiles = []string{"flowscribe.yaml", "flowscribe.yml"}

// Environment variables recognized as an override layer between the config
// file and explicit caller overrides.
const (
	EnvLLMHost  = "FS_LLM_HOST"
	EnvLLMModel = "FS_LLM_MODEL"
)

// Overrides is the explicit top layer, populated by command-line flags or a
// programmatic caller. Nil fields leave the prior layer untouched.
type Overrides struct {
	InputPath      *string
	OutputRoot     *string
	Backend        *string
	Host           *string
	Model          *string
	APIKey         *string
	NumPredict     *int
	Temperature    *float64
	TopP           *float64
	NumCtx         *int
	RepeatPenalty  *float64
	Profile        *string
	SystemTemplate *string
	UserTemplate   *string
	DryRun         *bool
	Verbose        *bool
	Workers        *int
	ProtocolLimit  *int
}

// overlay mirrors Config with pointer-valued scalars so a partially populated
// layer (config file, env) can be merged field-by-field onto the layer below.
type overlay struct {
	InputPath  *string        `yaml:"input_path"`
	OutputRoot *string        `yaml:"output_root"`
	LLM        *llmOverlay    `yaml:"llm"`
	Prompts    *promptOverlay `yaml:"prompts"`
	Run        *runOverlay    `yaml:"run"`
}

type llmOverlay struct {
	Backend *string         `yaml:"backend"`
	Host    *string         `yaml:"host"`
	Model   *string         `yaml:"model"`
	APIKey  *string         `yaml:"api_key"`
	Options *optionsOverlay `yaml:"options"`
}

type optionsOverlay struct {
	NumPredict    *int     `yaml:"num_predict"`
	Temperature   *float64 `yaml:"temperature"`
	TopP          *float64 `yaml:"top_p"`
	NumCtx        *int     `yaml:"num_ctx"`
	RepeatPenalty *float64 `yaml:"repeat_penalty"`
}

type promptOverlay struct {
	Profile        *string `yaml:"profile"`
	SystemTemplate *string `yaml:"system_template"`
	UserTemplate   *string `yaml:"user_template"`
}

type runOverlay struct {
	DryRun             *bool `yaml:"dry_run"`
	Verbose            *bool `yaml:"verbose"`
	Workers            *int  `yaml:"workers"`
	ProtocolErrorLimit *int  `yaml:"protocol_error_limit"`
}

// Resolve builds the final configuration: defaults < config file < env <
// overrides. lookupEnv is os.LookupEnv in production and injectable in tests.
// Any error returned here is a configuration error and fatal to the run.
func Resolve(explicitPath string, lookupEnv func(string) (string, bool), ovr Overrides) (Config, error) {
	cfg := Defaults()

	fileLayer, err := loadFileLayer(explicitPath)
	if err != nil {
		return Config{}, err
	}
	if fileLayer != nil {
		cfg.apply(*fileLayer)
	}

	cfg.apply(envLayer(lookupEnv))
	cfg.apply(ovr.overlay())

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFileLayer finds and parses the config file. A nil overlay with nil error
// means no file was present, which is fine unless one was explicitly named.
func loadFileLayer(explicitPath string) (*overlay, error) {
	if explicitPath != "" {
		return parseFile(explicitPath, true)
	}
	for _, name := range ConventionalFiles {
		layer, err := parseFile(name, false)
		if err != nil {
			return nil, err
		}
		if layer != nil {
			return layer, nil
		}
	}
	return nil, nil
}

func parseFile(path string, required bool) (*overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	// Unknown keys are a validation error, not silently dropped, so a typo
	// like "temprature" is caught at resolve time instead of being ignored.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var layer overlay
	if err := dec.Decode(&layer); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &layer, nil
}

func envLayer(lookupEnv func(string) (string, bool)) overlay {
	var layer overlay
	llm := &llmOverlay{}
	if v, ok := lookupEnv(EnvLLMHost); ok && strings.TrimSpace(v) != "" {
		llm.Host = &v
	}
	if v, ok := lookupEnv(EnvLLMModel); ok && strings.TrimSpace(v) != "" {
		llm.Model = &v
	}
	if llm.Host != nil || llm.Model != nil {
		layer.LLM = llm
	}
	return layer
}

func (o Overrides) overlay() overlay {
	return overlay{
		InputPath:  o.InputPath,
		OutputRoot: o.OutputRoot,
		LLM: &llmOverlay{
			Backend: o.Backend,
			Host:    o.Host,
			Model:   o.Model,
			APIKey:  o.APIKey,
			Options: &optionsOverlay{
				NumPredict:    o.NumPredict,
				Temperature:   o.Temperature,
				TopP:          o.TopP,
				NumCtx:        o.NumCtx,
				RepeatPenalty: o.RepeatPenalty,
			},
		},
		Prompts: &promptOverlay{
			Profile:        o.Profile,
			SystemTemplate: o.SystemTemplate,
			UserTemplate:   o.UserTemplate,
		},
		Run: &runOverlay{
			DryRun:             o.DryRun,
			Verbose:            o.Verbose,
			Workers:            o.Workers,
			ProtocolErrorLimit: o.ProtocolLimit,
		},
	}
}

// apply merges one layer onto the config. Only non-nil fields replace the
// current value; paths are expanded so relative inputs behave like the CLI.
func (c *Config) apply(layer overlay) {
	if layer.InputPath != nil {
		c.InputPath = expandPath(*layer.InputPath)
	}
	if layer.OutputRoot != nil {
		c.OutputRoot = expandPath(*layer.OutputRoot)
	}
	if l := layer.LLM; l != nil {
		if l.Backend != nil {
			c.LLM.Backend = strings.ToLower(strings.TrimSpace(*l.Backend))
		}
		if l.Host != nil {
			c.LLM.Host = strings.TrimSpace(*l.Host)
		}
		if l.Model != nil {
			c.LLM.Model = strings.TrimSpace(*l.Model)
		}
		if l.APIKey != nil {
			c.LLM.APIKey = *l.APIKey
		}
		if opts := l.Options; opts != nil {
			if opts.NumPredict != nil {
				c.LLM.Options.NumPredict = opts.NumPredict
			}
			if opts.Temperature != nil {
				c.LLM.Options.Temperature = opts.Temperature
			}
			if opts.TopP != nil {
				c.LLM.Options.TopP = opts.TopP
			}
			if opts.NumCtx != nil {
				c.LLM.Options.NumCtx = opts.NumCtx
			}
			if opts.RepeatPenalty != nil {
				c.LLM.Options.RepeatPenalty = opts.RepeatPenalty
			}
		}
	}
	if p := layer.Prompts; p != nil {
		if p.Profile != nil {
			c.Prompts.Profile = strings.TrimSpace(*p.Profile)
		}
		if p.SystemTemplate != nil {
			c.Prompts.SystemTemplate = *p.SystemTemplate
		}
		if p.UserTemplate != nil {
			c.Prompts.UserTemplate = *p.UserTemplate
		}
	}
	if r := layer.Run; r != nil {
		if r.DryRun != nil {
			c.Run.DryRun = *r.DryRun
		}
		if r.Verbose != nil {
			c.Run.Verbose = *r.Verbose
		}
		if r.Workers != nil {
			c.Run.Workers = *r.Workers
		}
		if r.ProtocolErrorLimit != nil {
			c.Run.ProtocolErrorLimit = *r.ProtocolErrorLimit
		}
	}
}

func expandPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, trimmed[2:])
		}
	}
	return filepath.Clean(trimmed)
}
