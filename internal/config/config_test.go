package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noEnv(string) (string, bool) { return "", false }

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveDefaultsOnly(t *testing.T) {
	cfg, err := Resolve("", noEnv, Overrides{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.LLM.Host != "http://localhost:11434" {
		t.Fatalf("wrong default host: %s", cfg.LLM.Host)
	}
	if cfg.LLM.Model != "llama3.2:1b" {
		t.Fatalf("wrong default model: %s", cfg.LLM.Model)
	}
	if cfg.LLM.Backend != BackendOllama {
		t.Fatalf("wrong default backend: %s", cfg.LLM.Backend)
	}
	if cfg.Run.Workers != 1 {
		t.Fatalf("expected sequential default, got %d workers", cfg.Run.Workers)
	}
	if cfg.Prompts.Profile != "n8n-doc" {
		t.Fatalf("wrong default profile: %s", cfg.Prompts.Profile)
	}
	if !strings.Contains(cfg.Prompts.UserTemplate, "{workflow_json}") {
		t.Fatal("default user template lost its workflow placeholder")
	}
}

func TestResolveFileLayer(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "flowscribe.yaml", `
llm:
  host: http://llmbox:11434
  model: mistral:7b
  options:
    temperature: 0.2
run:
  workers: 3
`)

	cfg, err := Resolve(path, noEnv, Overrides{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.LLM.Host != "http://llmbox:11434" {
		t.Fatalf("file host not applied: %s", cfg.LLM.Host)
	}
	if cfg.LLM.Model != "mistral:7b" {
		t.Fatalf("file model not applied: %s", cfg.LLM.Model)
	}
	if cfg.LLM.Options.Temperature == nil || *cfg.LLM.Options.Temperature != 0.2 {
		t.Fatalf("file temperature not applied: %v", cfg.LLM.Options.Temperature)
	}
	if cfg.Run.Workers != 3 {
		t.Fatalf("file workers not applied: %d", cfg.Run.Workers)
	}
	// Untouched fields keep their defaults.
	if cfg.OutputRoot != "generated" {
		t.Fatalf("output root should stay default, got %s", cfg.OutputRoot)
	}
	if cfg.Prompts.SystemTemplate != DefaultSystemTemplate {
		t.Fatal("system template should stay default")
	}
}

func TestResolveExplicitFileMissing(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "nope.yaml"), noEnv, Overrides{})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestResolveUnknownKeyRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "flowscribe.yaml", `
llm:
  temprature_typo: 0.5
`)
	_, err := Resolve(path, noEnv, Overrides{})
	if err == nil {
		t.Fatal("expected unknown config key to be a validation error")
	}
}

func TestResolveEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "flowscribe.yaml", `
llm:
  host: http://from-file:11434
  model: from-file
`)
	env := envFrom(map[string]string{
		EnvLLMHost: "http://from-env:11434",
	})

	cfg, err := Resolve(path, env, Overrides{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.LLM.Host != "http://from-env:11434" {
		t.Fatalf("env host should win over file, got %s", cfg.LLM.Host)
	}
	// Env only overrides what it names.
	if cfg.LLM.Model != "from-file" {
		t.Fatalf("model should come from file, got %s", cfg.LLM.Model)
	}
}

func TestResolveOverridesWinOverEverything(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "flowscribe.yaml", `
llm:
  model: from-file
`)
	env := envFrom(map[string]string{EnvLLMModel: "from-env"})
	model := "from-flag"

	cfg, err := Resolve(path, env, Overrides{Model: &model})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.LLM.Model != "from-flag" {
		t.Fatalf("explicit override should win, got %s", cfg.LLM.Model)
	}
}

// Adding one override layer changes exactly the fields it names and no others.
func TestMergeChangesOnlyNamedFields(t *testing.T) {
	base, err := Resolve("", noEnv, Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	temp := 0.9
	layered, err := Resolve("", noEnv, Overrides{Temperature: &temp})
	if err != nil {
		t.Fatal(err)
	}

	if layered.LLM.Options.Temperature == nil || *layered.LLM.Options.Temperature != 0.9 {
		t.Fatalf("temperature not applied: %v", layered.LLM.Options.Temperature)
	}
	// Neutralize the changed field and compare the rest wholesale.
	layered.LLM.Options.Temperature = nil
	baseYAML, _ := base.Render(true)
	layeredYAML, _ := layered.Render(true)
	if baseYAML != layeredYAML {
		t.Fatalf("override changed unrelated fields:\n%s\n---\n%s", baseYAML, layeredYAML)
	}
}

func TestValidationRanges(t *testing.T) {
	bad := []Overrides{
		{Temperature: f64(2.5)},
		{Temperature: f64(-0.1)},
		{TopP: f64(0)},
		{TopP: f64(1.5)},
		{NumPredict: i(0)},
		{NumCtx: i(-1)},
		{RepeatPenalty: f64(0)},
		{Workers: i(0)},
		{Workers: i(64)},
		{ProtocolLimit: i(-1)},
		{Backend: s("mystery")},
		{Host: s("not a url")},
		{Host: s("")},
	}
	for idx, ovr := range bad {
		if _, err := Resolve("", noEnv, ovr); err == nil {
			t.Errorf("case %d: expected validation error", idx)
		}
	}
}

func TestRenderElidesTemplates(t *testing.T) {
	cfg := Defaults()
	out, err := cfg.Render(false)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Mermaid") {
		t.Fatal("non-verbose render should elide the full system template")
	}
	verbose, err := cfg.Render(true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(verbose, "Mermaid") {
		t.Fatal("verbose render should include the full system template")
	}
}

func TestConventionalFileErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "flowscribe.yaml", "llm: [broken")

	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })

	if _, err := Resolve("", noEnv, Overrides{}); err == nil {
		t.Fatal("expected parse error for malformed conventional config")
	}
}

func TestResolveMissingConventionalFilesIsFine(t *testing.T) {
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })

	if _, err := Resolve("", noEnv, Overrides{}); err != nil {
		t.Fatalf("missing conventional files should be skipped silently: %v", err)
	}
}

func TestExplicitReadFailureIsNotMissing(t *testing.T) {
	_, err := Resolve(t.TempDir(), noEnv, Overrides{})
	if err == nil {
		t.Fatal("expected error when explicit config path is a directory")
	}
	if errors.Is(err, os.ErrNotExist) {
		t.Fatal("directory read should not look like a missing file")
	}
}

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }
func s(v string) *string     { return &v }
