// internal/prompt/builder.go
//
// The prompt builder turns one work item into the system/user prompt pair
// sent to the backend. Template text comes from configuration; the builder
// only substitutes placeholders, it owns no prose of its own.

package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"flowscribe/internal/config"
	"flowscribe/internal/discovery"
	"flowscribe/internal/workflow"
)

// ErrTemplate reports a placeholder the builder does not recognize. An
// unused recognized placeholder is never an error.
var ErrTemplate = errors.New("prompt: unresolved placeholder")

// Payload is a fully rendered prompt pair with no remaining placeholders.
type Payload struct {
	System string
	User   string
}

// Recognized placeholders. {workflow_json} expands to the deterministic
// serialization of the document, {filename} to its bare name, {profile} to
// the configured prompt profile.
const (
	placeholderFilename = "filename"
	placeholderWorkflow = "workflow_json"
	placeholderProfile  = "profile"
)

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Builder renders prompt payloads from configured templates.
type Builder struct {
	prompts config.PromptConfig
}

// NewBuilder validates both templates up front so a typoed placeholder fails
// the run before any document is loaded.
func NewBuilder(prompts config.PromptConfig) (*Builder, error) {
	for _, tmpl := range []string{prompts.SystemTemplate, prompts.UserTemplate} {
		if err := checkPlaceholders(tmpl); err != nil {
			return nil, err
		}
	}
	return &Builder{prompts: prompts}, nil
}

// Render loads the item's document and substitutes placeholders into both
// templates. A document that cannot be parsed surfaces as workflow.ErrDocument,
// not a template error.
func (b *Builder) Render(item discovery.WorkItem) (Payload, error) {
	doc, err := workflow.Load(item.SourcePath)
	if err != nil {
		return Payload{}, err
	}

	replacer := strings.NewReplacer(
		"{"+placeholderFilename+"}", doc.Filename(),
		"{"+placeholderWorkflow+"}", doc.Pretty,
		"{"+placeholderProfile+"}", b.prompts.Profile,
	)

	return Payload{
		System: replacer.Replace(b.prompts.SystemTemplate),
		User:   replacer.Replace(b.prompts.UserTemplate),
	}, nil
}

func checkPlaceholders(tmpl string) error {
	for _, match := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		switch match[1] {
		case placeholderFilename, placeholderWorkflow, placeholderProfile:
		default:
			return fmt.Errorf("%w: {%s}", ErrTemplate, match[1])
		}
	}
	return nil
}
