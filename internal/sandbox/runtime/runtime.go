// Package runtime holds the static catalogue of supported language runtimes.
package runtime

import (
	"sort"
	"strings"

	"execbox/internal/sandbox/spec"
	appErr "execbox/pkg/errors"

	"github.com/google/shlex"
)

// Command template placeholders, substituted after shlex splitting so a
// placeholder can never smuggle extra arguments in.
const (
	placeholderSource = "{source}"
	placeholderBinary = "{binary}"
)

// LanguageSpec defines how to compile and run one language.
// Instances are created once at startup and never mutated.
type LanguageSpec struct {
	ID                string             `yaml:"id"`
	Name              string             `yaml:"name"`
	Version           string             `yaml:"version"`
	SourceFile        string             `yaml:"sourceFile"`
	BinaryFile        string             `yaml:"binaryFile"`
	CompileEnabled    bool               `yaml:"compileEnabled"`
	CompileCmdTpl     string             `yaml:"compileCmd"`
	RunCmdTpl         string             `yaml:"runCmd"`
	Env               []string           `yaml:"env"`
	CompileWallTimeMs int64              `yaml:"compileWallTimeMs"`
	Limits            spec.ResourceLimit `yaml:"limits"`
}

// Registry maps language identifiers to their runtime recipes.
// It is read-only after construction, so no synchronization is needed.
type Registry struct {
	specs map[string]LanguageSpec
}

// NewRegistry validates the given specs and builds the registry.
// Command templates are split eagerly so a malformed template fails
// startup instead of a job.
func NewRegistry(specs []LanguageSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("at least one language must be configured")
	}
	byID := make(map[string]LanguageSpec, len(specs))
	for _, s := range specs {
		if s.ID == "" {
			return nil, appErr.ValidationError("language.id", "required")
		}
		if _, dup := byID[s.ID]; dup {
			return nil, appErr.ValidationError("language.id", "duplicate: "+s.ID)
		}
		if s.SourceFile == "" {
			return nil, appErr.ValidationError("language.sourceFile", "required for "+s.ID)
		}
		if s.RunCmdTpl == "" {
			return nil, appErr.ValidationError("language.runCmd", "required for "+s.ID)
		}
		if _, err := splitTemplate(s.RunCmdTpl); err != nil {
			return nil, appErr.Wrapf(err, appErr.ValidationFailed, "invalid run command for %s", s.ID)
		}
		if s.CompileEnabled {
			if s.CompileCmdTpl == "" {
				return nil, appErr.ValidationError("language.compileCmd", "required for "+s.ID)
			}
			if s.BinaryFile == "" {
				return nil, appErr.ValidationError("language.binaryFile", "required for "+s.ID)
			}
			if _, err := splitTemplate(s.CompileCmdTpl); err != nil {
				return nil, appErr.Wrapf(err, appErr.ValidationFailed, "invalid compile command for %s", s.ID)
			}
		}
		byID[s.ID] = s
	}
	return &Registry{specs: byID}, nil
}

// Resolve returns the spec for a language identifier.
func (r *Registry) Resolve(language string) (LanguageSpec, error) {
	s, ok := r.specs[language]
	if !ok {
		return LanguageSpec{}, appErr.Newf(appErr.UnsupportedLanguage, "language %q is not supported", language)
	}
	return s, nil
}

// Languages returns the sorted list of registered language identifiers.
func (r *Registry) Languages() []LanguageSpec {
	out := make([]LanguageSpec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BuildCommand expands a command template into an argv slice.
func BuildCommand(tpl string, lang LanguageSpec) ([]string, error) {
	parts, err := splitTemplate(tpl)
	if err != nil {
		return nil, err
	}
	cmd := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, placeholderSource, lang.SourceFile)
		p = strings.ReplaceAll(p, placeholderBinary, lang.BinaryFile)
		cmd = append(cmd, p)
	}
	if len(cmd) == 0 {
		return nil, appErr.New(appErr.ValidationFailed).WithMessage("command template is empty")
	}
	return cmd, nil
}

func splitTemplate(tpl string) ([]string, error) {
	parts, err := shlex.Split(tpl)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, appErr.New(appErr.ValidationFailed).WithMessage("command template is empty")
	}
	return parts, nil
}
