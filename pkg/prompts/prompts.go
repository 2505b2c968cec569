package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

//go:embed default.yaml
var defaultPrompts []byte

type Prompts struct {
	System  FamilyPrompts `yaml:"system"`
	Enhance FamilyPrompts `yaml:"enhance"`
}

// FamilyPrompts holds one template per provider family.
type FamilyPrompts struct {
	Gemini string `yaml:"gemini"`
	Chat   string `yaml:"chat"`
}

type EnhanceParams struct {
	Idea        string
	Tone        string
	PointOfView string
	ClipSeconds int
	MinWords    int
	MaxWords    int
}

// Load reads prompts.yaml from the working directory and falls back to the
// built-in catalogue when the file does not exist.
func Load() (*Prompts, error) {
	p, err := LoadFrom(defaultPromptsPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	return p, err
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return parse(data)
}

func Default() (*Prompts, error) {
	return parse(defaultPrompts)
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	return &p, nil
}

func (f FamilyPrompts) get(family string) (string, error) {
	switch family {
	case "gemini":
		return f.Gemini, nil
	case "chat":
		return f.Chat, nil
	default:
		return "", fmt.Errorf("unknown prompt family: %q", family)
	}
}

func (p *Prompts) SystemFor(family string) string {
	s, _ := p.System.get(family)
	return s
}

func (p *Prompts) RenderEnhance(family string, params EnhanceParams) (string, error) {
	tmpl, err := p.Enhance.get(family)
	if err != nil {
		return "", err
	}
	if tmpl == "" {
		return "", fmt.Errorf("no enhance template for family %q", family)
	}
	return render(tmpl, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
