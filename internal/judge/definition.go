package judge

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"raisebar/internal/domain"
)

// Definition configures one judge on the panel.
type Definition struct {
	ID          string           `toml:"id"`
	Name        string           `toml:"name"`
	Role        string           `toml:"role"`
	Avatar      string           `toml:"avatar"`
	Type        domain.JudgeType `toml:"type"`
	Weight      float64          `toml:"weight"`
	Backend     string           `toml:"backend"`
	Model       string           `toml:"model"`
	Temperature *float64         `toml:"temperature"`
	MaxTokens   int              `toml:"max_tokens"`
	System      string           `toml:"system"`
	Prompt      string           `toml:"prompt"`

	tmpl *template.Template
}

// PromptSide is one player's view inside a prompt template.
type PromptSide struct {
	Text         string
	WordCount    int
	Matched      []string
	MatchedCount int
}

// PromptData is the template input: {{.P1.Text}}, {{.P2.MatchedCount}}, ...
type PromptData struct {
	P1 PromptSide
	P2 PromptSide
}

func newPromptSide(text string, matched []string) PromptSide {
	return PromptSide{
		Text:         text,
		WordCount:    len(strings.Fields(text)),
		Matched:      matched,
		MatchedCount: len(matched),
	}
}

// compile validates the definition and parses its prompt template.
func (d *Definition) compile() error {
	d.ID = strings.TrimSpace(d.ID)
	d.Name = strings.TrimSpace(d.Name)
	d.Backend = strings.TrimSpace(d.Backend)
	d.Type = domain.JudgeType(strings.ToLower(strings.TrimSpace(string(d.Type))))

	if d.ID == "" {
		return errors.New("judge id required")
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if !d.Type.Valid() {
		return fmt.Errorf("judge %s: unknown type %q", d.ID, d.Type)
	}
	if d.Type == domain.JudgeScorer && d.Weight <= 0 {
		return fmt.Errorf("judge %s: scorer weight must be positive", d.ID)
	}
	if d.Type == domain.JudgeAdvisor {
		d.Weight = 0
	}
	if d.Temperature != nil && *d.Temperature < 0 {
		return fmt.Errorf("judge %s: temperature must not be negative", d.ID)
	}
	if d.Backend == "" {
		return fmt.Errorf("judge %s: backend required", d.ID)
	}
	if strings.TrimSpace(d.Prompt) == "" {
		return fmt.Errorf("judge %s: prompt required", d.ID)
	}

	tmpl, err := template.New(d.ID).Option("missingkey=error").Parse(d.Prompt)
	if err != nil {
		return fmt.Errorf("judge %s: parse prompt: %w", d.ID, err)
	}
	d.tmpl = tmpl
	return nil
}

// render builds the user prompt for this judge.
func (d Definition) render(data PromptData) (string, error) {
	if d.tmpl == nil {
		return "", fmt.Errorf("judge %s: prompt not compiled", d.ID)
	}
	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("judge %s: render prompt: %w", d.ID, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// compileAll validates a panel and rejects duplicate ids.
func compileAll(defs []Definition) ([]Definition, error) {
	if len(defs) == 0 {
		return nil, errors.New("judge panel: at least one judge required")
	}
	out := make([]Definition, len(defs))
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if err := def.compile(); err != nil {
			return nil, fmt.Errorf("judge panel: %w", err)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("judge panel: duplicate judge id %q", def.ID)
		}
		seen[def.ID] = true
		out[i] = def
	}
	return out, nil
}
