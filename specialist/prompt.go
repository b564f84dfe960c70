package specialist

import (
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gautammanak1/taskmesh/core"
)

var promptFuncs = template.FuncMap{
	"default": func(fallback, val any) any {
		if val == nil || val == "" {
			return fallback
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"title": func(s string) string { return cases.Title(language.Und).String(s) },
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
}

// renderPrompt expands a prompt template against the descriptor. The
// template sees the keys name, description and specialties.
func renderPrompt(text string, d core.SpecialistDescriptor) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New(d.Name).Funcs(promptFuncs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse instruction for %q: %w", d.Name, err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, map[string]any{
		"name":        d.Name,
		"description": d.Description,
		"specialties": d.Specialties,
	}); err != nil {
		return "", fmt.Errorf("render instruction for %q: %w", d.Name, err)
	}

	return sb.String(), nil
}
