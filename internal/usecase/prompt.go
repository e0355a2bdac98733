package usecase

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"

	"coach-connect/internal/domain/model"
)

// PromptVars are the placeholders a flow template may reference.
type PromptVars struct {
	ChatHistory string
	Input       string
	UserWorkout string
}

func (v PromptVars) values() map[string]any {
	return map[string]any{
		"chat_history": v.ChatHistory,
		"input":        v.Input,
		"user_workout": v.UserWorkout,
	}
}

// PromptRenderer holds the parsed f-string template of every template flow.
type PromptRenderer struct {
	templates map[string]prompts.PromptTemplate
}

// NewPromptRenderer compiles and test-renders each template so a broken
// placeholder fails at startup instead of on a user's turn.
func NewPromptRenderer(flows []model.Flow) (*PromptRenderer, error) {
	r := &PromptRenderer{templates: make(map[string]prompts.PromptTemplate, len(flows))}
	for _, f := range flows {
		if f.Mode != model.FlowTemplate {
			continue
		}
		t := prompts.PromptTemplate{
			Template:       f.Template,
			InputVariables: []string{"chat_history", "input", "user_workout"},
			TemplateFormat: prompts.TemplateFormatFString,
		}
		if _, err := t.Format(PromptVars{}.values()); err != nil {
			return nil, fmt.Errorf("flow %q: template: %w", f.Name, err)
		}
		r.templates[f.Name] = t
	}
	return r, nil
}

// Render fills the template of the named flow.
func (r *PromptRenderer) Render(flow string, v PromptVars) (string, error) {
	t, ok := r.templates[flow]
	if !ok {
		return "", fmt.Errorf("no template for flow %q", flow)
	}
	return t.Format(v.values())
}
