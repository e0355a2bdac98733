package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"coach-connect/internal/domain/model"
)

//go:embed prompts/*.txt
var builtinPrompts embed.FS

const builtinPrefix = "builtin:"

const (
	DefaultCoachModel   = "ft:gpt-4.1-mini-2025-04-14:personal:coach-connect:BOZ5t36c"
	DefaultRoutineModel = "ft:gpt-4o-mini-2024-07-18:personal:coach-connect:AJKDMw15"
)

type CompletionConfig struct {
	Sentinels []string `yaml:"sentinels"`
	Marker    string   `yaml:"marker"`
	Steps     int      `yaml:"steps"`
}

type ForwardConfig struct {
	Endpoint      string `yaml:"endpoint"`
	StripNonASCII *bool  `yaml:"strip_non_ascii"`
}

// FlowConfig describes one chat endpoint. Entries whose name matches a
// built-in flow only need the fields they change.
type FlowConfig struct {
	Name           string           `yaml:"name"`
	Path           string           `yaml:"path"`
	Mode           string           `yaml:"mode"` // template|direct
	Model          string           `yaml:"model"`
	Temperature    *float64         `yaml:"temperature"`
	Stop           []string         `yaml:"stop"`
	Template       string           `yaml:"template"`
	TemplateFile   string           `yaml:"template_file"` // path, or builtin:<name>
	RequireToken   *bool            `yaml:"require_token"`
	WorkoutContext *bool            `yaml:"workout_context"`
	Greeting       string           `yaml:"greeting"`
	PagePath       string           `yaml:"page_path"`
	StreamProtocol string           `yaml:"stream_protocol"` // text|data
	Completion     CompletionConfig `yaml:"completion"`
	Forward        ForwardConfig    `yaml:"forward"`
	Disabled       bool             `yaml:"disabled"`
}

func ptr[T any](v T) *T { return &v }

// DefaultFlows returns the four endpoints the CoachConnect front end talks to.
func DefaultFlows() []FlowConfig {
	return []FlowConfig{
		{
			Name:         "onboarding",
			Path:         "/chat/api/ex2",
			Mode:         string(model.FlowTemplate),
			Model:        DefaultCoachModel,
			Temperature:  ptr(0.8),
			Stop:         []string{"assistant"},
			TemplateFile: builtinPrefix + "onboarding",
			RequireToken: ptr(false),
			Greeting:     "Hola, soy un asistente de entrenamiento que necesita conocerte para armar la rutina. Primero necesito preguntarte cual es tu edad?",
			PagePath:     "/chat",
			Completion: CompletionConfig{Sentinels: []string{
				"And lastly",
				"Are there any other preferences for your routine",
				"e.g., target areas, rest days, training style",
				"por ultimo",
			}},
			Forward: ForwardConfig{Endpoint: "/answers", StripNonASCII: ptr(true)},
		},
		{
			Name:           "edit",
			Path:           "/editWorkout/api/edit",
			Mode:           string(model.FlowTemplate),
			Model:          DefaultCoachModel,
			Temperature:    ptr(0.8),
			Stop:           []string{"assistant"},
			TemplateFile:   builtinPrefix + "edit",
			RequireToken:   ptr(true),
			WorkoutContext: ptr(true),
			Greeting:       "Hi! I’m CoachConnect — your personal AI fitness coach. 💪\n\nLet’s fine-tune your current training plan so it fits you even better.\n\nIs there anything you’d like me to change or adjust in your routine? (e.g., focus areas, number of sessions, intensity)",
			PagePath:       "/editWorkout",
			Completion: CompletionConfig{Sentinels: []string{
				"Before I proceed",
				"Is there anything you'd like me to change",
			}},
			Forward: ForwardConfig{Endpoint: "/editWorkout", StripNonASCII: ptr(true)},
		},
		{
			Name:         "routine",
			Path:         "/api/ex2",
			Mode:         string(model.FlowTemplate),
			Model:        DefaultRoutineModel,
			Temperature:  ptr(0.8),
			Stop:         []string{"assistant"},
			TemplateFile: builtinPrefix + "routine",
		},
		{
			Name:  "direct",
			Path:  "/api/chat",
			Mode:  string(model.FlowDirect),
			Model: DefaultRoutineModel,
		},
	}
}

func mergeFlows(defaults, overrides []FlowConfig) []FlowConfig {
	byName := make(map[string]int, len(defaults))
	out := append([]FlowConfig(nil), defaults...)
	for i, f := range out {
		byName[f.Name] = i
	}
	for _, o := range overrides {
		i, ok := byName[o.Name]
		if !ok {
			byName[o.Name] = len(out)
			out = append(out, o)
			continue
		}
		out[i] = overlay(out[i], o)
	}
	kept := out[:0]
	for _, f := range out {
		if !f.Disabled {
			kept = append(kept, f)
		}
	}
	return kept
}

func overlay(base, o FlowConfig) FlowConfig {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setStr(&base.Path, o.Path)
	setStr(&base.Mode, o.Mode)
	setStr(&base.Model, o.Model)
	setStr(&base.Greeting, o.Greeting)
	setStr(&base.PagePath, o.PagePath)
	setStr(&base.StreamProtocol, o.StreamProtocol)
	if o.Template != "" || o.TemplateFile != "" {
		base.Template, base.TemplateFile = o.Template, o.TemplateFile
	}
	if o.Temperature != nil {
		base.Temperature = o.Temperature
	}
	if o.Stop != nil {
		base.Stop = o.Stop
	}
	if o.RequireToken != nil {
		base.RequireToken = o.RequireToken
	}
	if o.WorkoutContext != nil {
		base.WorkoutContext = o.WorkoutContext
	}
	if o.Completion.Sentinels != nil {
		base.Completion.Sentinels = o.Completion.Sentinels
	}
	setStr(&base.Completion.Marker, o.Completion.Marker)
	if o.Completion.Steps != 0 {
		base.Completion.Steps = o.Completion.Steps
	}
	setStr(&base.Forward.Endpoint, o.Forward.Endpoint)
	if o.Forward.StripNonASCII != nil {
		base.Forward.StripNonASCII = o.Forward.StripNonASCII
	}
	base.Disabled = o.Disabled
	return base
}

func (f FlowConfig) validate() error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	if f.Path == "" || !strings.HasPrefix(f.Path, "/") {
		return fmt.Errorf("flow %q: path must start with /", f.Name)
	}
	if f.PagePath != "" && !strings.HasPrefix(f.PagePath, "/") {
		return fmt.Errorf("flow %q: page_path must start with /", f.Name)
	}
	switch model.FlowMode(f.Mode) {
	case model.FlowTemplate:
		if f.Template == "" && f.TemplateFile == "" {
			return fmt.Errorf("flow %q: template flows need template or template_file", f.Name)
		}
	case model.FlowDirect:
	default:
		return fmt.Errorf("flow %q: unknown mode %q", f.Name, f.Mode)
	}
	switch f.StreamProtocol {
	case "", model.StreamText, model.StreamData:
	default:
		return fmt.Errorf("flow %q: unknown stream_protocol %q", f.Name, f.StreamProtocol)
	}
	if f.Completion.Steps < 0 {
		return fmt.Errorf("flow %q: completion.steps must not be negative", f.Name)
	}
	if f.Forward.Endpoint != "" && !strings.HasPrefix(f.Forward.Endpoint, "/") {
		return fmt.Errorf("flow %q: forward.endpoint must start with /", f.Name)
	}
	return nil
}

// BuildFlows resolves templates and converts the configured flows to their
// domain form.
func (c *Config) BuildFlows() ([]model.Flow, error) {
	out := make([]model.Flow, 0, len(c.Flows))
	for _, f := range c.Flows {
		tmpl, err := f.loadTemplate()
		if err != nil {
			return nil, fmt.Errorf("flow %q: %w", f.Name, err)
		}
		proto := f.StreamProtocol
		if proto == "" {
			proto = model.StreamData
		}
		mdl := f.Model
		if mdl == "" {
			mdl = c.AI.DefaultModel
		}
		out = append(out, model.Flow{
			Name:           f.Name,
			Path:           f.Path,
			PagePath:       f.PagePath,
			Greeting:       f.Greeting,
			Mode:           model.FlowMode(f.Mode),
			Model:          mdl,
			Temperature:    f.Temperature,
			Stop:           f.Stop,
			Template:       tmpl,
			RequireToken:   f.RequireToken != nil && *f.RequireToken,
			WorkoutContext: f.WorkoutContext != nil && *f.WorkoutContext,
			StreamProtocol: proto,
			Completion: model.CompletionDetector{
				Sentinels: f.Completion.Sentinels,
				Marker:    f.Completion.Marker,
				Steps:     f.Completion.Steps,
			},
			Forward: model.ForwardTarget{
				Endpoint:      f.Forward.Endpoint,
				StripNonASCII: f.Forward.StripNonASCII != nil && *f.Forward.StripNonASCII,
			},
		})
	}
	return out, nil
}

func (f FlowConfig) loadTemplate() (string, error) {
	if f.Template != "" || f.TemplateFile == "" {
		return f.Template, nil
	}
	if name, ok := strings.CutPrefix(f.TemplateFile, builtinPrefix); ok {
		b, err := builtinPrompts.ReadFile("prompts/" + name + ".txt")
		if err != nil {
			return "", fmt.Errorf("unknown builtin template %q", name)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(f.TemplateFile)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(b), nil
}
