package config

import (
	"fmt"
	"io"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/gautammanak1/taskmesh"
	"github.com/gautammanak1/taskmesh/a2a"
	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/logging"
	"github.com/gautammanak1/taskmesh/model"
	"github.com/gautammanak1/taskmesh/model/anthropic"
	"github.com/gautammanak1/taskmesh/model/openai"
	"github.com/gautammanak1/taskmesh/registry"
	"github.com/gautammanak1/taskmesh/specialist"
)

// SpecialistRecords returns the configured specialists, or the built-in
// personas when none are configured.
func (c *Config) SpecialistRecords() []SpecialistConfig {
	if len(c.Specialists) > 0 {
		return c.Specialists
	}

	personas := specialist.Personas()
	records := make([]SpecialistConfig, 0, len(personas))
	for _, p := range personas {
		priority := p.Descriptor.Priority
		records = append(records, SpecialistConfig{
			Name:        p.Descriptor.Name,
			Description: p.Descriptor.Description,
			Specialties: p.Descriptor.Specialties,
			Priority:    &priority,
			Default:     p.Descriptor.Default,
		})
	}

	return records
}

// Descriptor converts a record into a specialist descriptor.
func (s SpecialistConfig) Descriptor() core.SpecialistDescriptor {
	return core.SpecialistDescriptor{
		Name:        s.Name,
		Description: s.Description,
		Specialties: append([]string(nil), s.Specialties...),
		Priority:    s.EffectivePriority(),
		Endpoint:    s.Endpoint,
		Default:     s.Default,
	}
}

// BuildRegistry registers every specialist record in configuration order.
func (c *Config) BuildRegistry() (*registry.Registry, error) {
	reg := registry.New()
	for _, s := range c.SpecialistRecords() {
		if err := reg.Register(s.Descriptor()); err != nil {
			return nil, fmt.Errorf("registering specialist: %w", err)
		}
	}

	return reg, nil
}

// BuildResolver returns a resolver serving every specialist record: records
// with an endpoint are forwarded over A2A, the rest run a local model.
func (c *Config) BuildResolver(logger logging.Logger) (core.Resolver, error) {
	dir := specialist.NewDirectory()
	remote := a2a.NewRemoteResolver(func(o *a2a.RemoteOptions) { o.Logger = logger })

	models := map[string]model.Model{}
	for _, s := range c.SpecialistRecords() {
		if s.Endpoint != "" {
			dir.Register(s.Name, remote.Resolve)
			continue
		}

		provider := s.Provider
		if provider == "" {
			provider = c.Providers.Default
		}

		key := provider + "/" + s.Model
		llm, ok := models[key]
		if !ok {
			var err error
			if llm, err = c.newModel(provider, s.Model); err != nil {
				return nil, fmt.Errorf("specialist %s: %w", s.Name, err)
			}
			models[key] = llm
		}

		dir.Register(s.Name, specialist.ModelFactory(llm, func(o *specialist.ModelExecutorOptions) {
			o.Instruction = instructionFor(s)
			o.Logger = logger
		}))
	}

	return dir, nil
}

func instructionFor(s SpecialistConfig) specialist.Instruction {
	if s.SystemPrompt != "" {
		return specialist.NewInstructionFromText(s.SystemPrompt)
	}
	for _, p := range specialist.Personas() {
		if p.Descriptor.Name == s.Name {
			return p.Instruction
		}
	}
	return specialist.DefaultInstruction
}

func (c *Config) newModel(provider, name string) (model.Model, error) {
	switch strings.ToLower(provider) {
	case ProviderMock, "":
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, ProviderMock), nil
	case ProviderOpenAI:
		if name == "" {
			name = c.Providers.OpenAI.Model
		}
		return openai.NewModel(func(o *openai.Options) {
			o.Model = name
			o.APIKey = c.Providers.OpenAI.APIKey
			o.BaseURL = c.Providers.OpenAI.BaseURL
		}), nil
	case ProviderAnthropic:
		if name == "" {
			name = c.Providers.Anthropic.Model
		}
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(name)
			o.APIKey = c.Providers.Anthropic.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// CoordinatorOptions applies the coordinator section to taskmesh.Options.
func (c *Config) CoordinatorOptions(logger logging.Logger) func(o *taskmesh.Options) {
	return func(o *taskmesh.Options) {
		o.EventBufferSize = c.Coordinator.EventBufferSize
		o.MaxConcurrentTasks = c.Coordinator.MaxConcurrentTasks
		o.TaskTimeout = c.Coordinator.TaskTimeout
		o.ConsolidateOutput = c.Coordinator.ConsolidateOutput
		o.MaxOutputBytes = c.Coordinator.MaxOutputBytes
		o.Logger = logger
	}
}

// NewLogger builds the logger described by the logging section.
func (c *Config) NewLogger(w io.Writer) *logging.TaskLogger {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LogLevelInfo
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:       level,
		Format:      c.Logging.Format,
		Output:      w,
		AddSource:   c.Logging.AddSource,
		CustomAttrs: map[string]any{},
	})
}
