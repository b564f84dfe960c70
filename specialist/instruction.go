package specialist

import "github.com/gautammanak1/taskmesh/core"

// Provider supplies instruction text for a specialist at execution time.
type Provider interface {
	Instruction(core.SpecialistDescriptor) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(core.SpecialistDescriptor) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(d core.SpecialistDescriptor) (string, error) { return f(d) }

// Instruction represents either a static instruction template or a dynamic provider.
//
// Static text is rendered as a text/template with the keys name, description
// and specialties, e.g. "You are {{.name}}, skilled in {{join \", \" .specialties}}."
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static template.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(core.SpecialistDescriptor) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static template.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text for d, invoking the provider if needed.
func (i Instruction) Resolve(d core.SpecialistDescriptor) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(d)
	}
	return renderPrompt(i.text, d)
}

// DefaultInstruction is used by executors created without an explicit prompt.
var DefaultInstruction = NewInstructionFromText(
	`You are {{.name}}, a helpful specialist{{if .specialties}} focused on {{join ", " .specialties}}{{end}}.`,
)
