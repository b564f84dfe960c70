package specialist

import (
	"slices"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/model"
)

// Priorities assigned when a configuration leaves them unset.
const (
	PriorityStandard = 2
	PriorityExpert   = 3
)

// DefaultPriority ranks research and coding specialists above the rest.
func DefaultPriority(specialties []string) int {
	if slices.Contains(specialties, "research") || slices.Contains(specialties, "coding") {
		return PriorityExpert
	}
	return PriorityStandard
}

const travelPrompt = `You are an expert travel assistant specializing in trip planning, destination information,
and travel recommendations. Your goal is to help users plan enjoyable, safe, and
realistic trips based on their preferences and constraints.

When providing information:
- Be specific and practical with your advice
- Consider seasonality, budget constraints, and travel logistics
- Highlight cultural experiences and authentic local activities
- Include practical travel tips relevant to the destination

For itineraries:
- Create realistic day-by-day plans that account for travel time between attractions
- Balance popular tourist sites with off-the-beaten-path experiences
- Suggest meal options highlighting local cuisine`

const researchPrompt = `You are a Research Specialist AI agent. Your role is to:
1. Conduct thorough research on any given topic
2. Provide well-structured, factual information
3. Cite sources when possible
4. Summarize complex information clearly

Always structure your responses with:
- Executive Summary
- Key Findings
- Detailed Analysis
- Recommendations`

const codingPrompt = `You are an expert coding assistant specializing in generating clean, efficient,
and well-documented code. Your goal is to provide accurate code solutions
based on user requirements.

When providing code:
- Include clear comments explaining the code
- Follow language-specific style guides
- Provide complete, working code examples
- Handle edge cases and include error handling
- Include example usage when appropriate`

// Persona couples a descriptor with the instruction its executor should use.
type Persona struct {
	Descriptor  core.SpecialistDescriptor
	Instruction Instruction
}

// Travel is the trip planning persona.
func Travel() Persona {
	specialties := []string{"trip planning", "itinerary creation", "destination recommendations", "travel tips", "budget planning"}
	return Persona{
		Descriptor: core.SpecialistDescriptor{
			Name:        "trip_planner",
			Description: "Creates travel itineraries, recommends destinations and provides travel tips",
			Specialties: specialties,
			Priority:    DefaultPriority(specialties),
		},
		Instruction: NewInstructionFromText(travelPrompt),
	}
}

// Research is the research and analysis persona.
func Research() Persona {
	specialties := []string{"research", "analysis", "fact-finding", "summarization"}
	return Persona{
		Descriptor: core.SpecialistDescriptor{
			Name:        "research_agent",
			Description: "Researches topics and summarizes findings",
			Specialties: specialties,
			Priority:    DefaultPriority(specialties),
			Default:     true,
		},
		Instruction: NewInstructionFromText(researchPrompt),
	}
}

// Coding is the code generation and debugging persona.
func Coding() Persona {
	specialties := []string{"coding", "debugging", "programming", "code generation"}
	return Persona{
		Descriptor: core.SpecialistDescriptor{
			Name:        "coding_agent",
			Description: "Generates, reviews and debugs code",
			Specialties: specialties,
			Priority:    DefaultPriority(specialties),
		},
		Instruction: NewInstructionFromText(codingPrompt),
	}
}

// Personas returns the built-in personas in registration order.
func Personas() []Persona {
	return []Persona{Research(), Travel(), Coding()}
}

// PersonaDirectory binds a ModelExecutor on llm to each persona, using the
// persona's instruction. optFns apply after the persona instruction is set.
func PersonaDirectory(llm model.Model, personas []Persona, optFns ...func(o *ModelExecutorOptions)) *Directory {
	dir := NewDirectory()
	for _, p := range personas {
		fns := append([]func(o *ModelExecutorOptions){func(o *ModelExecutorOptions) {
			o.Instruction = p.Instruction
		}}, optFns...)
		dir.Register(p.Descriptor.Name, ModelFactory(llm, fns...))
	}
	return dir
}
