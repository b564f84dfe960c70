package a2a

import (
	"fmt"
	"iter"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gautammanak1/taskmesh/core"
)

// CardVersion is advertised in every AgentCard.
const CardVersion = "1.0.0"

// maxSkillExamples bounds the generated skill examples.
const maxSkillExamples = 3

// DisplayName turns a specialist name like "trip_planner" into "Trip Planner".
func DisplayName(name string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

// SkillFor builds the skill advertised for a specialist.
func SkillFor(d core.SpecialistDescriptor) AgentSkill {
	examples := make([]string, 0, maxSkillExamples)
	for i, s := range d.Specialties {
		if i == maxSkillExamples {
			break
		}
		examples = append(examples, fmt.Sprintf("Help with %s", strings.ToLower(s)))
	}

	return AgentSkill{
		ID:          strings.ToLower(d.Name) + "_skill",
		Name:        DisplayName(d.Name),
		Description: d.Description,
		Tags:        append([]string(nil), d.Specialties...),
		Examples:    examples,
	}
}

// NewAgentCard builds a card listing one skill per specialist.
func NewAgentCard(name, description, url string, specialists iter.Seq[core.SpecialistDescriptor]) AgentCard {
	var skills []AgentSkill
	for d := range specialists {
		skills = append(skills, SkillFor(d))
	}

	return AgentCard{
		Name:               name,
		Description:        description,
		URL:                url,
		Version:            CardVersion,
		Capabilities:       AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             skills,
	}
}

// SpecialistCard builds the card a single specialist serves at url.
func SpecialistCard(d core.SpecialistDescriptor, url string) AgentCard {
	return AgentCard{
		Name:               DisplayName(d.Name),
		Description:        d.Description,
		URL:                url,
		Version:            CardVersion,
		Capabilities:       AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             []AgentSkill{SkillFor(d)},
	}
}
