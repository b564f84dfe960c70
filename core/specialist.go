package core

import "strings"

// SpecialistDescriptor identifies a routable capability. Keywords are derived
// from Specialties when the descriptor is registered and are not modified
// afterwards.
type SpecialistDescriptor struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Specialties []string `json:"specialties,omitempty" yaml:"specialties,omitempty"`
	// Keywords is derived-only: registration fills it from Specialties (or
	// the name) and rejects a descriptor that arrives with it already set.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Priority    int      `json:"priority" yaml:"priority"`
	Endpoint    string   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Default     bool     `json:"default,omitempty" yaml:"default,omitempty"`
}

// minKeywordLen drops single words too short to be meaningful substrings
// ("a", "to", ...). Whole phrases are always kept.
const minKeywordLen = 3

var stopWords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "from": {}, "into": {},
}

// DeriveKeywords builds the lower-cased keyword set for a specialist. Every
// specialty contributes itself as a phrase plus its individual words. When
// nothing usable remains, the tokenized name is used so the result is never
// empty for a non-empty name.
func DeriveKeywords(name string, specialties []string) []string {
	seen := map[string]struct{}{}
	var keywords []string

	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}

	for _, s := range specialties {
		phrase := strings.Join(strings.Fields(strings.ToLower(s)), " ")
		add(phrase)

		words := strings.Fields(phrase)
		if len(words) < 2 {
			continue
		}
		for _, w := range words {
			if len(w) < minKeywordLen {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			add(w)
		}
	}

	if len(keywords) > 0 {
		return keywords
	}

	for _, tok := range tokenizeName(name) {
		add(tok)
	}

	return keywords
}

func tokenizeName(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
}

// WithDerivedKeywords returns a copy of d carrying freshly derived keywords and
// private copies of its slices. Any Keywords already present are replaced.
func (d SpecialistDescriptor) WithDerivedKeywords() SpecialistDescriptor {
	out := d
	out.Specialties = append([]string(nil), d.Specialties...)
	out.Keywords = DeriveKeywords(d.Name, d.Specialties)

	return out
}
