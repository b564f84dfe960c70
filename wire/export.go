package wire

import (
	"fmt"
	"io"
	"iter"

	"gopkg.in/yaml.v3"

	"github.com/gautammanak1/taskmesh/core"
)

// catalog is the YAML document written by WriteSpecialistsYAML.
type catalog struct {
	Specialists []core.SpecialistDescriptor `yaml:"specialists"`
}

// WriteSpecialistsYAML writes specialists, keywords included, as a YAML
// document under a top-level "specialists" key.
func WriteSpecialistsYAML(w io.Writer, specialists iter.Seq[core.SpecialistDescriptor]) error {
	var doc catalog
	for d := range specialists {
		doc.Specialists = append(doc.Specialists, d)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode specialists yaml: %w", err)
	}

	return enc.Close()
}
