package resolve

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultAliases is the curated table shipped with the engine. Typo
// variants of the same business ("imbue" vs "lmbue" upstream) are kept as
// separate entries mapping to one domain rather than deduplicated; the
// source review data is not fully reliable.
func DefaultAliases() []Alias {
	return []Alias{
		{Contains: "bond street salon", Domain: "bondstreetsalon.com", Confidence: 1.0},
		{Contains: "salon sora", Domain: "salonsora.com", Confidence: 1.0},
		{Contains: "rov hair salon", Domain: "rovhairsalon.com", Confidence: 1.0},
		{Contains: "one aveda", Domain: "oneaveda.com", Confidence: 1.0},
		{Contains: "salon trace", Domain: "salontrace.com", Confidence: 1.0},
		{Contains: "bond street", Domain: "bondstreetsalon.com"},
		{Contains: "sora", Domain: "salonsora.com", Confidence: 0.7},
		{Contains: "aveda", Domain: "oneaveda.com", Confidence: 0.7},
	}
}

type aliasFile struct {
	Aliases []Alias `yaml:"aliases"`
}

// LoadAliases reads an alias table from a YAML file, preserving file order.
func LoadAliases(path string) ([]Alias, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: read alias table %s", path)
	}

	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "resolve: parse alias table %s", path)
	}
	if len(f.Aliases) == 0 {
		return nil, eris.Errorf("resolve: alias table %s is empty", path)
	}
	return f.Aliases, nil
}
