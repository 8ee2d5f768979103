package resolve

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// MatchRules is a word-list overlay loaded from a standalone YAML file, so a
// deployment can pick up new plat vocabulary or lender names between
// releases without touching the main config.
type MatchRules struct {
	StopWords         []string `yaml:"stop_words"`
	CorporateKeywords []string `yaml:"corporate_keywords"`
}

// LoadRules reads a matching rules file. The lists live under a top-level
// "matching" key, so the main config file is itself a valid rules file.
func LoadRules(path string) (*MatchRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: read rules %s", path)
	}

	var wrapper struct {
		Matching MatchRules `yaml:"matching"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "resolve: parse rules %s", path)
	}
	return &wrapper.Matching, nil
}
