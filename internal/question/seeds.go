package question

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Topics []string `yaml:"topics"`
}

// LoadSeedTopics reads the producer's fallback topics from a YAML file of the form
//
//	topics:
//	  - world history
//	  - astronomy
func LoadSeedTopics(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed topics: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed topics %s: %w", path, err)
	}
	out := make([]string, 0, len(f.Topics))
	for _, t := range f.Topics {
		name, err := NormalizeTopic(t)
		if err != nil {
			return nil, fmt.Errorf("seed topic %q: %w", t, err)
		}
		out = append(out, name)
	}
	return out, nil
}
