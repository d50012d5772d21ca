package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type weightsFile struct {
	StrategyWeights map[string]float64 `yaml:"strategy_weights"`
}

// StrategyWeightsFromFile overlays the default strategy-weight table with
// entries from a YAML file. A missing path returns the defaults unchanged.
func StrategyWeightsFromFile(path string) (map[string]float64, error) {
	weights := DefaultStrategyWeights()
	if path == "" {
		return weights, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return weights, nil
		}
		return nil, fmt.Errorf("reading strategy weights file: %w", err)
	}

	var file weightsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing strategy weights file: %w", err)
	}

	for name, w := range file.StrategyWeights {
		weights[name] = w
	}
	return weights, nil
}
