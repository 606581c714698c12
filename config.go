package gosam

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params gathers every tunable of the library in one YAML-loadable document.
type Params struct {
	Optimizer          OptimizerParams `yaml:"optimizer"`
	LevenbergMarquardt LMParams        `yaml:"levenberg_marquardt"`
}

// DefaultParams returns the library defaults.
func DefaultParams() Params {
	return Params{
		Optimizer:          DefaultOptimizerParams(),
		LevenbergMarquardt: DefaultLMParams(),
	}
}

// LoadParams reads a YAML file over the defaults, so a file only needs to
// name the settings it changes.
func LoadParams(path string) (Params, error) {
	params := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("loading params: %w", err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("parsing params %s: %w", path, err)
	}
	if params.Optimizer.MaxIterations <= 0 {
		return params, fmt.Errorf("parsing params %s: max_iterations must be positive", path)
	}
	if params.LevenbergMarquardt.LambdaFactor <= 1 {
		return params, fmt.Errorf("parsing params %s: lambda_factor must exceed 1", path)
	}
	return params, nil
}
