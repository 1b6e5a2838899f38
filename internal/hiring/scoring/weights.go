package scoring

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Weights are the component weights of the total fit score.
type Weights struct {
	Qualification float64 `yaml:"qualification" json:"qualification"`
	Experience    float64 `yaml:"experience" json:"experience"`
	Verification  float64 `yaml:"verification" json:"verification"`
}

// DefaultWeights favour eligibility over background and verification.
var DefaultWeights = Weights{
	Qualification: 0.40,
	Experience:    0.35,
	Verification:  0.25,
}

func (w Weights) sum() float64 {
	return w.Qualification + w.Experience + w.Verification
}

// Normalize divides every weight by their sum. changed reports whether the
// input did not already sum to 1.
func (w Weights) Normalize() (normalized Weights, changed bool, err error) {
	if w.Qualification < 0 || w.Experience < 0 || w.Verification < 0 {
		return Weights{}, false, fmt.Errorf("scoring weights must not be negative: %+v", w)
	}
	total := w.sum()
	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return Weights{}, false, fmt.Errorf("scoring weights must have a positive finite sum: %+v", w)
	}
	if math.Abs(total-1) <= weightSumTolerance {
		return w, false, nil
	}
	return Weights{
		Qualification: w.Qualification / total,
		Experience:    w.Experience / total,
		Verification:  w.Verification / total,
	}, true, nil
}

type weightsFile struct {
	Weights *Weights `yaml:"weights"`
}

// LoadWeights reads weights from a YAML file of the form
//
//	weights:
//	  qualification: 0.4
//	  experience: 0.35
//	  verification: 0.25
//
// An empty path returns DefaultWeights.
func LoadWeights(path string) (Weights, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultWeights, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read scoring weights: %w", err)
	}
	var file weightsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Weights{}, fmt.Errorf("parse scoring weights: %w", err)
	}
	if file.Weights == nil {
		return Weights{}, fmt.Errorf("parse scoring weights: missing weights section")
	}
	return *file.Weights, nil
}
