package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/deploymenttheory/go-apk-analyzer/internal/features"
)

// ErrModelUnavailable means no usable trained model artifact could be
// loaded. It is non-fatal: classification falls back to the heuristic rule.
var ErrModelUnavailable = errors.New("classifier model unavailable")

// Model is a trained logistic-regression artifact. The feature scaler is
// part of the artifact and is applied in the same order as at training time.
// A loaded Model is immutable and safe for concurrent use.
type Model struct {
	Version       string    `json:"version"`
	FeatureLength int       `json:"feature_length"`
	ScalerMean    []float64 `json:"scaler_mean"`
	ScalerScale   []float64 `json:"scaler_scale"`
	Weights       []float64 `json:"weights"`
	Intercept     float64   `json:"intercept"`
}

// LoadModel reads and validates a model artifact from disk.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decoding artifact: %v", ErrModelUnavailable, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return &m, nil
}

func (m *Model) validate() error {
	if m.Version != features.Version {
		return fmt.Errorf("artifact feature version %q does not match builder version %q",
			m.Version, features.Version)
	}
	if m.FeatureLength != features.Length {
		return fmt.Errorf("artifact feature length %d does not match builder length %d",
			m.FeatureLength, features.Length)
	}
	if len(m.ScalerMean) != m.FeatureLength || len(m.ScalerScale) != m.FeatureLength ||
		len(m.Weights) != m.FeatureLength {
		return errors.New("artifact vector lengths are inconsistent")
	}
	for i, s := range m.ScalerScale {
		if s == 0 {
			return fmt.Errorf("zero scaler scale at feature %d", i)
		}
	}
	return nil
}

// Predict returns the malicious-class probability for a feature vector:
// standard scaling followed by the logistic forward pass.
func (m *Model) Predict(vec []float64) (float64, error) {
	if len(vec) != m.FeatureLength {
		return 0, fmt.Errorf("feature vector length %d, model expects %d", len(vec), m.FeatureLength)
	}

	z := m.Intercept
	for i, x := range vec {
		z += m.Weights[i] * ((x - m.ScalerMean[i]) / m.ScalerScale[i])
	}
	return 1 / (1 + math.Exp(-z)), nil
}
