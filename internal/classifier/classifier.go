package classifier

import (
	"sync/atomic"

	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// Classifier decides whether a package is malicious. The primary path runs
// the trained model; if no artifact is loaded the deterministic heuristic
// rule applies, tagged with heuristic provenance so downstream consumers can
// disclose the reduced certainty.
type Classifier struct {
	modelPath string
	model     atomic.Pointer[Model]
}

// New builds a classifier, attempting to load the model artifact at
// modelPath. An empty path or a failed load leaves the classifier on the
// heuristic fallback.
func New(modelPath string) *Classifier {
	c := &Classifier{modelPath: modelPath}
	if modelPath == "" {
		logger.Warningf("No model artifact configured, using heuristic fallback")
		return c
	}
	if err := c.Reload(); err != nil {
		logger.Warningf("Model load failed (%v), using heuristic fallback", err)
	}
	return c
}

// Reload loads the artifact from disk and swaps it in atomically. The
// previous model keeps serving in-flight classifications.
func (c *Classifier) Reload() error {
	m, err := LoadModel(c.modelPath)
	if err != nil {
		return err
	}
	c.model.Store(m)
	logger.Infof("Classifier model loaded from %s (%d features)", c.modelPath, m.FeatureLength)
	return nil
}

// ModelLoaded reports whether a trained model is active.
func (c *Classifier) ModelLoaded() bool {
	return c.model.Load() != nil
}

// Classify produces a decision for one feature vector. The extraction
// supplies the raw counts the heuristic rule operates on.
func (c *Classifier) Classify(vec []float64, ext *types.Extraction) types.ClassifierResult {
	if m := c.model.Load(); m != nil {
		p, err := m.Predict(vec)
		if err == nil {
			malicious := p >= 0.5
			confidence := p
			if !malicious {
				confidence = 1 - p
			}
			return types.ClassifierResult{
				Malicious:  malicious,
				Confidence: confidence,
				Category:   categoryFromVector(vec, malicious),
				Provenance: types.ProvenanceModel,
			}
		}
		logger.Warningf("Model prediction failed (%v), using heuristic fallback", err)
	}

	return heuristicClassify(vec, ext)
}
