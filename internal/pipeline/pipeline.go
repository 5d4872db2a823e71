package pipeline

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/deploymenttheory/go-apk-analyzer/internal/cache"
	"github.com/deploymenttheory/go-apk-analyzer/internal/classifier"
	"github.com/deploymenttheory/go-apk-analyzer/internal/features"
	"github.com/deploymenttheory/go-apk-analyzer/internal/inspector"
	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/reputation"
	"github.com/deploymenttheory/go-apk-analyzer/internal/risk"
	"github.com/deploymenttheory/go-apk-analyzer/internal/trust"
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// Pipeline orchestrates one full scan: inspect, build features, classify,
// evaluate trust and reputation in parallel, aggregate, cache. All
// collaborators are injected so tests can substitute doubles; there is no
// process-global state beyond the classifier's read-only model reference.
type Pipeline struct {
	inspector  *inspector.Inspector
	classifier *classifier.Classifier
	trust      *trust.Evaluator
	reputation reputation.Checker
	cache      *cache.Cache
}

func New(ins *inspector.Inspector, cls *classifier.Classifier, tr *trust.Evaluator,
	rep reputation.Checker, c *cache.Cache) *Pipeline {
	return &Pipeline{
		inspector:  ins,
		classifier: cls,
		trust:      tr,
		reputation: rep,
		cache:      c,
	}
}

// Cache exposes the result cache for boundary lookups (report-by-hash,
// stats).
func (p *Pipeline) Cache() *cache.Cache {
	return p.cache
}

// ContentHash computes the package's content identity.
func ContentHash(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Scan runs the full pipeline over raw package bytes. Identical content is
// computed at most once regardless of concurrent callers; the returned flag
// reports whether the result came from the cache. Only inspection errors
// surface to the caller - every other component degrades gracefully into
// the report.
func (p *Pipeline) Scan(ctx context.Context, data []byte, filename string) (*types.Report, bool, error) {
	hash := ContentHash(data)
	logger.Infof("Scan requested for %s (%d bytes, hash %s)", filename, len(data), hash)

	return p.cache.GetOrCompute(ctx, hash, func(ctx context.Context) (*types.Report, error) {
		return p.execute(ctx, data, hash, filename)
	})
}

func (p *Pipeline) execute(ctx context.Context, data []byte, hash, filename string) (*types.Report, error) {
	ext, err := p.inspector.Inspect(data)
	if err != nil {
		return nil, err
	}

	vec := features.Build(ext)
	cls := p.classifier.Classify(vec, ext)

	// trust and reputation have no data dependency on each other
	trustCh := make(chan types.TrustAssessment, 1)
	repCh := make(chan types.ReputationResult, 1)
	go func() {
		trustCh <- p.trust.Evaluate(ext.Certificates)
	}()
	go func() {
		// the checker applies its own bounded timeout and resolves to
		// unavailable rather than leaving this join waiting
		repCh <- p.reputation.CheckHash(ctx, hash)
	}()
	trustResult := <-trustCh
	repResult := <-repCh

	assessment := risk.Aggregate(ext, cls, trustResult, repResult)

	logger.Infof("Scan completed for %s: verdict=%s score=%d provenance=%s",
		hash, assessment.Verdict, assessment.Score, cls.Provenance)

	return &types.Report{
		ContentHash: hash,
		Filename:    filename,
		ScannedAt:   time.Now().UTC(),
		Package:     ext.Package,
		Extraction:  *ext,
		Classifier:  cls,
		Reputation:  repResult,
		Trust:       trustResult,
		Risk:        assessment,
	}, nil
}
