package reputation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// Checker looks up a content hash against an external threat-intelligence
// source. Implementations must never block past their bounded timeout and
// must resolve every failure mode to Available=false rather than an error.
type Checker interface {
	CheckHash(ctx context.Context, hash string) types.ReputationResult
}

const (
	defaultBaseURL = "https://www.virustotal.com/vtapi/v2"
	defaultTimeout = 10 * time.Second
	scanDateLayout = "2006-01-02 15:04:05"
)

// VirusTotalChecker queries the VirusTotal file-report API by hash. A
// missing API key, timeout, rate-limit rejection or malformed response all
// yield an unavailable result; absence of reputation data is a valid
// first-class outcome.
type VirusTotalChecker struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// Option configures a VirusTotalChecker.
type Option func(*VirusTotalChecker)

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(c *VirusTotalChecker) { c.baseURL = u }
}

// WithTimeout bounds the single lookup attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *VirusTotalChecker) { c.timeout = d }
}

func NewVirusTotal(apiKey string, opts ...Option) *VirusTotalChecker {
	c := &VirusTotalChecker{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		logger.Warningf("Reputation API key not configured, lookups disabled")
	}
	return c
}

type fileReport struct {
	ResponseCode int    `json:"response_code"`
	Positives    int    `json:"positives"`
	Total        int    `json:"total"`
	ScanDate     string `json:"scan_date"`
}

// CheckHash performs a single bounded lookup. No retries: retry policy is an
// external concern layered on top of this contract.
func (c *VirusTotalChecker) CheckHash(ctx context.Context, hash string) types.ReputationResult {
	unavailable := types.ReputationResult{Available: false}

	if c.apiKey == "" {
		return unavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("resource", hash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/file/report?"+params.Encode(), nil)
	if err != nil {
		logger.Errorf("Building reputation request: %v", err)
		return unavailable
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warningf("Reputation lookup failed: %v", err)
		return unavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		logger.Warningf("Reputation source rate limit exceeded")
		return unavailable
	default:
		logger.Warningf("Reputation source returned status %d", resp.StatusCode)
		return unavailable
	}

	var report fileReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		logger.Warningf("Decoding reputation response: %v", err)
		return unavailable
	}

	if report.ResponseCode != 1 {
		// hash unknown to the source: the lookup itself succeeded
		return types.ReputationResult{Available: true}
	}

	result := types.ReputationResult{
		Available: true,
		Detected:  report.Positives > 0,
		Positives: report.Positives,
		Total:     report.Total,
	}
	if t, err := time.Parse(scanDateLayout, report.ScanDate); err == nil {
		result.ScanDate = &t
	}
	return result
}

// Disabled is a Checker that always reports the source as unavailable.
type Disabled struct{}

func (Disabled) CheckHash(context.Context, string) types.ReputationResult {
	return types.ReputationResult{Available: false}
}
