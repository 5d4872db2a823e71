package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// jsonOutput is the on-disk layout of the JSON file store.
type jsonOutput struct {
	LastUpdated time.Time      `json:"last_updated"`
	Stats       Stats          `json:"stats"`
	Scans       []types.Report `json:"scans"`
}

// JSONStore persists reports to a single JSON file with an in-memory hash
// index. Suited to single-process deployments; use the Redis store when the
// cache is shared.
type JSONStore struct {
	filePath string
	data     jsonOutput
	index    map[string]int // content hash -> position in data.Scans
	mutex    sync.RWMutex
}

// NewJSONStore opens (or creates) a JSON file store at filePath.
func NewJSONStore(filePath string) (*JSONStore, error) {
	s := &JSONStore{
		filePath: filePath,
		index:    make(map[string]int),
		data: jsonOutput{
			LastUpdated: time.Now(),
			Stats: Stats{
				ByVerdict:     make(map[string]int),
				LastUpdatedAt: time.Now(),
			},
			Scans: make([]types.Report, 0),
		},
	}

	if _, err := os.Stat(filePath); err == nil {
		if err := s.loadExistingData(); err != nil {
			return nil, fmt.Errorf("failed to load existing data: %w", err)
		}
	}

	return s, nil
}

func (s *JSONStore) Get(_ context.Context, hash string) (*types.Report, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	i, ok := s.index[hash]
	if !ok {
		return nil, false, nil
	}
	report := s.data.Scans[i]
	return &report, true, nil
}

func (s *JSONStore) Put(_ context.Context, report *types.Report) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.index[report.ContentHash]; ok {
		return nil
	}

	s.data.Scans = append(s.data.Scans, *report)
	s.index[report.ContentHash] = len(s.data.Scans) - 1

	s.data.Stats.TotalScans++
	s.data.Stats.ByVerdict[string(report.Risk.Verdict)]++
	s.data.LastUpdated = time.Now()
	s.data.Stats.LastUpdatedAt = s.data.LastUpdated

	return s.saveToFile()
}

func (s *JSONStore) Recent(_ context.Context, limit int) ([]types.Report, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	reports := make([]types.Report, len(s.data.Scans))
	copy(reports, s.data.Scans)
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ScannedAt.After(reports[j].ScannedAt)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (s *JSONStore) Stats(_ context.Context) (Stats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := Stats{
		TotalScans:    s.data.Stats.TotalScans,
		ByVerdict:     make(map[string]int, len(s.data.Stats.ByVerdict)),
		LastUpdatedAt: s.data.Stats.LastUpdatedAt,
	}
	for k, v := range s.data.Stats.ByVerdict {
		stats.ByVerdict[k] = v
	}
	return stats, nil
}

func (s *JSONStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data.LastUpdated = time.Now()
	s.data.Stats.LastUpdatedAt = s.data.LastUpdated

	logger.Infof("Closing result store with %d scans", s.data.Stats.TotalScans)
	return s.saveToFile()
}

func (s *JSONStore) loadExistingData() error {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var output jsonOutput
	if err := json.Unmarshal(raw, &output); err != nil {
		return err
	}
	if output.Stats.ByVerdict == nil {
		output.Stats.ByVerdict = make(map[string]int)
	}

	for i, scan := range output.Scans {
		s.index[scan.ContentHash] = i
	}

	s.data = output
	logger.Infof("Loaded %d cached scans from %s", len(output.Scans), s.filePath)
	return nil
}

func (s *JSONStore) saveToFile() error {
	sort.Slice(s.data.Scans, func(i, j int) bool {
		return s.data.Scans[i].ContentHash < s.data.Scans[j].ContentHash
	})
	for i, scan := range s.data.Scans {
		s.index[scan.ContentHash] = i
	}

	file, err := os.Create(s.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s.data)
}
