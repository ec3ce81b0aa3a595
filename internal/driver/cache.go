package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-at-pretension-io/hdl-force/internal/config"
	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/facts"
	"github.com/robert-at-pretension-io/hdl-force/internal/netlist"
)

// cacheIndexVersion is bumped whenever the shape of cached results or the
// behavior of the pass changes.
const cacheIndexVersion = 1

type cacheEntry struct {
	ContentHash string `json:"content_hash"`
	ConfigHash  string `json:"config_hash"`
	ResultPath  string `json:"result_path"`
}

type cacheIndex struct {
	Version       int                   `json:"version"`
	FormatVersion string                `json:"format_version"`
	Entries       map[string]cacheEntry `json:"entries"`
}

// cachedResult is everything a later run needs to skip a file whose
// content and configuration did not change.
type cachedResult struct {
	File        FileResult        `json:"file"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Tables      facts.Tables      `json:"tables"`
}

type resultCache struct {
	dir        string
	configHash string
	mu         sync.Mutex
	index      cacheIndex
}

func newResultCache(dir, configHash string) *resultCache {
	return &resultCache{
		dir:        dir,
		configHash: configHash,
		index:      emptyIndex(),
	}
}

func emptyIndex() cacheIndex {
	return cacheIndex{
		Version:       cacheIndexVersion,
		FormatVersion: netlist.CurrentVersion,
		Entries:       make(map[string]cacheEntry),
	}
}

func (c *resultCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *resultCache) resultPathForFile(filePath string) string {
	h := sha256.Sum256([]byte(filePath))
	return filepath.Join(c.dir, "results", hex.EncodeToString(h[:])+".json")
}

func (c *resultCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion || idx.FormatVersion != netlist.CurrentVersion {
		// Reset on version mismatch
		c.index = emptyIndex()
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *resultCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

// Get returns the stored result of filePath if it was produced from the
// same content under the same configuration, and its output still exists.
func (c *resultCache) Get(filePath, contentHash string) (cachedResult, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.ConfigHash != c.configHash {
		return cachedResult{}, false, nil
	}

	data, err := os.ReadFile(entry.ResultPath)
	if err != nil {
		return cachedResult{}, false, fmt.Errorf("read cached result: %w", err)
	}
	var res cachedResult
	if err := json.Unmarshal(data, &res); err != nil {
		return cachedResult{}, false, fmt.Errorf("parse cached result: %w", err)
	}
	if res.File.Output != "" {
		if _, err := os.Stat(res.File.Output); err != nil {
			return cachedResult{}, false, nil
		}
	}
	return res, true, nil
}

func (c *resultCache) Put(filePath, contentHash string, res cachedResult) error {
	resultPath := c.resultPathForFile(filePath)
	if err := writeJSONAtomic(resultPath, res); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[filePath] = cacheEntry{
		ContentHash: contentHash,
		ConfigHash:  c.configHash,
		ResultPath:  resultPath,
	}
	c.mu.Unlock()
	return nil
}

// configHash covers every option that changes what a file produces.
func configHash(cfg *config.Config) (string, error) {
	data, err := json.Marshal(struct {
		Output        config.OutputConfig `json:"output"`
		Force         config.ForceConfig  `json:"force"`
		Rules         map[string]string   `json:"rules"`
		Verify        bool                `json:"verify"`
		ValidateInput bool                `json:"validate_input"`
		FormatVersion string              `json:"format_version"`
	}{
		Output:        cfg.Output,
		Force:         cfg.Force,
		Rules:         cfg.Lint.Rules,
		Verify:        config.Enabled(cfg.Analysis.Verify),
		ValidateInput: config.Enabled(cfg.Analysis.ValidateInput),
		FormatVersion: cfg.Analysis.FormatVersion,
	})
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
