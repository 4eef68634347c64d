package driver

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	tt "github.com/gnoswap-labs/unroll/internal/types"
)

type cacheEntry struct {
	Hash   string
	Report *tt.Report
}

// Cache is a Runner that remembers the report of each design file and
// reruns the pass only when the file content changed.
type Cache struct {
	runner  Runner
	mutex   sync.Mutex
	entries map[string]cacheEntry
}

func NewCache(runner Runner) *Cache {
	return &Cache{
		runner:  runner,
		entries: make(map[string]cacheEntry),
	}
}

// Run returns the cached report when filename is unchanged.
func (c *Cache) Run(filename string) (*tt.Report, error) {
	report, _, err := c.Refresh(filename)
	return report, err
}

// Refresh is like Run and also tells whether the pass actually ran.
// Failed runs are not cached. Entries are keyed by the cleaned path.
func (c *Cache) Refresh(filename string) (*tt.Report, bool, error) {
	filename = filepath.Clean(filename)
	hash, err := getFileHash(filename)
	if err != nil {
		return nil, false, err
	}

	c.mutex.Lock()
	entry, exists := c.entries[filename]
	c.mutex.Unlock()
	if exists && entry.Hash == hash {
		return entry.Report, false, nil
	}

	report, err := c.runner.Run(filename)
	if err != nil {
		c.Invalidate(filename)
		return nil, true, err
	}

	c.mutex.Lock()
	c.entries[filename] = cacheEntry{Hash: hash, Report: report}
	c.mutex.Unlock()
	return report, true, nil
}

// Invalidate forgets the report of filename.
func (c *Cache) Invalidate(filename string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, filepath.Clean(filename))
}

func getFileHash(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
