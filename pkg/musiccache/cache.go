// Package musiccache remembers which song a raw media title was identified
// as, so the AI lookup runs once per title.
package musiccache

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	kvFormat    = "%s => %s"
	kvSeparator = " => "
)

var ErrNotFound = errors.New("not found")

// Cache is an append-only key/value list backed by a text file.
type Cache struct {
	path  string
	mu    sync.Mutex
	cache sync.Map
}

// DefaultPath returns music_cache.list under cacheDir.
func DefaultPath(cacheDir string) string {
	return filepath.Join(cacheDir, "music_cache.list")
}

// Open loads path, creating it when missing.
func Open(path string) (*Cache, error) {
	c := &Cache{path: path}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache file: %w", err)
		}
		f.Close()
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), kvSeparator, 2)
		if len(kv) != 2 {
			continue
		}
		c.cache.Store(kv[0], kv[1])
	}
	return c, scanner.Err()
}

func (c *Cache) appendLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(line + "\n")
	return err
}

// Add stores value under key. Existing keys are kept.
func (c *Cache) Add(key, value string) error {
	key, value = sanitize(key), sanitize(value)
	if _, loaded := c.cache.LoadOrStore(key, value); loaded {
		return nil
	}
	return c.appendLine(fmt.Sprintf(kvFormat, key, value))
}

func (c *Cache) Get(key string) (string, error) {
	v, ok := c.cache.Load(sanitize(key))
	if !ok {
		return "", ErrNotFound
	}
	return v.(string), nil
}

// 键值中不能有换行和分隔符
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, kvSeparator, " = ")
}
