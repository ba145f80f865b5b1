package dataflows

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores serialized API responses on disk with a TTL.
// Expired entries are removed on read.
type FileCache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

func NewFileCache(dir string, ttl time.Duration, enabled bool) *FileCache {
	return &FileCache{dir: dir, ttl: ttl, enabled: enabled}
}

func (fc *FileCache) key(source, method string, params interface{}) string {
	data, _ := json.Marshal(params)
	return fmt.Sprintf("%s_%s_%x.json", source, method, md5.Sum(data))
}

func (fc *FileCache) Get(source, method string, params, result interface{}) bool {
	if !fc.enabled {
		return false
	}

	path := filepath.Join(fc.dir, fc.key(source, method, params))
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > fc.ttl {
		os.Remove(path)
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, result) == nil
}

func (fc *FileCache) Set(source, method string, params, data interface{}) error {
	if !fc.enabled {
		return nil
	}

	if err := os.MkdirAll(fc.dir, 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(fc.dir, fc.key(source, method, params)), payload, 0o644)
}

// RetryConfig controls exponential backoff for flaky upstreams.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
}

// WithRetry runs fn with exponential backoff until it succeeds or the
// retry budget runs out.
func WithRetry(cfg *RetryConfig, fn func() error) error {
	var lastErr error
	delay := cfg.BaseDelay
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// ParseDate parses the date formats upstream APIs return.
func ParseDate(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		time.RFC3339,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// SaveJSON writes data as indented JSON, creating parent directories.
func SaveJSON(path string, data interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// LoadJSON reads a JSON file into result.
func LoadJSON(path string, result interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, result)
}
