// Package cache stores rule findings keyed by rule set, rule and file
// content, so unchanged files are not matched again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/JNZader/flightcheck/internal/match"
)

// Cache defines the interface for caching findings.
type Cache interface {
	// Get retrieves cached findings. A cached empty slice is a hit.
	Get(key string) ([]match.Finding, bool, error)

	// Set stores the findings of one rule on one file.
	Set(key string, findings []match.Finding) error

	// Clear removes all cached entries.
	Clear() error

	// Close releases cache resources.
	Close() error
}

// Stats contains cache statistics.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// HitRate returns the share of lookups that hit, between 0 and 1.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ComputeKey derives a cache key from its parts. Parts are separated so that
// ("ab", "c") and ("a", "bc") give different keys.
func ComputeKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the hex sha256 of file content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func clone(findings []match.Finding) []match.Finding {
	if findings == nil {
		return []match.Finding{}
	}
	return append([]match.Finding(nil), findings...)
}
