// ABOUTME: Deterministic cache key computation over stage identity, input digests, and configuration.
// ABOUTME: Identical stage + inputs + config always yield the same key, across runs and processes.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/discernus/discernus-sub014/cas"
)

// cacheKeyDoc is the canonical form hashed into a cache key. Input digests are
// sorted so input ordering never affects the key; json.Marshal emits map keys
// in sorted order, which keeps the config portion canonical too.
type cacheKeyDoc struct {
	Stage  string         `json:"stage"`
	Inputs []string       `json:"inputs"`
	Config map[string]any `json:"config"`
}

// CacheKey computes the cache key for one stage invocation.
func CacheKey(stage string, inputs []cas.Digest, config map[string]any) (string, error) {
	digests := make([]string, len(inputs))
	for i, d := range inputs {
		digests[i] = d.String()
	}
	sort.Strings(digests)

	if config == nil {
		config = map[string]any{}
	}

	data, err := json.Marshal(cacheKeyDoc{Stage: stage, Inputs: digests, Config: config})
	if err != nil {
		return "", fmt.Errorf("marshal cache key: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
