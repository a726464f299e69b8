package wasm

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru"
)

const (
	// DefaultRegexCacheSize is the default maximum number of cached regex patterns.
	DefaultRegexCacheSize = 100

	// MaxPatternLength is the maximum length of a regex pattern a plugin may pass.
	MaxPatternLength = 512
)

// regexCache is an LRU cache for compiled regular expressions requested by
// plugins. It is safe for concurrent use.
type regexCache struct {
	lru *lru.Cache
}

// newRegexCache creates a new LRU regex cache with the given maximum size.
// Sizes below one fall back to DefaultRegexCacheSize.
func newRegexCache(maxSize int) *regexCache {
	if maxSize < 1 {
		maxSize = DefaultRegexCacheSize
	}
	c, err := lru.New(maxSize)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &regexCache{lru: c}
}

// Get retrieves a compiled regex from the cache, or compiles and caches it.
// Returns an error if the pattern is invalid or exceeds MaxPatternLength.
func (c *regexCache) Get(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > MaxPatternLength {
		return nil, &ABIError{
			Function: "regex_match",
			Reason:   "pattern exceeds maximum length",
		}
	}

	if v, ok := c.lru.Get(pattern); ok {
		return v.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	// Two goroutines may compile the same pattern; the later Add wins and
	// both results are equivalent.
	c.lru.Add(pattern, re)
	return re, nil
}

// Len returns the current number of cached patterns.
func (c *regexCache) Len() int {
	return c.lru.Len()
}
