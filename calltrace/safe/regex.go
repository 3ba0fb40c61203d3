package safe

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// ErrInvalidRegex is returned when a regex pattern cannot be compiled.
var ErrInvalidRegex = errors.New("invalid regular expression")

// maxCacheSize is the upper bound for cached compiled regex patterns.
// When the limit is reached, the entire cache is cleared to prevent
// unbounded growth from dynamic caller-provided patterns.
const maxCacheSize = 1024

var (
	regexMu    sync.RWMutex
	regexCache = make(map[string]*regexp.Regexp)
)

func cacheLoad(key string) (*regexp.Regexp, bool) {
	regexMu.RLock()
	defer regexMu.RUnlock()

	re, ok := regexCache[key]

	return re, ok
}

func cacheStore(key string, re *regexp.Regexp) {
	regexMu.Lock()
	defer regexMu.Unlock()

	if len(regexCache) >= maxCacheSize {
		regexCache = make(map[string]*regexp.Regexp)
	}

	regexCache[key] = re
}

// Compile compiles a regex pattern with an error return instead of a panic.
// Compiled patterns are cached.
//
// Use this for dynamic patterns (e.g., caller-provided detector patterns).
// For static compile-time patterns, use regexp.MustCompile directly.
func Compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cacheLoad(pattern); ok {
		return cached, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRegex, err)
	}

	cacheStore(pattern, re)

	return re, nil
}

// MatchString compiles and matches a pattern against input in one call.
// Returns an error if the pattern is invalid.
func MatchString(pattern, input string) (bool, error) {
	re, err := Compile(pattern)
	if err != nil {
		return false, err
	}

	return re.MatchString(input), nil
}
