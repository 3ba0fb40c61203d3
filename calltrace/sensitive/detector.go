package sensitive

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kyralabs/lib-calltrace/calltrace/safe"
)

// defaultKeywords are secret-suggesting name fragments. Matching is
// case-insensitive substring containment: "UserPassword" and "passwords"
// both match "password". All entries must be lowercase.
var defaultKeywords = []string{
	"password",
	"passwd",
	"pwd",
	"secret",
	"token",
	"key",
	"api_key",
	"api_secret",
	"jwt",
	"bearer",
	"auth",
	"credential",
	"private_key",
	"secret_key",
	"access_key",
	"session",
	"cookie",
	"authorization",
	"ssn",
	"social_security",
}

// defaultPatterns recognize structurally sensitive strings regardless of the
// associated name. Evaluated in order; first match wins. Patterns are
// anchored at the start of the value.
var defaultPatterns = []*regexp.Regexp{
	// Three dot-separated token segments, JWT-style.
	regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*$`),
	// Long hex strings (API keys, hashes, session IDs).
	regexp.MustCompile(`(?i)^[a-f0-9]{20,}$`),
	// Bearer-prefixed credentials.
	regexp.MustCompile(`(?i)^bearer\s+[a-z0-9]`),
	// Base64-like blobs with optional padding.
	regexp.MustCompile(`^[A-Za-z0-9+/]{40,}={0,2}$`),
}

// DefaultKeywords returns the built-in keyword list. A fresh slice is
// returned so callers cannot mutate the shared table.
func DefaultKeywords() []string {
	out := make([]string, len(defaultKeywords))
	copy(out, defaultKeywords)

	return out
}

// Detector decides whether values are sensitive and masks them.
// The zero value is unusable; construct with NewDetector or Default.
type Detector struct {
	keywords []string
	patterns []*regexp.Regexp
}

// Option customizes a Detector under construction.
type Option func(*Detector) error

// WithKeywords appends extra name keywords. Keywords are lowercased.
func WithKeywords(keywords ...string) Option {
	return func(d *Detector) error {
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				d.keywords = append(d.keywords, kw)
			}
		}

		return nil
	}
}

// WithPatterns appends extra content patterns, compiled through safe.Compile
// so an invalid expression surfaces here rather than at masking time.
func WithPatterns(exprs ...string) Option {
	return func(d *Detector) error {
		for _, expr := range exprs {
			re, err := safe.Compile(expr)
			if err != nil {
				return fmt.Errorf("sensitive: pattern %q: %w", expr, err)
			}

			d.patterns = append(d.patterns, re)
		}

		return nil
	}
}

// WithoutDefaults clears the built-in keyword and pattern tables. Apply it
// before WithKeywords/WithPatterns to build a fully custom detector.
func WithoutDefaults() Option {
	return func(d *Detector) error {
		d.keywords = nil
		d.patterns = nil

		return nil
	}
}

// NewDetector builds a Detector with the default tables plus any options.
func NewDetector(opts ...Option) (*Detector, error) {
	d := &Detector{
		keywords: DefaultKeywords(),
		patterns: defaultPatterns,
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Default returns a Detector with the built-in tables only.
func Default() *Detector {
	d, _ := NewDetector()

	return d
}

// IsSensitiveKey reports whether a variable or parameter name suggests
// secret material. Empty names are never sensitive.
func (d *Detector) IsSensitiveKey(name string) bool {
	if d == nil || name == "" {
		return false
	}

	lower := strings.ToLower(name)

	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	return false
}

// MaskIfSensitive returns a masked string when value is sensitive by name or
// by content, and the original value unchanged otherwise. Non-sensitive
// values keep their type: an integer stays an integer.
//
// When name is non-empty and sensitive, masking applies to the string form
// of the value and pattern detection is skipped.
func (d *Detector) MaskIfSensitive(value any, name string) any {
	if d == nil || value == nil {
		return value
	}

	str, ok := stringify(value)
	if !ok {
		// Could not inspect the value; degrade to not sensitive.
		return value
	}

	if name != "" && d.IsSensitiveKey(name) {
		return Mask(str)
	}

	if d.matchesPattern(str) {
		return Mask(str)
	}

	return value
}

func (d *Detector) matchesPattern(s string) bool {
	for _, re := range d.patterns {
		if re.MatchString(s) {
			return true
		}
	}

	return false
}

// Mask obscures a string while keeping its approximate shape. Lengths and
// slices are in characters, not bytes, so multibyte values stay valid UTF-8:
//
//	len <= 4  -> "****" (fixed, not length preserving)
//	len 5..8  -> first 2 characters kept, rest asterisked
//	len > 8   -> first 4 and last 4 kept, middle asterisked
func Mask(s string) string {
	runes := []rune(s)

	switch n := len(runes); {
	case n <= 4:
		return "****"
	case n <= 8:
		return string(runes[:2]) + strings.Repeat("*", n-2)
	default:
		return string(runes[:4]) + strings.Repeat("*", n-8) + string(runes[n-4:])
	}
}

// stringify renders a value for inspection, recovering from any panic in a
// custom Stringer so detection can never break the instrumented call.
// Stringer and error implementations are invoked directly: fmt.Sprint would
// swallow their panics internally and hand back a "%!v(PANIC=...)" string,
// which is not a faithful rendering to inspect or mask.
func stringify(v any) (out string, ok bool) {
	defer func() {
		if recover() != nil {
			out, ok = "", false
		}
	}()

	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case fmt.Stringer:
		return t.String(), true
	case error:
		return t.Error(), true
	}

	s := fmt.Sprint(v)
	// A nested field's Stringer panicked inside fmt.
	if strings.Contains(s, "(PANIC=") {
		return "", false
	}

	return s, true
}
