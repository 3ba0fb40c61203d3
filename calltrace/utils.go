package calltrace

import (
	"strings"

	"github.com/google/uuid"
)

// IsNilOrEmpty reports whether s is nil, empty, or whitespace-only.
func IsNilOrEmpty(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)

	return err == nil
}
