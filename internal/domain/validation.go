package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// UUIDv4Regex validates lowercase UUIDv4 format
	UUIDv4Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

	handlePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	maxHandleLen  = 64
)

// ValidateUUID validates a UUID v4 format (lowercase with hyphens)
func ValidateUUID(uuid string) error {
	if !UUIDv4Regex.MatchString(uuid) {
		return fmt.Errorf("invalid UUID: must be lowercase UUIDv4 format (e.g., 550e8400-e29b-41d4-a716-446655440000)")
	}
	return nil
}

// IsUUID reports whether s looks like an entity id rather than a name or handle
func IsUUID(s string) bool {
	return UUIDv4Regex.MatchString(s)
}

// NormalizeHandle lower-cases a handle and strips characters outside [a-z0-9_-]
func NormalizeHandle(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "@")

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	s = strings.Trim(b.String(), "-_")

	if err := ValidateHandle(s); err != nil {
		return "", err
	}
	return s, nil
}

// ValidateHandle checks a handle without normalizing it
func ValidateHandle(s string) error {
	if s == "" {
		return fmt.Errorf("handle cannot be empty")
	}
	if len(s) > maxHandleLen {
		return fmt.Errorf("handle exceeds maximum length of %d bytes", maxHandleLen)
	}
	if !handlePattern.MatchString(s) {
		return fmt.Errorf("invalid handle format: must be lowercase, start with alphanumeric, and contain only [a-z0-9_-]")
	}
	return nil
}

// ValidateCycleState validates a cycle state
func ValidateCycleState(state string) error {
	switch CycleState(state) {
	case CycleStateGoalSelection, CycleStatePractice, CycleStateReflection, CycleStateComplete:
		return nil
	default:
		return fmt.Errorf("invalid cycle state: must be one of: goal_selection, practice, reflection, complete")
	}
}

// ValidateCycleNumber validates a cycle number
func ValidateCycleNumber(n int) error {
	if n < 1 {
		return fmt.Errorf("invalid cycle number: must be positive")
	}
	return nil
}

// ParseGoalNumber parses a goal identifier as a base-10 integer. The whole
// identifier must be numeric: "42abc" and "42.5" are rejected rather than
// read as 42.
func ParseGoalNumber(identifier string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(identifier))
	if err != nil {
		return 0, fmt.Errorf("invalid goal number %q", identifier)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid goal number %q: must be positive", identifier)
	}
	return n, nil
}
