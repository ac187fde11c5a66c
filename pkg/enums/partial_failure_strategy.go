package enums

import (
	"fmt"
	"strings"
)

// PartialFailureStrategy decides what happens to an order whose items failed to persist.
type PartialFailureStrategy string

const (
	PartialFailureLeave      PartialFailureStrategy = "leave"
	PartialFailureMarkFailed PartialFailureStrategy = "mark_failed"
	PartialFailureDelete     PartialFailureStrategy = "delete"
)

var validPartialFailureStrategies = []PartialFailureStrategy{
	PartialFailureLeave,
	PartialFailureMarkFailed,
	PartialFailureDelete,
}

func (s PartialFailureStrategy) String() string {
	return string(s)
}

func (s PartialFailureStrategy) IsValid() bool {
	for _, candidate := range validPartialFailureStrategies {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePartialFailureStrategy accepts any casing; an empty value yields mark_failed.
func ParsePartialFailureStrategy(value string) (PartialFailureStrategy, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return PartialFailureMarkFailed, nil
	}
	for _, candidate := range validPartialFailureStrategies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid partial failure strategy %q", value)
}
