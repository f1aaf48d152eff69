package utils

import (
	"strconv"
	"strings"

	"chat-backend/internal/apperr"
)

// ParseMessageID coerces a path or form value into a message id.
func ParseMessageID(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperr.Invalid("Message ID is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("Message ID must be a positive integer")
	}
	return id, nil
}

// ParseLimit reads an optional positive page size; empty means use the default.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.Invalid("limit must be a positive integer")
	}
	return n, nil
}
