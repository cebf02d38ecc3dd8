package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bryanwahyu/mailguard/internal/domain/grading"
)

const (
	MaxMessageLength = 1000
	MaxSearchLength  = 100
	MaxClassifyBatch = 100
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateGrade accepts "" (no filter) or A-F, case-insensitive
func ValidateGrade(raw string) (grading.Grade, error) {
	if raw == "" {
		return "", nil
	}
	return grading.ParseGrade(raw)
}

// ValidateSearch sanitizes a search term and bounds its length
func ValidateSearch(raw string) (string, error) {
	s := SanitizeString(raw)
	if utf8.RuneCountInString(s) > MaxSearchLength {
		return "", fmt.Errorf("search must be at most %d characters", MaxSearchLength)
	}
	return s, nil
}

// ValidateMessage sanitizes a chat message; empty is rejected downstream
func ValidateMessage(raw string) (string, error) {
	s := SanitizeString(raw)
	if utf8.RuneCountInString(s) > MaxMessageLength {
		return "", fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	}
	return s, nil
}

// ValidateEmailID validates email/service id format
func ValidateEmailID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid id format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateReportID validates report id (UUID)
func ValidateReportID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid report id format")
	}
	return nil
}

// ParseInt parses an optional query integer
func ParseInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateSkip rejects negative offsets
func ValidateSkip(skip int) error {
	if skip < 0 {
		return fmt.Errorf("skip must not be negative")
	}
	return nil
}
