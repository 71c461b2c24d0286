package utils

import (
	"fmt"
	"regexp"
)

// ValidateYearMonth validates a reconciliation period
func ValidateYearMonth(year, month int) error {
	if year < 2000 || year > 2100 {
		return fmt.Errorf("year out of range: %d", year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("month out of range: %d", month)
	}
	return nil
}

// ValidateBadgeKey validates a badge key from an exported sheet
func ValidateBadgeKey(key string) error {
	if key == "" {
		return fmt.Errorf("badge key is empty")
	}
	if len(key) > 32 {
		return fmt.Errorf("badge key too long: %s", key)
	}
	return nil
}

// SanitizeString removes control characters from user-supplied text
func SanitizeString(s string) string {
	sanitized := regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
	return sanitized
}
