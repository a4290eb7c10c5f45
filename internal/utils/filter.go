package utils

import (
	"unicode"
)

// IsAlphabetic reports whether a string consists entirely of letters
func IsAlphabetic(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsValidQuery checks if input should be processed for lookups
// Returns false for strings that are numeric-only, contain symbols, or are repetitive
func IsValidQuery(s string) bool {
	if len(s) == 0 {
		return false
	}
	if IsOnlyNumbers(s) {
		return false
	}
	if !IsAlphabetic(s) {
		return false
	}
	if IsRepetitive(s) {
		return false
	}
	return true
}

// IsRepetitive checks if a string consists of repetitive characters
// Simple version that checks for repeated characters (e.g., "aaa", "bbb")
func IsRepetitive(s string) bool {
	if len(s) <= 2 {
		return false
	}

	firstChar := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != firstChar {
			return false
		}
	}
	return true
}
