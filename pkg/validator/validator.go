package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// ValidateUserID 3-50 letters, digits, underscore or hyphen.
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user id is required")
	}
	if !userIDPattern.MatchString(id) {
		return fmt.Errorf("user id must be 3-50 characters (letters, numbers, underscore, hyphen)")
	}
	return nil
}

const specialChars = `!@#$%^&*(),.?":{}|<>`

// ValidatePassword length 8-128 with upper, lower, digit and special character.
func ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if len(pw) > 128 {
		return fmt.Errorf("password too long")
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	switch {
	case !upper:
		return fmt.Errorf("password must contain at least one uppercase letter")
	case !lower:
		return fmt.Errorf("password must contain at least one lowercase letter")
	case !digit:
		return fmt.Errorf("password must contain at least one digit")
	case !special:
		return fmt.Errorf("password must contain at least one special character")
	}
	return nil
}

// ValidateText caps free text such as comments and reasons.
func ValidateText(field, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return nil
}

// Sanitize strips NUL bytes and surrounding whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
