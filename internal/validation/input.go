package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MinReasonLength    = 5
	MaxReasonLength    = 2000
	MaxNicknameLength  = 50
	MaxResolutionNotes = 2000
	phoneMinDigits     = 8
	phoneMaxDigits     = 15
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}[0-9]$`)

// ValidateLength checks that a trimmed string fits the given bounds.
func ValidateLength(field, value string, min, max int) error {
	length := len(strings.TrimSpace(value))
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", field, min)
	}
	if length > max {
		return fmt.Errorf("%s must not exceed %d characters", field, max)
	}
	return nil
}

// ValidatePhone checks that a phone number looks like a dialable mobile-money
// number. Formatting characters are tolerated; only the digits count.
func ValidatePhone(phone string) error {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return fmt.Errorf("phone number is required")
	}
	if !phonePattern.MatchString(trimmed) {
		return fmt.Errorf("phone number format is invalid")
	}
	digits := 0
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < phoneMinDigits || digits > phoneMaxDigits {
		return fmt.Errorf("phone number must contain between %d and %d digits", phoneMinDigits, phoneMaxDigits)
	}
	return nil
}
