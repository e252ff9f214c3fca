package patch

import (
	"regexp"
	"unicode/utf8"

	"registrar/internal/apperr"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailFormat accepts the simple local@domain.tld shape.
func EmailFormat(message string) func(string) error {
	return func(value string) error {
		if !emailPattern.MatchString(value) {
			return apperr.Validation(message)
		}
		return nil
	}
}

func MaxLength(n int, message string) func(string) error {
	return func(value string) error {
		if utf8.RuneCountInString(value) > n {
			return apperr.Validation(message)
		}
		return nil
	}
}
