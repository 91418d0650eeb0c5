package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrInvalidText is returned for document text that cannot be processed
var ErrInvalidText = errors.New("invalid document text")

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidateDocumentText checks that text is non-blank UTF-8 within maxBytes.
// A maxBytes of zero disables the size check.
func ValidateDocumentText(text string, maxBytes int) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalidText)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidText)
	}
	if maxBytes > 0 && len(text) > maxBytes {
		return fmt.Errorf("%w: text is %d bytes, limit is %d", ErrInvalidText, len(text), maxBytes)
	}
	return nil
}

// SanitizeText strips control characters other than tab, newline and carriage return
func SanitizeText(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}
