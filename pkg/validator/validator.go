// Package validator holds the caller-side checks the engine itself
// deliberately skips: the engine treats inputs opaquely and fails
// silent, so UIs validate here before calling in.
package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const (
	maxMessageLen = 4096

	// Attachment payloads above this are rejected before reaching
	// the engine. The engine itself never checks.
	MaxAttachmentBytes = 5 * 1024 * 1024
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
var pinRegex = regexp.MustCompile(`^[0-9]{4}$`)

func ValidateIdentity(username string) ValidationErrors {
	errs := make(ValidationErrors)

	username = strings.TrimSpace(username)
	if username == "" {
		errs.Add("username", "Username is required")
	} else if len(username) < 3 {
		errs.Add("username", "Username must be at least 3 characters")
	} else if len(username) > 50 {
		errs.Add("username", "Username is too long")
	} else if !usernameRegex.MatchString(username) {
		errs.Add("username", "Username can only contain letters, numbers, _ and -")
	}

	return errs
}

// ValidatePIN accepts the 4-digit unlock PIN.
func ValidatePIN(pin string) ValidationErrors {
	errs := make(ValidationErrors)

	if !pinRegex.MatchString(pin) {
		errs.Add("pin", "PIN must be exactly 4 digits")
	}

	return errs
}

// ValidatePassphrase accepts the longer unlock passphrase alternative.
func ValidatePassphrase(passphrase string) ValidationErrors {
	errs := make(ValidationErrors)
	validatePassphrase(passphrase, errs)
	return errs
}

func ValidateMessage(text string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(text) == "" {
		errs.Add("text", "Message text is required")
	} else if len(text) > maxMessageLen {
		errs.Add("text", fmt.Sprintf("Message must be at most %d bytes", maxMessageLen))
	}

	return errs
}

// ValidateAttachment enforces the size cap and known kinds before an
// attachment is handed to the engine.
func ValidateAttachment(kind, name string, sizeBytes int64) ValidationErrors {
	errs := make(ValidationErrors)

	if kind != "image" && kind != "file" {
		errs.Add("type", "Attachment type must be image or file")
	}
	if strings.TrimSpace(name) == "" {
		errs.Add("name", "Attachment name is required")
	}
	if sizeBytes <= 0 {
		errs.Add("size", "Attachment is empty")
	} else if sizeBytes > MaxAttachmentBytes {
		errs.Add("size", "Attachment must be at most 5MB")
	}

	return errs
}

func validatePassphrase(passphrase string, errs ValidationErrors) {
	if len(passphrase) < 8 {
		errs.Add("passphrase", "Passphrase must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range passphrase {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("passphrase", fmt.Sprintf("Passphrase must contain at least %s", strings.Join(missing, ", ")))
	}
}
