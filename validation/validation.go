// Package validation holds the field predicates shared by every form.
// Predicates never fail loudly: they return false and callers turn that
// into a message with Message.
package validation

import (
	"regexp"
	"strings"
)

var (
	userNamePattern     = regexp.MustCompile(`^[a-z0-9._-]{4,}$`)
	passwordCharPattern = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,16}$`)
	emailPattern        = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.(com|in|org)$`)
	fullNamePattern     = regexp.MustCompile(`^[A-Za-z]{2,}( [A-Za-z]{2,})*$`)
	mobilePattern       = regexp.MustCompile(`^[0-9]{10}$`)
)

const passwordSymbols = "@$!%*?&"

// ValidateUserName reports whether s is at least 4 characters of lowercase letters, digits, '.', '_' or '-'.
func ValidateUserName(s string) bool {
	return userNamePattern.MatchString(s)
}

// ValidatePassword reports whether s is 8-16 characters long, mixes lower and
// upper case, contains one of @$!%*?& and uses no other characters.
func ValidatePassword(s string) bool {
	if !passwordCharPattern.MatchString(s) {
		return false
	}
	var hasLower, hasUpper, hasSymbol bool
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case strings.ContainsRune(passwordSymbols, c):
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasSymbol
}

func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidateFullName accepts one or more space separated words of two or more letters.
func ValidateFullName(s string) bool {
	return fullNamePattern.MatchString(s)
}

func ValidateMobile(s string) bool {
	return mobilePattern.MatchString(s)
}

// ValidateForm is the coarse pre-check used before any per-field validation.
func ValidateForm(username, password string) bool {
	return username != "" && password != ""
}
