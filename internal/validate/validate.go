// Package validate holds the pure input checks performed before any
// credential work happens. Every rule is evaluated; callers get the full
// list of violations, not just the first.
package validate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	passwordMinLength = 8
	fullNameMinLength = 2
)

// SignUpInput is the normalized payload of a valid sign-up request.
type SignUpInput struct {
	Email    string
	Password string
	FullName string
}

// SignInInput is the normalized payload of a valid sign-in request.
type SignInInput struct {
	Email    string
	Password string
}

// PasswordViolations checks a candidate password against the account
// password policy and reports every rule it breaks.
func PasswordViolations(password string) []string {
	var violations []string
	if utf8.RuneCountInString(password) < passwordMinLength {
		violations = append(violations, "Password must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		violations = append(violations, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "Password must contain at least one number")
	}
	return violations
}

// SignUp validates raw sign-up fields. On success it returns the normalized
// input (email lowercased, names trimmed) and a nil error list.
func SignUp(email, password, fullName string) (SignUpInput, []string) {
	var errs []string

	errs = append(errs, emailErrors(email)...)

	trimmedName := strings.TrimSpace(fullName)
	if trimmedName == "" {
		errs = append(errs, "Full name is required")
	} else if len([]rune(trimmedName)) < fullNameMinLength {
		errs = append(errs, "Full name must be at least 2 characters")
	}

	if password == "" {
		errs = append(errs, "Password is required")
	} else {
		errs = append(errs, PasswordViolations(password)...)
	}

	if len(errs) > 0 {
		return SignUpInput{}, errs
	}

	return SignUpInput{
		Email:    normalizeEmail(email),
		Password: password,
		FullName: trimmedName,
	}, nil
}

// SignIn validates raw sign-in fields. Password strength is not re-checked
// at sign-in; only presence matters.
func SignIn(email, password string) (SignInInput, []string) {
	var errs []string

	errs = append(errs, emailErrors(email)...)

	if password == "" {
		errs = append(errs, "Password is required")
	}

	if len(errs) > 0 {
		return SignInInput{}, errs
	}

	return SignInInput{
		Email:    normalizeEmail(email),
		Password: password,
	}, nil
}

func emailErrors(email string) []string {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return []string{"Email is required"}
	}
	if !emailPattern.MatchString(trimmed) {
		return []string{"Email must be a valid email address"}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
