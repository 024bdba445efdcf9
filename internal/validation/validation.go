package validation

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValidCardNumber checks a card number with the Luhn algorithm.
// Spaces and dashes are stripped first; the remainder must be 13-19 digits.
func IsValidCardNumber(raw string) bool {
	number := strings.NewReplacer(" ", "", "-", "").Replace(raw)
	if len(number) < 13 || len(number) > 19 {
		return false
	}
	if !isDigits(number) {
		return false
	}
	return luhnSum(number, false)%10 == 0
}

// IsValidRoutingNumber reports whether raw is exactly nine digits.
func IsValidRoutingNumber(raw string) bool {
	return len(raw) == 9 && isDigits(raw)
}

// IsValidEmail and IsValidPassword belong to the same validator set but
// are called by the sign-up system, not by anything in this service.

func IsValidEmail(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidPassword requires at least 8 characters with one letter and one digit.
func IsValidPassword(password string) bool {
	if len(password) < 8 || len(password) > 100 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}

// LuhnCheckDigit returns the digit that, appended to digits, makes the
// whole number pass the Luhn check. Used for account number generation.
func LuhnCheckDigit(digits string) int {
	return (10 - luhnSum(digits, true)%10) % 10
}

// luhnSum doubles every second digit from the right (subtracting 9 from
// doubled digits above 9) and sums the result. doubleFirst shifts the
// parity for numbers whose check digit is not yet appended.
func luhnSum(digits string, doubleFirst bool) int {
	sum := 0
	double := doubleFirst
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
