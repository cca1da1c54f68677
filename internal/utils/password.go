package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidPassword enforces the account password policy: 8 to 72 bytes with
// at least one lower-case letter, one upper-case letter and one digit.
// bcrypt ignores everything past 72 bytes.
func ValidPassword(p string) bool {
	if len(p) < 8 || len(p) > 72 {
		return false
	}
	var lower, upper, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// ValidName accepts letters and spaces only, and must not be blank.
func ValidName(s string) bool {
	seen := false
	for _, r := range s {
		if r == ' ' {
			continue
		}
		if !unicode.IsLetter(r) {
			return false
		}
		seen = true
	}
	return seen
}
