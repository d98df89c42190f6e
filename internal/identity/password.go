package identity

import (
	"errors"
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input beyond this many bytes, so longer passwords are refused.
const maxPasswordBytes = 72

// PasswordPolicy describes the complexity rules applied at registration.
type PasswordPolicy struct {
	MinLength              int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
	// MinStrength is the minimum zxcvbn score (0-4). Zero disables the check.
	MinStrength int
}

// DefaultPasswordPolicy mirrors the usual storefront defaults: six characters
// with a digit, both cases and a symbol.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:              6,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
	}
}

// Validate returns every rule the password breaks. userInputs feed the
// strength estimator so that passwords built from the email score low.
func (p PasswordPolicy) Validate(password string, userInputs ...string) []Error {
	var errs []Error
	if len([]rune(password)) < p.MinLength {
		errs = append(errs, Error{
			Code:        CodePasswordTooShort,
			Description: fmt.Sprintf("Passwords must be at least %d characters.", p.MinLength),
		})
	}
	if len(password) > maxPasswordBytes {
		errs = append(errs, Error{
			Code:        CodePasswordTooLong,
			Description: fmt.Sprintf("Passwords must be at most %d bytes.", maxPasswordBytes),
		})
	}

	var hasDigit, hasLower, hasUpper, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasOther = true
		}
	}
	if p.RequireNonAlphanumeric && !hasOther {
		errs = append(errs, Error{Code: CodePasswordRequiresNonAlphanumeric, Description: "Passwords must have at least one non alphanumeric character."})
	}
	if p.RequireDigit && !hasDigit {
		errs = append(errs, Error{Code: CodePasswordRequiresDigit, Description: "Passwords must have at least one digit ('0'-'9')."})
	}
	if p.RequireLowercase && !hasLower {
		errs = append(errs, Error{Code: CodePasswordRequiresLower, Description: "Passwords must have at least one lowercase ('a'-'z')."})
	}
	if p.RequireUppercase && !hasUpper {
		errs = append(errs, Error{Code: CodePasswordRequiresUpper, Description: "Passwords must have at least one uppercase ('A'-'Z')."})
	}

	if p.MinStrength > 0 && len(errs) == 0 {
		if zxcvbn.PasswordStrength(password, userInputs).Score < p.MinStrength {
			errs = append(errs, Error{Code: CodePasswordTooWeak, Description: "Password is too easy to guess."})
		}
	}
	return errs
}

// HashPassword produces a bcrypt hash suitable for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash. Errors
// other than a mismatch are returned to the caller.
func VerifyPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
