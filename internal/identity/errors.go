package identity

import "github.com/hongminglow/gstore/internal/models"

// Error codes reported by user creation. They are stable keys that the i18n
// package translates for display.
const (
	CodeDefaultError                    = "DefaultError"
	CodeInvalidEmail                    = "InvalidEmail"
	CodeInvalidUserName                 = "InvalidUserName"
	CodeDuplicateUserName               = "DuplicateUserName"
	CodeDuplicateEmail                  = "DuplicateEmail"
	CodePasswordTooShort                = "PasswordTooShort"
	CodePasswordTooLong                 = "PasswordTooLong"
	CodePasswordRequiresDigit           = "PasswordRequiresDigit"
	CodePasswordRequiresLower           = "PasswordRequiresLower"
	CodePasswordRequiresUpper           = "PasswordRequiresUpper"
	CodePasswordRequiresNonAlphanumeric = "PasswordRequiresNonAlphanumeric"
	CodePasswordTooWeak                 = "PasswordTooWeak"
)

// Error is a single reason an identity operation was refused.
type Error struct {
	Code        string
	Description string
}

// Result is the outcome of CreateUser. On success User holds the stored record.
type Result struct {
	User   models.User
	Errors []Error
}

// Succeeded reports whether the operation completed without errors.
func (r Result) Succeeded() bool {
	return len(r.Errors) == 0
}

// Codes returns the error codes in the order they were reported.
func (r Result) Codes() []string {
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

func failed(errs ...Error) Result {
	return Result{Errors: errs}
}
