package identity

import (
	"net/mail"
	"strings"
)

// IsValidEmail reports whether value parses as a mail address. It is a purely
// syntactic check and never touches the network.
func IsValidEmail(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	_, err := mail.ParseAddress(value)
	return err == nil
}
