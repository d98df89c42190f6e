package respond

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Envelope is the JSON wrapper used by the operational endpoints.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already out; an encode failure means the client went away
	_ = json.NewEncoder(w).Encode(payload)
}

// IsLocalURL reports whether target is a path on this site. Absolute URLs,
// scheme-relative URLs ("//host") and backslash tricks ("/\host") are rejected.
func IsLocalURL(target string) bool {
	if target == "" || target[0] != '/' {
		return false
	}
	if len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return false
	}
	if strings.ContainsAny(target, "\r\n\t") {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// LocalRedirect redirects to target when it is local, otherwise to fallback.
func LocalRedirect(w http.ResponseWriter, r *http.Request, target, fallback string) {
	if !IsLocalURL(target) {
		target = fallback
	}
	http.Redirect(w, r, target, http.StatusFound)
}
