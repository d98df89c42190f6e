// Package views renders the server-side HTML pages of the account workflow.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by Render.
const (
	Login        = "login"
	Register     = "register"
	AccessDenied = "access_denied"
	Home         = "home"
)

// User is the signed-in user shown in the layout header.
type User struct {
	Name  string
	Email string
}

// Base is embedded by every page model.
type Base struct {
	Title     string
	CSRFToken string
	Flash     string
	User      *User
	Errors    []string
}

// LoginPage backs the login form.
type LoginPage struct {
	Base
	Email     string
	Remember  bool
	ReturnURL string
}

// RegisterPage backs the registration form. FieldErrors is keyed by form field name.
type RegisterPage struct {
	Base
	Name        string
	BirthDate   string
	Email       string
	FieldErrors map[string]string
}

// HomePage is the landing page.
type HomePage struct {
	Base
	Photo string
}

// Renderer holds the parsed page set.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded templates; each page is combined with the layout.
func New() (*Renderer, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		page := path.Base(name)
		page = page[:len(page)-len(path.Ext(page))]
		if page == "layout" {
			continue
		}
		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[page] = clone
	}
	return r, nil
}

// Render executes page into a buffer first so a template error never leaves
// a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
