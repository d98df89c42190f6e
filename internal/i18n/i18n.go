// Package i18n localizes form validation errors and account workflow messages.
package i18n

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	ptbr "github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
	ptbrtrans "github.com/go-playground/validator/v10/translations/pt_BR"
)

// Message keys used by the account workflow, in addition to the identity error codes.
const (
	LoginLockedOut      = "login.locked_out"
	LoginNotAllowed     = "login.not_allowed"
	LoginInvalid        = "login.invalid"
	RegisterSuccess     = "register.success"
	RegisterPhotoFailed = "register.photo_failed"
	InvalidBirthDate    = "form.invalid_birth_date"
	InvalidPhoto        = "form.invalid_photo"
	InvalidForm         = "form.invalid"
	Unexpected          = "DefaultError"
)

// Catalog validates request structs and translates message keys for one locale.
type Catalog struct {
	validate *validator.Validate
	trans    ut.Translator
}

type localeSetup struct {
	translator locales.Translator
	register   func(*validator.Validate, ut.Translator) error
	messages   map[string]string
}

var supported = map[string]localeSetup{
	"en":    {en.New(), entrans.RegisterDefaultTranslations, english},
	"pt_BR": {ptbr.New(), ptbrtrans.RegisterDefaultTranslations, portuguese},
}

// New builds a catalog for locale ("en" or "pt_BR").
func New(locale string) (*Catalog, error) {
	setup, ok := supported[locale]
	if !ok {
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}

	uni := ut.New(setup.translator, setup.translator)
	trans, found := uni.GetTranslator(setup.translator.Locale())
	if !found {
		return nil, fmt.Errorf("translator for %q not found", locale)
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := setup.register(v, trans); err != nil {
		return nil, fmt.Errorf("register validator translations: %w", err)
	}
	for key, text := range setup.messages {
		if err := trans.Add(key, text, false); err != nil {
			return nil, fmt.Errorf("add translation %s: %w", key, err)
		}
	}
	return &Catalog{validate: v, trans: trans}, nil
}

// Locale returns the catalog's locale name.
func (c *Catalog) Locale() string {
	return c.trans.Locale()
}

// Validate checks v against its validate tags. It returns the translated
// message for each failing field keyed by form field name, or nil when valid.
func (c *Catalog) Validate(v any) map[string]string {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": c.Message(InvalidForm)}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = fe.Translate(c.trans)
		}
	}
	return out
}

// Message translates key. Unknown keys fall back to the generic error message.
func (c *Catalog) Message(key string, params ...string) string {
	msg, err := c.trans.T(key, params...)
	if err != nil || msg == "" {
		msg, _ = c.trans.T(Unexpected)
	}
	return msg
}
