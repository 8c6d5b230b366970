package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var codeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// globalRules are the validation tags shared by every domain package.
// A nil fn only overrides the message of a built-in tag.
var globalRules = []struct {
	tag  string
	text string
	fn   validator.Func
}{
	{"notblank", "this field cannot be blank", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	}},
	// program, course and user codes such as "01L" or "CCOU-08"
	{"code", "only letters, digits, dashes and underscores are allowed", func(fl validator.FieldLevel) bool {
		return codeRegex.MatchString(fl.Field().String())
	}},
	{"required", "this field is required", nil},
	{"required_with", "this field is required", nil},
}

// NewTranslator returns the english translator used to render validation errors.
func NewTranslator() ut.Translator {
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator(locale.Locale())
	return translator
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// InitValidators registers the english messages and the shared tags. Errors name fields by their json tag.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	validate.RegisterTagNameFunc(jsonFieldName)

	for _, r := range globalRules {
		if r.fn != nil {
			_ = validate.RegisterValidation(r.tag, r.fn)
		}
		RegisterCustomTranslation(validate, translator, r.tag, r.text, r.fn == nil)
	}
}

// RegisterCustomTranslation sets the message of tag. Pass override to replace a built-in message.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	replace := len(override) > 0 && override[0]
	register := func(t ut.Translator) error { return t.Add(tag, text, replace) }
	translate := func(t ut.Translator, fe validator.FieldError) string {
		msg, _ := t.T(fe.Tag(), fe.Field())
		return msg
	}
	_ = validate.RegisterTranslation(tag, translator, register, translate)
}
