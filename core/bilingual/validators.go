package bilingual

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

var (
	languageTag  = "language"
	languageText = "must be one of es, en or both"

	localeTag  = "locale"
	localeText = "must be one of es or en"

	contentRequiredTag  = "contentrequired"
	contentRequiredText = "this field is required by the content language"
)

// InitValidators registers the bilingual validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(languageTag, languageValidation)
	core.RegisterCustomTranslation(validate, translator, languageTag, languageText)

	_ = validate.RegisterValidation(localeTag, localeValidation)
	core.RegisterCustomTranslation(validate, translator, localeTag, localeText)

	core.RegisterCustomTranslation(validate, translator, contentRequiredTag, contentRequiredText)
}

// ReportMissing reports, from a struct level validation, the values of t that lang requires and that are blank.
// field is the json name prefix, e.g. "name" for "name_es" and "name_en".
func ReportMissing(sl validator.StructLevel, lang Language, t Text, field string) {
	for _, l := range t.Missing(lang) {
		name := field + "_" + string(l)
		sl.ReportError(t.In(l), name, name, contentRequiredTag, "")
	}
}

func languageValidation(fl validator.FieldLevel) bool {
	return Language(fl.Field().String()).IsValid()
}

func localeValidation(fl validator.FieldLevel) bool {
	return Language(fl.Field().String()).IsLocale()
}
