package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

// NewValidator returns a validator knowing every custom tag and struct validation of the domain,
// with its errors translated to english.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()

	core.InitValidators(validate, translator)
	bilingual.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	bimester.InitValidators(validate, translator)
	program.InitValidators(validate)
	course.InitValidators(validate)
	return validate, translator
}
