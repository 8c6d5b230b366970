package program

import (
	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
)

// InitValidators registers the program struct validation.
func InitValidators(validate *validator.Validate) {
	validate.RegisterStructValidation(programStructValidation, NewProgram{})
}

// programStructValidation requires the name in every language the program is written in.
func programStructValidation(sl validator.StructLevel) {
	np, ok := sl.Current().Interface().(NewProgram)
	if !ok || !np.Language.IsValid() {
		return
	}
	bilingual.ReportMissing(sl, np.Language, bilingual.Text{Es: np.NameEs, En: np.NameEn}, "name")
}
