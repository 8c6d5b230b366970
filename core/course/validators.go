package course

import (
	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
)

// InitValidators registers the course struct validation.
func InitValidators(validate *validator.Validate) {
	validate.RegisterStructValidation(courseStructValidation, NewCourse{})
}

func courseStructValidation(sl validator.StructLevel) {
	nc, ok := sl.Current().Interface().(NewCourse)
	if !ok || !nc.Language.IsValid() {
		return
	}
	bilingual.ReportMissing(sl, nc.Language, bilingual.Text{Es: nc.NameEs, En: nc.NameEn}, "name")
}
