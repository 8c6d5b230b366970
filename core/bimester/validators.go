package bimester

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

var (
	endAfterStartTag  = "endafterstart"
	endAfterStartText = "end date must be after the start date"

	deadlineAfterEndTag  = "deadlineafterend"
	deadlineAfterEndText = "grade deadline cannot be before the end date"
)

// InitValidators registers the bimester period validation.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(periodStructValidation, NewBimester{}, UpdateBimester{})
	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
	core.RegisterCustomTranslation(validate, translator, deadlineAfterEndTag, deadlineAfterEndText)
}

// periodStructValidation enforces start < end <= gradeDeadline.
func periodStructValidation(sl validator.StructLevel) {
	var start, end, deadline time.Time
	switch b := sl.Current().Interface().(type) {
	case NewBimester:
		start, end, deadline = b.StartDate, b.EndDate, b.GradeDeadline
	case UpdateBimester:
		start, end, deadline = b.period[0], b.period[1], b.period[2]
	default:
		return
	}
	if start.IsZero() || end.IsZero() || deadline.IsZero() {
		return // reported by required
	}
	if !start.Before(end) {
		sl.ReportError(end, "end_date", "EndDate", endAfterStartTag, "")
	}
	if deadline.Before(end) {
		sl.ReportError(deadline, "grade_deadline", "GradeDeadline", deadlineAfterEndTag, "")
	}
}
