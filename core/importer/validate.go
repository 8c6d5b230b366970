package importer

import (
	"fmt"
	"math"
	"strings"

	"github.com/cpmappstudio/alef-university-sub001/core/grading"
)

// Validate checks a class record on its own. The record is importable iff the result is empty.
func Validate(rec ClassRecord) []string {
	errs := validate(rec)
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return msgs
}

// validate is Validate returning typed errors.
func validate(rec ClassRecord) []RowError {
	var errs []RowError
	key := rec.ClassKey()
	fail := func(studentCode, msg string, data ErrorData) {
		errs = append(errs, RowError{Line: rec.Line, ClassKey: key, StudentCode: studentCode, Message: msg, Data: data})
	}

	required := []struct {
		name  string
		value Text
	}{
		{"programCode", rec.ProgramCode},
		{"courseCode", rec.CourseCode},
		{"bimesterName", rec.BimesterName},
		{"groupNumber", rec.GroupNumber},
		{"professorEmail", rec.ProfessorEmail},
	}
	for _, f := range required {
		if strings.TrimSpace(string(f.value)) == "" {
			fail("", f.name+" is required", ValidationData{Field: f.name})
		}
	}

	if len(rec.Students) == 0 {
		fail("", "students must be a non-empty array", ValidationData{Field: "students"})
	}
	for i, sg := range rec.Students {
		code := strings.TrimSpace(sg.StudentCode)
		if code == "" {
			fail("", fmt.Sprintf("students[%d].studentCode is required", i), ValidationData{Field: fmt.Sprintf("students[%d].studentCode", i)})
		}
		p, ok := sg.PercentageGrade.Number()
		switch {
		case sg.PercentageGrade.IsMissing():
			fail(code, fmt.Sprintf("students[%d].percentageGrade is required", i), InvalidGradeData{})
		case !ok || math.IsNaN(p):
			fail(code, fmt.Sprintf("students[%d].percentageGrade must be a number, got %s", i, sg.PercentageGrade.String()), InvalidGradeData{Value: sg.PercentageGrade.String()})
		default:
			if err := grading.Check(p); err != nil {
				fail(code, fmt.Sprintf("students[%d].percentageGrade must be between %v and %v, got %s",
					i, grading.MinPercentage, grading.MaxPercentage, sg.PercentageGrade.String()),
					InvalidGradeData{Value: sg.PercentageGrade.String()})
			}
		}
	}
	return errs
}
