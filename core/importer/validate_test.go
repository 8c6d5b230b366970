package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := func() ClassRecord {
		return ClassRecord{
			Line: 1, ProgramCode: "01L", CourseCode: "CCOU-08", BimesterName: "2021 Bimester I", GroupNumber: "1",
			ProfessorEmail: "p@x.com",
			Students:       []StudentGrade{{StudentCode: "S1", PercentageGrade: NumberGrade(91)}},
		}
	}

	tests := []struct {
		name     string
		modify   func(*ClassRecord)
		wantMsgs []string
	}{
		{name: "valid", modify: func(*ClassRecord) {}},
		{name: "bounds are valid", modify: func(r *ClassRecord) {
			r.Students = []StudentGrade{{StudentCode: "S1", PercentageGrade: NumberGrade(0)}, {StudentCode: "S2", PercentageGrade: NumberGrade(100)}}
		}},
		{name: "grade out of range", modify: func(r *ClassRecord) { r.Students[0].PercentageGrade = NumberGrade(150) },
			wantMsgs: []string{"students[0].percentageGrade must be between 0 and 100, got 150"}},
		{name: "negative grade", modify: func(r *ClassRecord) { r.Students[0].PercentageGrade = NumberGrade(-0.5) },
			wantMsgs: []string{"students[0].percentageGrade must be between 0 and 100, got -0.5"}},
		{name: "text grade", modify: func(r *ClassRecord) { r.Students[0].PercentageGrade = Grade(`"ninety"`) },
			wantMsgs: []string{"students[0].percentageGrade must be a number, got ninety"}},
		{name: "missing grade", modify: func(r *ClassRecord) { r.Students[0].PercentageGrade = nil },
			wantMsgs: []string{"students[0].percentageGrade is required"}},
		{name: "blank fields", modify: func(r *ClassRecord) { r.ProgramCode, r.ProfessorEmail = " ", "" },
			wantMsgs: []string{"programCode is required", "professorEmail is required"}},
		{name: "no students", modify: func(r *ClassRecord) { r.Students = nil },
			wantMsgs: []string{"students must be a non-empty array"}},
		{name: "blank student code", modify: func(r *ClassRecord) { r.Students[0].StudentCode = "  " },
			wantMsgs: []string{"students[0].studentCode is required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.modify(&rec)
			msgs := Validate(rec)
			if len(tt.wantMsgs) == 0 {
				assert.Empty(t, msgs)
				return
			}
			assert.Equal(t, tt.wantMsgs, msgs)
		})
	}
}

func TestValidate_TypedErrors(t *testing.T) {
	rec := ClassRecord{
		Line: 7, ProgramCode: "01L", CourseCode: "CCOU-08", BimesterName: "2021 Bimester I", GroupNumber: "1",
		Students: []StudentGrade{{StudentCode: " S1 ", PercentageGrade: NumberGrade(150)}},
	}
	errs := validate(rec)
	require.Len(t, errs, 2)

	assert.Equal(t, TypeValidation, errs[0].Type())
	assert.Equal(t, ValidationData{Field: "professorEmail"}, errs[0].Data)

	assert.Equal(t, TypeInvalidGrade, errs[1].Type())
	assert.Equal(t, 7, errs[1].Line)
	assert.Equal(t, "S1", errs[1].StudentCode)
	assert.Equal(t, "01L-CCOU-08-2021 Bimester I-1", errs[1].ClassKey)
	assert.Equal(t, InvalidGradeData{Value: "150"}, errs[1].Data)
}
