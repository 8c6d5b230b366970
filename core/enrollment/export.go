package enrollment

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var rosterHeader = map[string][]interface{}{
	"es": {"Código", "Estudiante", "Porcentaje", "Letra", "Puntos", "Puntos de calidad"},
	"en": {"Code", "Student", "Percentage", "Letter", "Points", "Quality points"},
}

// WriteRosterXLSX writes r as a single sheet workbook: a title block followed by one row per student.
func WriteRosterXLSX(w io.Writer, r Roster) error {
	f := excelize.NewFile()
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	sheet := "Roster"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	header, ok := rosterHeader[string(r.Locale)]
	if !ok {
		header = rosterHeader["es"]
	}
	rows := [][]interface{}{
		{r.CourseCode, r.CourseName},
		{r.BimesterName, "Group " + r.Class.GroupNumber, string(r.Class.Status)},
		{r.ProfessorName},
		{},
		header,
	}
	for _, row := range r.Rows {
		rows = append(rows, []interface{}{
			row.StudentCode,
			row.StudentName,
			floatCell(row.PercentageGrade),
			row.LetterGrade,
			floatCell(row.GradePoints),
			floatCell(row.QualityPoints),
		})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+1)
		}
	}

	_, err := f.WriteTo(w)
	return errors.Wrap(err, "writing workbook")
}

func floatCell(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}
