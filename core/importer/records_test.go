package importer

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassKeyOf(t *testing.T) {
	assert.Equal(t, "01L-CCOU-08-2021 Bimester I-1", ClassKeyOf(" 01l", "ccou-08 ", " 2021 Bimester I ", " 1"))
	// bimester names keep their case
	assert.NotEqual(t, ClassKeyOf("01L", "C", "Bimester I", "1"), ClassKeyOf("01L", "C", "bimester i", "1"))
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name        string
		json        string
		wantMissing bool
		wantNumber  float64
		wantOK      bool
		wantString  string
	}{
		{name: "number", json: `91.5`, wantNumber: 91.5, wantOK: true, wantString: "91.5"},
		{name: "null", json: `null`, wantMissing: true},
		{name: "numeric text is not a number", json: `"91"`, wantString: "91"},
		{name: "text", json: `"A+"`, wantString: "A+"},
		{name: "bool", json: `true`, wantString: "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sg StudentGrade
			require.NoError(t, json.Unmarshal([]byte(`{"studentCode":"S1","percentageGrade":`+tt.json+`}`), &sg))
			assert.Equal(t, tt.wantMissing, sg.PercentageGrade.IsMissing())
			n, ok := sg.PercentageGrade.Number()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantNumber, n)
			assert.Equal(t, tt.wantString, sg.PercentageGrade.String())
		})
	}

	var sg StudentGrade
	require.NoError(t, json.Unmarshal([]byte(`{"studentCode":"S1"}`), &sg))
	assert.True(t, sg.PercentageGrade.IsMissing())

	assert.Equal(t, NumberGrade(88), CellGrade(" 88 "))
	assert.True(t, CellGrade("  ").IsMissing())
	_, ok := CellGrade("n/a").Number()
	assert.False(t, ok)
}

func TestText_UnmarshalJSON(t *testing.T) {
	var rec ClassRecord
	require.NoError(t, json.Unmarshal([]byte(`{"programCode":"01L","groupNumber":1,"bimesterName":null}`), &rec))
	assert.Equal(t, Text("01L"), rec.ProgramCode)
	assert.Equal(t, Text("1"), rec.GroupNumber)
	assert.Equal(t, Text(""), rec.BimesterName)

	assert.Error(t, json.Unmarshal([]byte(`{"groupNumber":[1]}`), &rec))
}

func row(line int, program, course, bimester, group, email, student string, grade Grade) Row {
	return Row{
		Line: line, ProgramCode: program, CourseCode: course, BimesterName: bimester, GroupNumber: group,
		ProfessorEmail: email, StudentCode: student, PercentageGrade: grade,
	}
}

func TestGroup(t *testing.T) {
	rows := []Row{
		row(2, "01L", "CCOU-08", "2021 Bimester I", "1", "p@x.com", "S1", NumberGrade(91)),
		row(3, "02L", "MUS-01", "2021 Bimester I", "1", "q@x.com", "S1", NumberGrade(75)),
		row(4, " 01l ", "ccou-08", "2021 Bimester I", "1", "other@x.com", "S2", NumberGrade(60)),
		row(5, "01L", "CCOU-08", "2021 Bimester I", "", "p@x.com", "S3", NumberGrade(70)),
		row(6, "01L", "CCOU-08", "2021 Bimester I", "1", "p@x.com", "S4", nil),
		row(7, "01L", "CCOU-08", "2021 Bimester I", "1", "p@x.com", "S5", CellGrade("abc")),
	}

	records, dropped := Group(rows)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "01L-CCOU-08-2021 Bimester I-1", first.ClassKey())
	assert.Equal(t, Text("p@x.com"), first.ProfessorEmail, "class fields come from the first row")
	require.Len(t, first.Students, 3)
	assert.Equal(t, []string{"S1", "S2", "S5"}, []string{first.Students[0].StudentCode, first.Students[1].StudentCode, first.Students[2].StudentCode})
	assert.Equal(t, "02L-MUS-01-2021 Bimester I-1", records[1].ClassKey())

	require.Len(t, dropped, 2)
	assert.Equal(t, 5, dropped[0].Line)
	assert.Contains(t, dropped[0].Message, "groupNumber")
	assert.Equal(t, 6, dropped[1].Line)
	assert.Contains(t, dropped[1].Message, "percentageGrade")
}

func TestGroupFlatten_RoundTrip(t *testing.T) {
	var rows []Row
	for i := 0; i < 30; i++ {
		rows = append(rows, row(i+2,
			fmt.Sprintf("P%d", i%2), fmt.Sprintf("C%d", i%3), "2021 Bimester I", fmt.Sprint(i%4),
			"p@x.com", fmt.Sprintf("S%02d", i), NumberGrade(float64(i*3))))
	}

	type triple struct{ key, student, grade string }
	triples := func(rows []Row) []triple {
		var res []triple
		for _, r := range rows {
			res = append(res, triple{r.ClassKey(), r.StudentCode, r.PercentageGrade.String()})
		}
		return res
	}

	records, dropped := Group(rows)
	assert.Empty(t, dropped)
	assert.Len(t, records, 12)
	assert.ElementsMatch(t, triples(rows), triples(Flatten(records)))
}
