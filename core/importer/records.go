package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Grade is a raw percentage grade as found in an import file.
// Non numeric values are kept so that validation, not parsing, rejects them.
type Grade json.RawMessage

// NumberGrade returns the Grade holding f.
func NumberGrade(f float64) Grade {
	return Grade(strconv.FormatFloat(f, 'f', -1, 64))
}

// CellGrade returns the Grade of a spreadsheet cell: numeric text becomes a number, blank becomes null.
func CellGrade(cell string) Grade {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return NumberGrade(f)
	}
	b, _ := json.Marshal(cell)
	return b
}

func (g Grade) MarshalJSON() ([]byte, error) {
	if len(g) == 0 {
		return []byte("null"), nil
	}
	return g, nil
}

func (g *Grade) UnmarshalJSON(b []byte) error {
	*g = append((*g)[:0], b...)
	return nil
}

// IsMissing reports whether no grade was given.
func (g Grade) IsMissing() bool {
	return len(bytes.TrimSpace(g)) == 0 || string(bytes.TrimSpace(g)) == "null"
}

// Number returns the grade value, false when it is missing or not a JSON number.
func (g Grade) Number() (float64, bool) {
	if g.IsMissing() {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(g, &f); err != nil {
		return 0, false
	}
	return f, true
}

func (g Grade) String() string {
	if g.IsMissing() {
		return ""
	}
	var s string
	if err := json.Unmarshal(g, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(g))
}

// Text is a string field that also accepts a JSON number, e.g. `"groupNumber": 1`.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case string(b) == "null":
		*t = ""
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected a string or a number, got %s", b)
		}
		*t = Text(n.String())
	}
	return nil
}

// Row is one flat import row: a student grade along with the class it belongs to.
type Row struct {
	Line            int    `json:"line,omitempty"`
	ProgramCode     string `json:"programCode"`
	CourseCode      string `json:"courseCode"`
	BimesterName    string `json:"bimesterName"`
	GroupNumber     string `json:"groupNumber"`
	ProfessorEmail  string `json:"professorEmail"`
	StudentCode     string `json:"studentCode"`
	PercentageGrade Grade  `json:"percentageGrade"`
}

func (r Row) ClassKey() string {
	return ClassKeyOf(r.ProgramCode, r.CourseCode, r.BimesterName, r.GroupNumber)
}

// missingField returns the json name of the first required field r lacks, "" if none.
func (r Row) missingField() string {
	fields := []struct{ name, value string }{
		{"programCode", r.ProgramCode},
		{"courseCode", r.CourseCode},
		{"bimesterName", r.BimesterName},
		{"groupNumber", r.GroupNumber},
		{"professorEmail", r.ProfessorEmail},
		{"studentCode", r.StudentCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return f.name
		}
	}
	if r.PercentageGrade.IsMissing() {
		return "percentageGrade"
	}
	return ""
}

type StudentGrade struct {
	StudentCode     string `json:"studentCode"`
	PercentageGrade Grade  `json:"percentageGrade"`
}

// ClassRecord is one class with its roster, as held by one line of a JSONL import file.
type ClassRecord struct {
	Line           int            `json:"-"` // first line (or spreadsheet row) the record comes from
	ProgramCode    Text           `json:"programCode"`
	CourseCode     Text           `json:"courseCode"`
	BimesterName   Text           `json:"bimesterName"`
	GroupNumber    Text           `json:"groupNumber"`
	ProfessorEmail Text           `json:"professorEmail"`
	Students       []StudentGrade `json:"students"`
}

func (rec ClassRecord) ClassKey() string {
	return ClassKeyOf(string(rec.ProgramCode), string(rec.CourseCode), string(rec.BimesterName), string(rec.GroupNumber))
}

// ClassKeyOf identifies a class across an import: upper(trim(program))-upper(trim(course))-trim(bimester)-trim(group).
func ClassKeyOf(programCode, courseCode, bimesterName, groupNumber string) string {
	return strings.Join([]string{
		strings.ToUpper(strings.TrimSpace(programCode)),
		strings.ToUpper(strings.TrimSpace(courseCode)),
		strings.TrimSpace(bimesterName),
		strings.TrimSpace(groupNumber),
	}, "-")
}

// Group merges rows sharing a class key into one ClassRecord each, keeping the input order
// of both the classes and their students. Rows missing a required field are dropped and returned apart.
// The class fields of a record are the ones of its first row.
func Group(rows []Row) (records []ClassRecord, dropped []Warning) {
	index := make(map[string]int)
	for _, r := range rows {
		if field := r.missingField(); field != "" {
			dropped = append(dropped, Warning{
				Line:        r.Line,
				StudentCode: strings.TrimSpace(r.StudentCode),
				Message:     fmt.Sprintf("row dropped: %s is required", field),
			})
			continue
		}

		sg := StudentGrade{StudentCode: strings.TrimSpace(r.StudentCode), PercentageGrade: r.PercentageGrade}
		key := r.ClassKey()
		if i, ok := index[key]; ok {
			records[i].Students = append(records[i].Students, sg)
			continue
		}
		index[key] = len(records)
		records = append(records, ClassRecord{
			Line:           r.Line,
			ProgramCode:    Text(strings.TrimSpace(r.ProgramCode)),
			CourseCode:     Text(strings.TrimSpace(r.CourseCode)),
			BimesterName:   Text(strings.TrimSpace(r.BimesterName)),
			GroupNumber:    Text(strings.TrimSpace(r.GroupNumber)),
			ProfessorEmail: Text(strings.TrimSpace(r.ProfessorEmail)),
			Students:       []StudentGrade{sg},
		})
	}
	return records, dropped
}

// Flatten is the inverse of Group: one Row per student of every record.
func Flatten(records []ClassRecord) []Row {
	var rows []Row
	for _, rec := range records {
		for _, sg := range rec.Students {
			rows = append(rows, Row{
				Line:            rec.Line,
				ProgramCode:     string(rec.ProgramCode),
				CourseCode:      string(rec.CourseCode),
				BimesterName:    string(rec.BimesterName),
				GroupNumber:     string(rec.GroupNumber),
				ProfessorEmail:  string(rec.ProfessorEmail),
				StudentCode:     sg.StudentCode,
				PercentageGrade: sg.PercentageGrade,
			})
		}
	}
	return rows
}
