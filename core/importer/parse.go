package importer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
	FormatXLSX  Format = "xlsx"
)

// DetectFormat tells the format of a file from its name.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(path.Ext(strings.TrimSpace(filename))) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFileType
	}
}

const maxLineSize = 4 << 20

// ParseJSONL decodes one ClassRecord per line. Blank lines are skipped.
// The first line that does not decode aborts with a *ParseError.
func ParseJSONL(r io.Reader) ([]ClassRecord, error) {
	var records []ClassRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		rec, err := decodeRecord(b)
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		rec.Line = line
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: line + 1, Err: err}
	}
	return records, nil
}

// ParseJSON decodes a JSON array of ClassRecords, or falls back to ParseJSONL.
// Records of an array are numbered from 1 in place of lines.
func ParseJSON(data []byte) ([]ClassRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return ParseJSONL(bytes.NewReader(data))
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, &ParseError{Line: 1, Err: err}
	}
	records := make([]ClassRecord, 0, len(raws))
	for i, raw := range raws {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, &ParseError{Line: i + 1, Err: err}
		}
		rec.Line = i + 1
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(b []byte) (ClassRecord, error) {
	if b = bytes.TrimSpace(b); len(b) == 0 || b[0] != '{' {
		return ClassRecord{}, errors.New("expected a JSON object")
	}
	var rec ClassRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return ClassRecord{}, err
	}
	return rec, nil
}

// column names of the flat spreadsheet layout
var xlsxColumns = []string{
	"program_code", "course_code", "bimester_name", "group_number",
	"professor_email", "student_code", "percentage_grade",
}

// normalizeColumn lets "Program Code", "programCode" and "program_code" name the same column.
func normalizeColumn(name string) string {
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(name)))
}

// ParseXLSX reads the flat rows of the first sheet of a workbook. Row 1 is the header.
// Lines are spreadsheet row numbers. Blank rows are skipped.
func ParseXLSX(r io.Reader) ([]Row, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Line: 1, Err: errors.Wrap(err, "opening workbook")}
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Line: 1, Err: errors.Wrap(err, "reading rows")}
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	columnMap := make(map[string]int)
	for i, col := range rows[0] {
		columnMap[normalizeColumn(col)] = i
	}
	for _, col := range xlsxColumns {
		if _, ok := columnMap[normalizeColumn(col)]; !ok {
			return nil, &ParseError{Line: 1, Err: fmt.Errorf("missing required column: %s", col)}
		}
	}

	var result []Row
	for i, row := range rows[1:] {
		getValue := func(col string) string {
			if idx := columnMap[normalizeColumn(col)]; idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		result = append(result, Row{
			Line:            i + 2, // header is row 1
			ProgramCode:     getValue("program_code"),
			CourseCode:      getValue("course_code"),
			BimesterName:    getValue("bimester_name"),
			GroupNumber:     getValue("group_number"),
			ProfessorEmail:  getValue("professor_email"),
			StudentCode:     getValue("student_code"),
			PercentageGrade: CellGrade(getValue("percentage_grade")),
		})
	}
	return result, nil
}
