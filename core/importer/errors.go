package importer

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type: expected .jsonl, .ndjson, .json or .xlsx")
	ErrEmptyFile           = errors.New("the file is empty")
	ErrFileTooLarge        = errors.New("the file is too large")
)

// ParseError aborts an import: a line of the file could not be decoded.
type ParseError struct {
	Line int
	Err  error
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", err.Line, err.Err)
}

func (err *ParseError) Unwrap() error { return err.Err }

// IsFileError reports whether err is a file level failure, as opposed to an internal one.
func IsFileError(err error) bool {
	switch cause := errors.Cause(err); cause {
	case ErrUnsupportedFileType, ErrEmptyFile, ErrFileTooLarge:
		return true
	default:
		_, ok := cause.(*ParseError)
		return ok
	}
}

// ErrorType discriminates the Data of a RowError.
type ErrorType string

const (
	TypeValidation       ErrorType = "validation"
	TypeUnknownProgram   ErrorType = "unknown_program"
	TypeUnknownCourse    ErrorType = "unknown_course"
	TypeUnknownBimester  ErrorType = "unknown_bimester"
	TypeUnknownProfessor ErrorType = "unknown_professor"
	TypeUnknownStudent   ErrorType = "unknown_student"
	TypeInvalidGrade     ErrorType = "invalid_grade"
	TypePersistence      ErrorType = "persistence"
)

// ErrorData is the payload of a RowError. Each implementation carries only what its failure needs.
type ErrorData interface {
	Type() ErrorType
}

type (
	ValidationData struct {
		Field string `json:"field"`
	}
	UnknownProgramData struct {
		ProgramCode string `json:"programCode"`
	}
	UnknownCourseData struct {
		ProgramCode string `json:"programCode"`
		CourseCode  string `json:"courseCode"`
	}
	UnknownBimesterData struct {
		BimesterName string `json:"bimesterName"`
	}
	UnknownProfessorData struct {
		ProfessorEmail string `json:"professorEmail"`
		// NotProfessor is set when the user exists with another role.
		NotProfessor bool `json:"notProfessor,omitempty"`
	}
	UnknownStudentData struct {
		StudentCode string `json:"studentCode"`
		NotStudent  bool   `json:"notStudent,omitempty"`
	}
	InvalidGradeData struct {
		Value string `json:"value"`
	}
	PersistenceData struct {
		Operation string `json:"operation"`
	}
)

func (ValidationData) Type() ErrorType       { return TypeValidation }
func (UnknownProgramData) Type() ErrorType   { return TypeUnknownProgram }
func (UnknownCourseData) Type() ErrorType    { return TypeUnknownCourse }
func (UnknownBimesterData) Type() ErrorType  { return TypeUnknownBimester }
func (UnknownProfessorData) Type() ErrorType { return TypeUnknownProfessor }
func (UnknownStudentData) Type() ErrorType   { return TypeUnknownStudent }
func (InvalidGradeData) Type() ErrorType     { return TypeInvalidGrade }
func (PersistenceData) Type() ErrorType      { return TypePersistence }

// RowError is a record level failure. It never aborts an import.
type RowError struct {
	Line        int       `json:"line,omitempty"`
	ClassKey    string    `json:"classKey,omitempty"`
	StudentCode string    `json:"studentCode,omitempty"`
	Message     string    `json:"message"`
	Data        ErrorData `json:"-"`
}

func (e RowError) Type() ErrorType {
	if e.Data == nil {
		return TypeValidation
	}
	return e.Data.Type()
}

func (e RowError) MarshalJSON() ([]byte, error) {
	type plain RowError
	return json.Marshal(struct {
		plain
		Type ErrorType   `json:"type"`
		Data interface{} `json:"data,omitempty"`
	}{plain: plain(e), Type: e.Type(), Data: e.Data})
}

func (e *RowError) UnmarshalJSON(b []byte) error {
	type plain RowError
	var wire struct {
		plain
		Type ErrorType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*e = RowError(wire.plain)

	var data ErrorData
	switch wire.Type {
	case TypeValidation, "":
		data = &ValidationData{}
	case TypeUnknownProgram:
		data = &UnknownProgramData{}
	case TypeUnknownCourse:
		data = &UnknownCourseData{}
	case TypeUnknownBimester:
		data = &UnknownBimesterData{}
	case TypeUnknownProfessor:
		data = &UnknownProfessorData{}
	case TypeUnknownStudent:
		data = &UnknownStudentData{}
	case TypeInvalidGrade:
		data = &InvalidGradeData{}
	case TypePersistence:
		data = &PersistenceData{}
	default:
		return fmt.Errorf("unknown import error type %q", wire.Type)
	}
	if len(wire.Data) > 0 && string(wire.Data) != "null" {
		if err := json.Unmarshal(wire.Data, data); err != nil {
			return err
		}
	}
	e.Data = derefData(data)
	return nil
}

func derefData(d ErrorData) ErrorData {
	switch v := d.(type) {
	case *ValidationData:
		return *v
	case *UnknownProgramData:
		return *v
	case *UnknownCourseData:
		return *v
	case *UnknownBimesterData:
		return *v
	case *UnknownProfessorData:
		return *v
	case *UnknownStudentData:
		return *v
	case *InvalidGradeData:
		return *v
	case *PersistenceData:
		return *v
	}
	return d
}

// Warning reports something that did not fail but was not done as written.
type Warning struct {
	Line        int    `json:"line,omitempty"`
	ClassKey    string `json:"classKey,omitempty"`
	StudentCode string `json:"studentCode,omitempty"`
	Message     string `json:"message"`
}
