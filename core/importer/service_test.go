package importer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
	"github.com/cpmappstudio/alef-university-sub001/core/importer"
	testutil "github.com/cpmappstudio/alef-university-sub001/tests"
)

const gradesJSONL = `{"programCode":"01L","courseCode":"CCOU-08","bimesterName":"2021 Bimester I","groupNumber":1,"professorEmail":"prof@alef.test","students":[{"studentCode":"01L-0001","percentageGrade":91},{"studentCode":"01L-0002","percentageGrade":78.5}]}
{"programCode":"01L","courseCode":"CCOU-08","bimesterName":"2021 Bimester I","groupNumber":2,"professorEmail":"PROF@alef.test","students":[{"studentCode":"01L-0003","percentageGrade":150}]}
`

func source(name, content string) importer.Source {
	return importer.Source{Name: name, Reader: strings.NewReader(content)}
}

func counters(res *importer.Result) []int {
	return []int{
		res.TotalRecords, res.ValidRecords, res.ClassesCreated, res.ClassesAlreadyExisted,
		res.EnrollmentsCreated, res.EnrollmentsUpdated, res.EnrollmentsUnchanged,
	}
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t)
	cat := f.Seed(t)
	admin := testutil.Principal(cat.Admin)
	svc := f.Services.Importer

	var phases []importer.Phase
	res, err := svc.Run(ctx, admin, source("grades.jsonl", gradesJSONL), importer.Options{
		OnPhase: func(p importer.Phase) { phases = append(phases, p) },
	})
	require.NoError(t, err)

	assert.Equal(t, []importer.Phase{
		importer.PhaseReading, importer.PhaseParsing, importer.PhaseValidating, importer.PhaseImporting, importer.PhaseCompleted,
	}, phases)
	assert.Equal(t, importer.PhaseCompleted, res.Phase)
	assert.Equal(t, importer.FormatJSONL, res.Format)
	assert.Equal(t, []int{2, 1, 1, 0, 2, 0, 0}, counters(res))
	assert.Empty(t, res.Warnings)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Line)
	assert.Equal(t, "01L-0003", res.Errors[0].StudentCode)
	assert.Equal(t, "students[0].percentageGrade must be between 0 and 100, got 150", res.Errors[0].Message)
	assert.Equal(t, importer.TypeInvalidGrade, res.Errors[0].Type())

	classes, err := f.Services.Classes.Query(ctx, class.QueryFilter{CourseID: cat.Course.ID})
	require.NoError(t, err)
	require.Len(t, classes, 1, "an invalid record creates nothing")
	assert.Equal(t, "1", classes[0].GroupNumber)
	assert.Equal(t, cat.Professor.ID, classes[0].ProfessorID)

	e, err := f.Services.Enrollments.Find(ctx, classes[0].ID, cat.Students[1].ID)
	require.NoError(t, err)
	require.NotNil(t, e.PercentageGrade)
	assert.Equal(t, 78.5, *e.PercentageGrade)
	assert.Equal(t, "C+", e.LetterGrade)

	// the same file again changes nothing
	res, err = svc.Run(ctx, admin, source("grades.jsonl", gradesJSONL), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0, 1, 0, 0, 2}, counters(res))

	// a changed grade is updated in place
	changed := strings.Replace(gradesJSONL, `"percentageGrade":91`, `"percentageGrade":95`, 1)
	res, err = svc.Run(ctx, admin, source("grades.jsonl", changed), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0, 1, 0, 1, 1}, counters(res))

	enrollments, err := f.Services.Enrollments.Query(ctx, enrollment.QueryFilter{ClassID: classes[0].ID})
	require.NoError(t, err)
	assert.Len(t, enrollments, 2)

	sent := f.Mail.Sent()
	require.Len(t, sent, 3, "a summary is sent after every run")
	assert.Equal(t, "Enrollment import summary: grades.jsonl", sent[0].Subject)
	assert.Equal(t, cat.Admin.Email, sent[0].To[0].Address)
}

func TestService_Run_DryRun(t *testing.T) {
	ctx := context.Background()

	run := func(dryRun bool) (*testutil.Fixture, testutil.Catalog, *importer.Result) {
		f := testutil.NewFixture(t)
		cat := f.Seed(t)
		res, err := f.Services.Importer.Run(ctx, testutil.Principal(cat.Admin), source("grades.json", "["+
			strings.Join(strings.Split(strings.TrimSpace(gradesJSONL), "\n"), ",")+"]"), importer.Options{DryRun: dryRun})
		require.NoError(t, err)
		return f, cat, res
	}

	f, cat, dry := run(true)
	assert.True(t, dry.DryRun)
	classes, err := f.Services.Classes.Query(ctx, class.QueryFilter{CourseID: cat.Course.ID})
	require.NoError(t, err)
	assert.Empty(t, classes, "a dry run writes nothing")
	assert.Empty(t, f.Mail.Sent())

	_, _, wet := run(false)
	assert.Equal(t, counters(wet), counters(dry))
	assert.Equal(t, len(wet.Errors), len(dry.Errors))
}

func TestService_Run_References(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t)
	cat := f.Seed(t)
	admin := testutil.Principal(cat.Admin)

	existing := f.CreateClass(t, cat.Course.ID, cat.Bimester.ID, cat.Other.ID, "3")

	src := strings.Join([]string{
		`{"programCode":"99X","courseCode":"CCOU-08","bimesterName":"2021 Bimester I","groupNumber":1,"professorEmail":"prof@alef.test","students":[{"studentCode":"01L-0001","percentageGrade":80}]}`,
		`{"programCode":"01L","courseCode":"NOPE-01","bimesterName":"2021 Bimester I","groupNumber":1,"professorEmail":"prof@alef.test","students":[{"studentCode":"01L-0001","percentageGrade":80}]}`,
		`{"programCode":"01L","courseCode":"CCOU-08","bimesterName":"2030 Bimester I","groupNumber":1,"professorEmail":"prof@alef.test","students":[{"studentCode":"01L-0001","percentageGrade":80}]}`,
		`{"programCode":"01L","courseCode":"CCOU-08","bimesterName":"2021 Bimester I","groupNumber":1,"professorEmail":"nobody@alef.test","students":[{"studentCode":"01L-0001","percentageGrade":80}]}`,
		`{"programCode":"01L","courseCode":"CCOU-08","bimesterName":"2021 Bimester I","groupNumber":1,"professorEmail":"ana@alef.test","students":[{"studentCode":"01L-0001","percentageGrade":80}]}`,
		`{"programCode":"01L","courseCode":"ccou-08","bimesterName":"2021 Bimester I","groupNumber":3,"professorEmail":"prof@alef.test","students":[` +
			`{"studentCode":"01L-0001","percentageGrade":80},{"studentCode":"01l-0001","percentageGrade":60},` +
			`{"studentCode":"01L-9999","percentageGrade":70},{"studentCode":"P-001","percentageGrade":70}]}`,
	}, "\n")

	res, err := f.Services.Importer.Run(ctx, admin, source("refs.ndjson", src), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 6, res.ValidRecords)
	assert.Equal(t, 0, res.ClassesCreated)
	assert.Equal(t, 1, res.ClassesAlreadyExisted)
	assert.Equal(t, 1, res.EnrollmentsCreated)

	var data []importer.ErrorData
	for _, e := range res.Errors {
		data = append(data, e.Data)
	}
	assert.Equal(t, []importer.ErrorData{
		importer.UnknownProgramData{ProgramCode: "99X"},
		importer.UnknownCourseData{ProgramCode: "01L", CourseCode: "NOPE-01"},
		importer.UnknownBimesterData{BimesterName: "2030 Bimester I"},
		importer.UnknownProfessorData{ProfessorEmail: "nobody@alef.test"},
		importer.UnknownProfessorData{ProfessorEmail: "ana@alef.test", NotProfessor: true},
		importer.UnknownStudentData{StudentCode: "01L-9999"},
		importer.UnknownStudentData{StudentCode: "P-001", NotStudent: true},
	}, data)

	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0].Message, "another professor")
	assert.Equal(t, "01L-0001", res.Warnings[1].StudentCode)
	assert.Contains(t, res.Warnings[1].Message, "more than once")

	cls, err := f.Services.Classes.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, cat.Other.ID, cls.ProfessorID, "the professor of an existing class is kept")

	e, err := f.Services.Enrollments.Find(ctx, existing.ID, cat.Students[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, *e.PercentageGrade, "the first grade of a duplicated student wins")
}

func TestService_Run_Failures(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t)
	cat := f.Seed(t)
	admin := testutil.Principal(cat.Admin)

	tests := []struct {
		name    string
		actor   *core.Principal
		src     importer.Source
		wantErr error
	}{
		{name: "anonymous", actor: nil, src: source("grades.jsonl", gradesJSONL), wantErr: core.ErrUnauthenticated},
		{name: "professor", actor: testutil.Principal(cat.Professor), src: source("grades.jsonl", gradesJSONL), wantErr: core.ErrForbidden},
		{name: "unsupported", actor: admin, src: source("grades.csv", "a,b"), wantErr: importer.ErrUnsupportedFileType},
		{name: "empty", actor: admin, src: source("grades.jsonl", " \n\n "), wantErr: importer.ErrEmptyFile},
		{name: "empty array", actor: admin, src: source("grades.json", "[]"), wantErr: importer.ErrEmptyFile},
		{name: "too large", actor: admin, src: source("grades.jsonl", strings.Repeat(" ", 1<<20+1)), wantErr: importer.ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.Services.Importer.Run(ctx, tt.actor, tt.src, importer.Options{})
			assert.Nil(t, res)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}

	var phases []importer.Phase
	broken := gradesJSONL + `{"programCode":` + "\n"
	res, err := f.Services.Importer.Run(ctx, admin, source("grades.jsonl", broken), importer.Options{
		OnPhase: func(p importer.Phase) { phases = append(phases, p) },
	})
	assert.Nil(t, res)
	var pe *importer.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, []importer.Phase{importer.PhaseReading, importer.PhaseParsing, importer.PhaseIdle}, phases)

	classes, err := f.Services.Classes.Query(ctx, class.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, classes, "a file that does not parse imports nothing")
	assert.Empty(t, f.Mail.Sent())
}
