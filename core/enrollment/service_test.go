package enrollment_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
	"github.com/cpmappstudio/alef-university-sub001/core/grading"
	testutil "github.com/cpmappstudio/alef-university-sub001/tests"
)

func pct(f float64) *float64 { return &f }

func TestEnrollment_SetGrade(t *testing.T) {
	scale := grading.DefaultScale()
	var e enrollment.Enrollment

	require.NoError(t, e.SetGrade(scale, pct(91)))
	assert.Equal(t, 91.0, *e.PercentageGrade)
	assert.Equal(t, "A-", e.LetterGrade)
	assert.Equal(t, 3.7, *e.GradePoints)
	assert.True(t, e.HasGrade(pct(91)))

	err := e.SetGrade(scale, pct(150))
	require.Error(t, err)
	assert.True(t, grading.IsRangeError(err))
	assert.Equal(t, "A-", e.LetterGrade, "a rejected grade leaves the enrollment untouched")

	require.NoError(t, e.SetGrade(scale, nil))
	assert.Nil(t, e.PercentageGrade)
	assert.Empty(t, e.LetterGrade)
	assert.Nil(t, e.GradePoints)
	assert.True(t, e.HasGrade(nil))
	assert.False(t, e.HasGrade(pct(0)))
}

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t)
	cat := f.Seed(t)
	svc := f.Services.Enrollments
	cls := f.CreateClass(t, cat.Course.ID, cat.Bimester.ID, cat.Professor.ID, "1")

	tests := []struct {
		name       string
		ne         enrollment.NewEnrollment
		wantFields []string
	}{
		{name: "valid", ne: enrollment.NewEnrollment{ClassID: cls.ID, StudentID: cat.Students[0].ID, PercentageGrade: pct(80)}},
		{name: "unknown class", ne: enrollment.NewEnrollment{ClassID: "nope", StudentID: cat.Students[0].ID}, wantFields: []string{"class_id"}},
		{name: "professor as student", ne: enrollment.NewEnrollment{ClassID: cls.ID, StudentID: cat.Professor.ID}, wantFields: []string{"student_id"}},
		{name: "grade out of range", ne: enrollment.NewEnrollment{ClassID: cls.ID, StudentID: cat.Students[0].ID, PercentageGrade: pct(101)}, wantFields: []string{"percentage_grade"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ne.Validate(ctx, f.Validate, svc)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ElementsMatch(t, tt.wantFields, testutil.FieldNames(err))
		})
	}

	e, err := svc.Enroll(ctx, enrollment.NewEnrollment{ClassID: cls.ID, StudentID: cat.Students[0].ID, PercentageGrade: pct(80)})
	require.NoError(t, err)
	assert.Equal(t, "B-", e.LetterGrade)

	_, err = svc.Enroll(ctx, enrollment.NewEnrollment{ClassID: cls.ID, StudentID: cat.Students[0].ID})
	assert.ElementsMatch(t, []string{"student_id"}, testutil.FieldNames(err))
}

func TestService_Upsert(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t)
	cat := f.Seed(t)
	svc := f.Services.Enrollments
	cls := f.CreateClass(t, cat.Course.ID, cat.Bimester.ID, cat.Professor.ID, "1")
	student := cat.Students[0].ID

	tests := []struct {
		name        string
		grade       *float64
		wantOutcome enrollment.Outcome
		wantLetter  string
	}{
		{name: "first import creates", grade: pct(85), wantOutcome: enrollment.Created, wantLetter: "B"},
		{name: "same grade is unchanged", grade: pct(85), wantOutcome: enrollment.Unchanged, wantLetter: "B"},
		{name: "new grade updates", grade: pct(97), wantOutcome: enrollment.Updated, wantLetter: "A+"},
		{name: "null clears", grade: nil, wantOutcome: enrollment.Updated, wantLetter: ""},
		{name: "null again is unchanged", grade: nil, wantOutcome: enrollment.Unchanged, wantLetter: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, outcome, err := svc.Upsert(ctx, cls.ID, student, tt.grade)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, outcome)
			assert.Equal(t, tt.wantLetter, e.LetterGrade)
		})
	}

	_, _, err := svc.Upsert(ctx, cls.ID, cat.Students[1].ID, pct(-1))
	assert.ElementsMatch(t, []string{"percentage_grade"}, testutil.FieldNames(err))
	_, err = svc.Find(ctx, cls.ID, cat.Students[1].ID)
	assert.True(t, core.IsNotFound(err), "nothing is stored for a rejected grade")

	all, err := svc.Query(ctx, enrollment.QueryFilter{ClassID: cls.ID})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_SetGrade(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t)
	cat := f.Seed(t)
	svc := f.Services.Enrollments

	cls := f.CreateClass(t, cat.Course.ID, cat.Bimester.ID, cat.Professor.ID, "1")
	e, _, err := svc.Upsert(ctx, cls.ID, cat.Students[0].ID, nil)
	require.NoError(t, err)

	start, end, deadline := cat.Bimester.StartDate, cat.Bimester.EndDate, cat.Bimester.GradeDeadline
	tests := []struct {
		name    string
		actor   *core.Principal
		now     time.Time
		wantErr error
	}{
		{name: "anonymous", actor: nil, now: start, wantErr: core.ErrUnauthenticated},
		{name: "student", actor: testutil.Principal(cat.Students[0]), now: start, wantErr: core.ErrForbidden},
		{name: "other professor", actor: testutil.Principal(cat.Other), now: start, wantErr: core.ErrForbidden},
		{name: "own class before start", actor: testutil.Principal(cat.Professor), now: start.Add(-time.Second), wantErr: core.ErrForbidden},
		{name: "own class at start", actor: testutil.Principal(cat.Professor), now: start},
		{name: "own class while grading", actor: testutil.Principal(cat.Professor), now: end},
		{name: "own class at deadline", actor: testutil.Principal(cat.Professor), now: deadline, wantErr: core.ErrForbidden},
		{name: "admin after deadline", actor: testutil.Principal(cat.Admin), now: deadline.AddDate(1, 0, 0)},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.Clock.Set(tt.now)
			grade := pct(float64(70 + i))
			got, err := svc.SetGrade(ctx, tt.actor, e.ID, grade)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, *grade, *got.PercentageGrade)
			assert.Equal(t, tt.now, got.UpdatedAt)
		})
	}

	f.Clock.Set(start)
	_, err = svc.SetGrade(ctx, testutil.Principal(cat.Admin), e.ID, pct(100.5))
	assert.ElementsMatch(t, []string{"percentage_grade"}, testutil.FieldNames(err))

	_, err = svc.SetGrade(ctx, testutil.Principal(cat.Admin), "nope", pct(50))
	assert.True(t, core.IsNotFound(err))
}

func TestService_Transcript(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t)
	cat := f.Seed(t)
	svc := f.Services.Enrollments
	student := cat.Students[0]

	music := f.CreateCourse(t, cat.Program.ID, "MUS-01", 2, "Música", "")
	ethics := f.CreateCourse(t, cat.Program.ID, "ETH-01", 4, "", "Ethics")

	c1 := f.CreateClass(t, cat.Course.ID, cat.Past.ID, cat.Professor.ID, "1")
	c2 := f.CreateClass(t, music.ID, cat.Bimester.ID, cat.Professor.ID, "1")
	c3 := f.CreateClass(t, ethics.ID, cat.Bimester.ID, cat.Professor.ID, "1")
	for _, g := range []struct {
		classID string
		grade   *float64
	}{
		{c1.ID, pct(95)}, // A, 4.0 × 3
		{c2.ID, pct(85)}, // B, 3.0 × 2
		{c3.ID, nil},     // ungraded, left out
	} {
		_, _, err := svc.Upsert(ctx, g.classID, student.ID, g.grade)
		require.NoError(t, err)
	}

	tr, err := svc.Transcript(ctx, student.ID, bilingual.English)
	require.NoError(t, err)
	assert.Equal(t, student.Code, tr.StudentCode)
	require.Len(t, tr.Rows, 2)
	assert.Equal(t, 5, tr.TotalCredits)
	assert.Equal(t, 18.0, tr.TotalQualityPoints)
	assert.Equal(t, 3.6, tr.GPA)

	byCode := map[string]enrollment.TranscriptRow{}
	for _, row := range tr.Rows {
		byCode[row.CourseCode] = row
	}
	assert.Equal(t, "EN: Counseling / ES: Consejería", byCode["CCOU-08"].CourseName)
	assert.Equal(t, bimester.StatusCompleted, byCode["CCOU-08"].Status)
	assert.Equal(t, "Música", byCode["MUS-01"].CourseName, "a single language course shows its own value")
	assert.Equal(t, bimester.StatusActive, byCode["MUS-01"].Status)
	assert.Equal(t, 6.0, byCode["MUS-01"].QualityPoints)

	empty, err := svc.Transcript(ctx, cat.Students[1].ID, bilingual.Spanish)
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
	assert.Zero(t, empty.GPA)

	_, err = svc.Transcript(ctx, "nope", bilingual.Spanish)
	assert.True(t, core.IsNotFound(err))
}

func TestService_Roster(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t)
	cat := f.Seed(t)
	svc := f.Services.Enrollments
	cls := f.CreateClass(t, cat.Course.ID, cat.Bimester.ID, cat.Professor.ID, "1")

	// enrolled out of code order
	for _, g := range []struct {
		idx   int
		grade *float64
	}{{2, pct(59)}, {0, pct(95)}, {1, nil}} {
		_, _, err := svc.Upsert(ctx, cls.ID, cat.Students[g.idx].ID, g.grade)
		require.NoError(t, err)
	}

	r, err := svc.Roster(ctx, cls.ID, bilingual.Spanish)
	require.NoError(t, err)
	assert.Equal(t, "CCOU-08", r.CourseCode)
	assert.Equal(t, "ES: Consejería / EN: Counseling", r.CourseName)
	assert.Equal(t, cat.Bimester.Name, r.BimesterName)
	assert.Equal(t, cat.Professor.Name, r.ProfessorName)
	assert.Equal(t, bimester.StatusActive, r.Class.Status)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, []string{"01L-0001", "01L-0002", "01L-0003"}, []string{r.Rows[0].StudentCode, r.Rows[1].StudentCode, r.Rows[2].StudentCode})
	assert.Equal(t, 12.0, *r.Rows[0].QualityPoints)
	assert.Nil(t, r.Rows[1].PercentageGrade)
	assert.Nil(t, r.Rows[1].QualityPoints)
	assert.Equal(t, "F", r.Rows[2].LetterGrade)

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, enrollment.WriteRosterXLSX(&buf, r))

		wb, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer func() { _ = wb.Close() }()
		rows, err := wb.GetRows("Roster")
		require.NoError(t, err)
		require.Len(t, rows, 8)
		assert.Equal(t, []string{"CCOU-08", "ES: Consejería / EN: Counseling"}, rows[0])
		assert.Equal(t, "Código", rows[4][0])
		assert.Equal(t, []string{"01L-0001", "Ana", "95", "A"}, rows[5][:4])
		assert.Equal(t, "01L-0002", rows[6][0])
	})

	t.Run("missing references use placeholders", func(t *testing.T) {
		require.NoError(t, f.Repos.Users.DeleteUser(ctx, cat.Professor.ID))
		r, err := svc.Roster(ctx, cls.ID, bilingual.English)
		require.NoError(t, err)
		assert.Equal(t, "—", r.ProfessorName)
	})
}
