package enrollment

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/grading"
)

const placeholder = "—"

// Roster holds the already resolved and localized rows of a class, ready for export.
type Roster struct {
	Class         class.View         `json:"class"`
	Locale        bilingual.Language `json:"locale"`
	CourseCode    string             `json:"course_code"`
	CourseName    string             `json:"course_name"`
	Credits       int                `json:"credits"`
	BimesterName  string             `json:"bimester_name"`
	ProfessorName string             `json:"professor_name"`
	Rows          []RosterRow        `json:"rows"`
}

type RosterRow struct {
	StudentCode     string   `json:"student_code"`
	StudentName     string   `json:"student_name"`
	PercentageGrade *float64 `json:"percentage_grade"`
	LetterGrade     string   `json:"letter_grade"`
	GradePoints     *float64 `json:"grade_points"`
	QualityPoints   *float64 `json:"quality_points"`
}

// Transcript lists the graded enrollments of a student with the cumulative GPA.
type Transcript struct {
	StudentID          string             `json:"student_id"`
	StudentCode        string             `json:"student_code"`
	StudentName        string             `json:"student_name"`
	Locale             bilingual.Language `json:"locale"`
	Rows               []TranscriptRow    `json:"rows"`
	TotalCredits       int                `json:"total_credits"`
	TotalQualityPoints float64            `json:"total_quality_points"`
	GPA                float64            `json:"gpa"`
}

type TranscriptRow struct {
	ClassID         string          `json:"class_id"`
	CourseCode      string          `json:"course_code"`
	CourseName      string          `json:"course_name"`
	BimesterName    string          `json:"bimester_name"`
	Status          bimester.Status `json:"status"`
	Credits         int             `json:"credits"`
	PercentageGrade float64         `json:"percentage_grade"`
	LetterGrade     string          `json:"letter_grade"`
	GradePoints     float64         `json:"grade_points"`
	QualityPoints   float64         `json:"quality_points"`
}

// Roster builds the roster of a class for locale, sorted by student code.
func (svc *Service) Roster(ctx context.Context, classID string, locale bilingual.Language) (Roster, error) {
	c, err := svc.classes.Get(ctx, classID)
	if err != nil {
		return Roster{}, err
	}
	view, err := svc.classes.View(ctx, c)
	if err != nil {
		return Roster{}, err
	}
	r := Roster{Class: view, Locale: locale, CourseName: placeholder, BimesterName: placeholder, ProfessorName: placeholder}

	crs, err := svc.courses.Get(ctx, c.CourseID)
	switch {
	case err == nil:
		r.CourseCode, r.Credits = crs.Code, crs.Credits
		r.CourseName = bilingual.Resolve(crs, "name", locale, placeholder)
	case !core.IsNotFound(err):
		return Roster{}, errors.Wrap(err, "getting course")
	}
	if b, err := svc.bimesters.Get(ctx, c.BimesterID); err == nil {
		r.BimesterName = b.Name
	} else if !core.IsNotFound(err) {
		return Roster{}, errors.Wrap(err, "getting bimester")
	}
	if prof, err := svc.users.GetByID(ctx, c.ProfessorID); err == nil {
		r.ProfessorName = prof.Name
	} else if !core.IsNotFound(err) {
		return Roster{}, errors.Wrap(err, "getting professor")
	}

	enrollments, err := svc.repo.QueryEnrollments(ctx, QueryFilter{ClassID: classID})
	if err != nil {
		return Roster{}, errors.Wrap(err, "querying enrollments")
	}
	r.Rows = make([]RosterRow, 0, len(enrollments))
	for _, e := range enrollments {
		row := RosterRow{
			StudentCode:     placeholder,
			StudentName:     placeholder,
			PercentageGrade: e.PercentageGrade,
			LetterGrade:     e.LetterGrade,
			GradePoints:     e.GradePoints,
		}
		if e.GradePoints != nil && r.Credits > 0 {
			qp := grading.QualityPoints(*e.GradePoints, r.Credits)
			row.QualityPoints = &qp
		}
		if student, err := svc.users.GetByID(ctx, e.StudentID); err == nil {
			row.StudentCode, row.StudentName = student.Code, student.Name
		} else if !core.IsNotFound(err) {
			return Roster{}, errors.Wrap(err, "getting student")
		}
		r.Rows = append(r.Rows, row)
	}
	sort.SliceStable(r.Rows, func(i, j int) bool { return r.Rows[i].StudentCode < r.Rows[j].StudentCode })
	return r, nil
}

// Transcript builds the transcript of a student for locale.
// Ungraded enrollments are left out, as are the classes whose course is gone.
func (svc *Service) Transcript(ctx context.Context, studentID string, locale bilingual.Language) (Transcript, error) {
	student, err := svc.users.GetByID(ctx, studentID)
	if err != nil {
		return Transcript{}, err
	}
	enrollments, err := svc.repo.QueryEnrollments(ctx, QueryFilter{StudentID: studentID})
	if err != nil {
		return Transcript{}, errors.Wrap(err, "querying enrollments")
	}

	t := Transcript{StudentID: student.ID, StudentCode: student.Code, StudentName: student.Name, Locale: locale}
	courses := make(map[string]course.Course)
	for _, e := range enrollments {
		if e.PercentageGrade == nil || e.GradePoints == nil {
			continue
		}
		c, err := svc.classes.Get(ctx, e.ClassID)
		if err != nil {
			return Transcript{}, errors.Wrap(err, "getting class")
		}
		crs, ok := courses[c.CourseID]
		if !ok {
			crs, err = svc.courses.Get(ctx, c.CourseID)
			if core.IsNotFound(err) {
				continue
			}
			if err != nil {
				return Transcript{}, errors.Wrap(err, "getting course")
			}
			courses[c.CourseID] = crs
		}

		row := TranscriptRow{
			ClassID:         c.ID,
			CourseCode:      crs.Code,
			CourseName:      bilingual.Resolve(crs, "name", locale, placeholder),
			BimesterName:    placeholder,
			Credits:         crs.Credits,
			PercentageGrade: *e.PercentageGrade,
			LetterGrade:     e.LetterGrade,
			GradePoints:     *e.GradePoints,
			QualityPoints:   grading.QualityPoints(*e.GradePoints, crs.Credits),
		}
		b, err := svc.bimesters.Get(ctx, c.BimesterID)
		switch {
		case err == nil:
			row.BimesterName = b.Name
			row.Status = bimester.ResolveStatus(svc.clock.Now(), &b)
		case core.IsNotFound(err):
			row.Status = bimester.ResolveStatus(svc.clock.Now(), nil)
		default:
			return Transcript{}, errors.Wrap(err, "getting bimester")
		}

		t.Rows = append(t.Rows, row)
		t.TotalCredits += row.Credits
		t.TotalQualityPoints += row.QualityPoints
	}
	t.TotalQualityPoints = grading.Round(t.TotalQualityPoints)
	t.GPA = grading.GPA(t.TotalQualityPoints, t.TotalCredits)
	return t, nil
}
