package enrollment

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core/grading"
)

// Enrollment is a student's membership and grade within a class.
// LetterGrade and GradePoints derive from PercentageGrade and are only ever set through SetGrade.
type Enrollment struct {
	ID              string    `json:"id"`
	ClassID         string    `json:"class_id"`
	StudentID       string    `json:"student_id"`
	PercentageGrade *float64  `json:"percentage_grade"`
	LetterGrade     string    `json:"letter_grade,omitempty"`
	GradePoints     *float64  `json:"grade_points"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// SetGrade sets the percentage grade and the fields derived from it through scale.
// A nil grade clears all three. On error e is left untouched.
func (e *Enrollment) SetGrade(scale grading.Scale, p *float64) error {
	if p == nil {
		e.PercentageGrade, e.LetterGrade, e.GradePoints = nil, "", nil
		return nil
	}
	g, err := scale.Convert(*p)
	if err != nil {
		return err
	}
	pct, points := g.Percentage, g.Points
	e.PercentageGrade, e.LetterGrade, e.GradePoints = &pct, g.Letter, &points
	return nil
}

// HasGrade reports whether the current percentage grade equals p.
func (e Enrollment) HasGrade(p *float64) bool {
	if e.PercentageGrade == nil || p == nil {
		return e.PercentageGrade == nil && p == nil
	}
	return *e.PercentageGrade == *p
}

// Outcome tells what an upsert did.
type Outcome string

const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
)

// NewEnrollment contains information needed to enroll a student in a class.
type NewEnrollment struct {
	ClassID         string   `json:"class_id" validate:"required"`
	StudentID       string   `json:"student_id" validate:"required"`
	PercentageGrade *float64 `json:"percentage_grade" validate:"omitempty,min=0,max=100"`
}

func (ne *NewEnrollment) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ne.ClassID, ne.StudentID = strings.TrimSpace(ne.ClassID), strings.TrimSpace(ne.StudentID)
	if err := validate.StructCtx(ctx, ne); err != nil {
		return err
	}
	return svc.checkReferences(ctx, ne.ClassID, ne.StudentID)
}

// GradeInput sets or, when null, clears the grade of an enrollment.
type GradeInput struct {
	PercentageGrade *float64 `json:"percentage_grade" validate:"omitempty,min=0,max=100"`
}

func (gi *GradeInput) Validate(ctx context.Context, validate *validator.Validate) error {
	return validate.StructCtx(ctx, gi)
}

type QueryFilter struct {
	ClassID   string `query:"class_id"`
	StudentID string `query:"student_id"`
}

// GetFilter selects a single Enrollment: by ID, or by class and student.
type GetFilter struct {
	ID        string
	ClassID   string
	StudentID string
}

var OrderingFields = []string{"percentage_grade", "created_at"}
