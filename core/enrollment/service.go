package enrollment

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/grading"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("enrollment not found")
	ErrExists        = errors.New("the student is already enrolled in this class")
	ErrNotStudent    = errors.New("user is not a student")
	ErrNotOwnClass   = errors.Wrap(core.ErrForbidden, "professors may only grade their own classes")
	ErrGradingClosed = errors.Wrap(core.ErrForbidden, "grades can only be set while the class is active or grading")
)

type (
	Repository interface {
		// CreateEnrollment returns ErrExists when the student is already enrolled in the class.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		// QueryEnrollments applies AND operation on available QueryFilter fields.
		QueryEnrollments(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Enrollment, error)
		GetEnrollment(ctx context.Context, filter GetFilter) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id string) error
	}

	Service struct {
		repo      Repository
		classes   *class.Service
		courses   *course.Service
		bimesters *bimester.Service
		users     *user.Service
		scale     grading.Scale
		clock     core.Clock
	}
)

func NewService(
	repo Repository,
	classes *class.Service,
	courses *course.Service,
	bimesters *bimester.Service,
	users *user.Service,
	scale grading.Scale,
	clock core.Clock,
) *Service {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Service{
		repo:      repo,
		classes:   classes,
		courses:   courses,
		bimesters: bimesters,
		users:     users,
		scale:     scale,
		clock:     clock,
	}
}

// Scale returns the grade scale enrollments are graded with.
func (svc *Service) Scale() grading.Scale {
	return svc.scale
}

func fieldError(field string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

func (svc *Service) checkReferences(ctx context.Context, classID, studentID string) error {
	if _, err := svc.classes.Get(ctx, classID); err != nil {
		if core.IsNotFound(err) {
			return fieldError("class_id", err)
		}
		return errors.Wrap(err, "getting class")
	}
	student, err := svc.users.GetByID(ctx, studentID)
	if err != nil {
		if core.IsNotFound(err) {
			return fieldError("student_id", err)
		}
		return errors.Wrap(err, "getting student")
	}
	if !student.IsStudent() {
		return fieldError("student_id", ErrNotStudent)
	}
	return nil
}

// gradeError maps a grading.RangeError to a validation error on percentage_grade.
func gradeError(err error) error {
	if grading.IsRangeError(err) {
		return fieldError("percentage_grade", err)
	}
	return err
}

// Enroll adds a student to a class, with an optional initial grade.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	now := svc.clock.Now()
	e := Enrollment{ClassID: ne.ClassID, StudentID: ne.StudentID, CreatedAt: now, UpdatedAt: now}
	if err := e.SetGrade(svc.scale, ne.PercentageGrade); err != nil {
		return Enrollment{}, gradeError(err)
	}
	e, err := svc.repo.CreateEnrollment(ctx, e)
	if errors.Cause(err) == ErrExists {
		return Enrollment{}, fieldError("student_id", err)
	}
	return e, err
}

// Upsert enrolls the student with grade, or sets the grade of the existing enrollment.
// An existing enrollment already holding grade is left untouched and reported Unchanged.
func (svc *Service) Upsert(ctx context.Context, classID, studentID string, grade *float64) (Enrollment, Outcome, error) {
	e, err := svc.repo.GetEnrollment(ctx, GetFilter{ClassID: classID, StudentID: studentID})
	switch {
	case core.IsNotFound(err):
		now := svc.clock.Now()
		e = Enrollment{ClassID: classID, StudentID: studentID, CreatedAt: now, UpdatedAt: now}
		if err = e.SetGrade(svc.scale, grade); err != nil {
			return Enrollment{}, "", gradeError(err)
		}
		e, err = svc.repo.CreateEnrollment(ctx, e)
		if err != nil {
			return Enrollment{}, "", errors.Wrap(err, "creating enrollment")
		}
		return e, Created, nil
	case err != nil:
		return Enrollment{}, "", errors.Wrap(err, "getting enrollment")
	}

	if e.HasGrade(grade) {
		return e, Unchanged, nil
	}
	if err = e.SetGrade(svc.scale, grade); err != nil {
		return Enrollment{}, "", gradeError(err)
	}
	e.UpdatedAt = svc.clock.Now()
	e, err = svc.repo.UpdateEnrollment(ctx, e)
	if err != nil {
		return Enrollment{}, "", errors.Wrap(err, "updating enrollment")
	}
	return e, Updated, nil
}

// CanGrade fails unless actor may set grades in c.
// Admins may at any time, professors only in their own classes while active or grading.
func (svc *Service) CanGrade(ctx context.Context, actor *core.Principal, c class.Class) error {
	if err := actor.Require(user.RoleProfessor, user.RoleAdmin, user.RoleSuperAdmin); err != nil {
		return err
	}
	if actor.HasRole(user.AdminRoles...) {
		return nil
	}
	if c.ProfessorID != actor.UserID {
		return ErrNotOwnClass
	}
	st, err := svc.classes.Status(ctx, c)
	if err != nil {
		return err
	}
	if st != bimester.StatusActive && st != bimester.StatusGrading {
		return ErrGradingClosed
	}
	return nil
}

// SetGrade sets, or clears when grade is nil, the grade of an enrollment on behalf of actor.
func (svc *Service) SetGrade(ctx context.Context, actor *core.Principal, id string, grade *float64) (Enrollment, error) {
	e, err := svc.Get(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	c, err := svc.classes.Get(ctx, e.ClassID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting class")
	}
	if err = svc.CanGrade(ctx, actor, c); err != nil {
		return Enrollment{}, err
	}
	if e.HasGrade(grade) {
		return e, nil
	}
	if err = e.SetGrade(svc.scale, grade); err != nil {
		return Enrollment{}, gradeError(err)
	}
	e.UpdatedAt = svc.clock.Now()
	return svc.repo.UpdateEnrollment(ctx, e)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter, core.CleanOrdering(ordering, OrderingFields...)...)
}

func (svc *Service) Get(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, GetFilter{ID: id})
}

// Find returns the enrollment of studentID in classID.
func (svc *Service) Find(ctx context.Context, classID, studentID string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, GetFilter{ClassID: classID, StudentID: studentID})
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEnrollment(ctx, id)
}
