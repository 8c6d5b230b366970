package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("course not found")
	ErrCodeExists = errors.New("a course with this code already exists in the program")
	ErrInUse      = core.NewConflictError("course still has classes")
)

type (
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists when a course of programID other than excludeID holds code.
		CheckCodeUniqueness(ctx context.Context, programID, code, excludeID string) error
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search is already folded and matched against Course.SearchKey.
		QueryCourses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// CourseInUse reports whether classes reference the course.
		CourseInUse(ctx context.Context, id string) (bool, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		programs *program.Service
		clock    core.Clock
	}
)

func NewService(repo Repository, programs *program.Service, clock core.Clock) *Service {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Service{repo: repo, programs: programs, clock: clock}
}

func (svc *Service) checkProgram(ctx context.Context, programID string) error {
	if _, err := svc.programs.Get(ctx, programID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "program_id", Error: err.Error()})
		}
		return errors.Wrap(err, "getting program")
	}
	return nil
}

func (svc *Service) checkCodeUniqueness(ctx context.Context, programID, code, excludeID string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, programID, code, excludeID); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

// CodeExists backs the real-time duplicate check of course forms.
func (svc *Service) CodeExists(ctx context.Context, programID, code, excludeID string) (bool, error) {
	code = NormalizeCode(code)
	if programID == "" || code == "" {
		return false, nil
	}
	err := svc.repo.CheckCodeUniqueness(ctx, programID, code, excludeID)
	switch errors.Cause(err) {
	case nil:
		return false, nil
	case ErrCodeExists:
		return true, nil
	default:
		return false, err
	}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := svc.clock.Now()
	c := Course{
		ProgramID:     nc.ProgramID,
		Code:          nc.Code,
		Language:      nc.Language,
		NameEs:        nc.NameEs,
		NameEn:        nc.NameEn,
		DescriptionEs: nc.DescriptionEs,
		DescriptionEn: nc.DescriptionEn,
		Credits:       nc.Credits,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c.setSearchKey()
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	filter.Clean()
	return svc.repo.QueryCourses(ctx, filter, core.CleanOrdering(ordering, OrderingFields...)...)
}

// QueryViews is Query with every course resolved for locale.
func (svc *Service) QueryViews(ctx context.Context, locale bilingual.Language, filter QueryFilter, ordering ...core.DBOrdering) ([]View, error) {
	courses, err := svc.Query(ctx, filter, ordering...)
	if err != nil {
		return nil, err
	}
	views := make([]View, len(courses))
	for i, c := range courses {
		views[i] = NewView(c, locale)
	}
	return views, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByCode(ctx context.Context, programID, code string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ProgramID: programID, Code: NormalizeCode(code)})
}

func (svc *Service) Update(ctx context.Context, orig Course, uc UpdateCourse) (Course, error) {
	c := uc.apply(orig)
	c.UpdatedAt = svc.clock.Now()
	c.setSearchKey()
	return svc.repo.UpdateCourse(ctx, c)
}

// Delete removes the course unless classes still reference it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	inUse, err := svc.repo.CourseInUse(ctx, id)
	if err != nil {
		return errors.Wrap(err, "checking course references")
	}
	if inUse {
		return ErrInUse
	}
	return svc.repo.DeleteCourse(ctx, id)
}
