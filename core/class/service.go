package class

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("class not found")
	ErrExists       = errors.New("this group already exists for the course in the bimester")
	ErrInUse        = core.NewConflictError("class still has enrollments")
	ErrNotProfessor = errors.New("user is not a professor")
)

type (
	Repository interface {
		// CreateClass returns ErrExists when a class with the same Key exists.
		CreateClass(ctx context.Context, c Class) (Class, error)
		// QueryClasses applies AND operation on the ID fields of QueryFilter. Statuses are filtered by the Service.
		QueryClasses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Class, error)
		GetClass(ctx context.Context, filter GetFilter) (Class, error)
		// UpdateClass returns ErrExists when the update collides with another class Key.
		UpdateClass(ctx context.Context, c Class) (Class, error)
		// ClassInUse reports whether enrollments reference the class.
		ClassInUse(ctx context.Context, id string) (bool, error)
		DeleteClass(ctx context.Context, id string) error
	}

	Service struct {
		repo      Repository
		courses   *course.Service
		bimesters *bimester.Service
		users     *user.Service
		clock     core.Clock
	}
)

func NewService(
	repo Repository,
	courses *course.Service,
	bimesters *bimester.Service,
	users *user.Service,
	clock core.Clock,
) *Service {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Service{repo: repo, courses: courses, bimesters: bimesters, users: users, clock: clock}
}

func fieldError(field string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

func (svc *Service) checkReferences(ctx context.Context, courseID, bimesterID, professorID string) error {
	if _, err := svc.courses.Get(ctx, courseID); err != nil {
		if core.IsNotFound(err) {
			return fieldError("course_id", err)
		}
		return errors.Wrap(err, "getting course")
	}
	if _, err := svc.bimesters.Get(ctx, bimesterID); err != nil {
		if core.IsNotFound(err) {
			return fieldError("bimester_id", err)
		}
		return errors.Wrap(err, "getting bimester")
	}
	return svc.checkProfessor(ctx, professorID)
}

func (svc *Service) checkProfessor(ctx context.Context, professorID string) error {
	prof, err := svc.users.GetByID(ctx, professorID)
	if err != nil {
		if core.IsNotFound(err) {
			return fieldError("professor_id", err)
		}
		return errors.Wrap(err, "getting professor")
	}
	if !prof.IsProfessor() {
		return fieldError("professor_id", ErrNotProfessor)
	}
	return nil
}

func (svc *Service) checkKeyUniqueness(ctx context.Context, key Key, excludeID string) error {
	c, err := svc.repo.GetClass(ctx, GetFilter{Key: key})
	switch {
	case err == nil && c.ID != excludeID:
		return fieldError("group_number", ErrExists)
	case err == nil, core.IsNotFound(err):
		return nil
	default:
		return err
	}
}

// Status returns the status of c now. A dangling bimester yields bimester.StatusOpen.
func (svc *Service) Status(ctx context.Context, c Class) (bimester.Status, error) {
	b, err := svc.bimesters.Get(ctx, c.BimesterID)
	if err != nil {
		if core.IsNotFound(err) {
			return bimester.ResolveStatus(svc.clock.Now(), nil), nil
		}
		return "", errors.Wrap(err, "getting bimester")
	}
	return bimester.ResolveStatus(svc.clock.Now(), &b), nil
}

func (svc *Service) View(ctx context.Context, c Class) (View, error) {
	st, err := svc.Status(ctx, c)
	if err != nil {
		return View{}, err
	}
	return View{Class: c, Status: st}, nil
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (View, error) {
	now := svc.clock.Now()
	c, err := svc.repo.CreateClass(ctx, Class{
		CourseID:    nc.CourseID,
		BimesterID:  nc.BimesterID,
		ProfessorID: nc.ProfessorID,
		GroupNumber: nc.GroupNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Cause(err) == ErrExists {
			return View{}, fieldError("group_number", err)
		}
		return View{}, err
	}
	return svc.View(ctx, c)
}

// FindOrCreate returns the class identified by key, creating it for professorID when missing.
// created tells which happened.
func (svc *Service) FindOrCreate(ctx context.Context, key Key, professorID string) (c Class, created bool, err error) {
	c, err = svc.repo.GetClass(ctx, GetFilter{Key: key})
	if err == nil {
		return c, false, nil
	}
	if !core.IsNotFound(err) {
		return Class{}, false, errors.Wrap(err, "getting class by key")
	}

	now := svc.clock.Now()
	c, err = svc.repo.CreateClass(ctx, Class{
		CourseID:    key.CourseID,
		BimesterID:  key.BimesterID,
		ProfessorID: professorID,
		GroupNumber: key.GroupNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if errors.Cause(err) == ErrExists {
		// created concurrently since the lookup
		c, err = svc.repo.GetClass(ctx, GetFilter{Key: key})
		return c, false, errors.Wrap(err, "getting class by key")
	}
	if err != nil {
		return Class{}, false, errors.Wrap(err, "creating class")
	}
	return c, true, nil
}

// Find returns the class identified by key.
func (svc *Service) Find(ctx context.Context, key Key) (Class, error) {
	return svc.repo.GetClass(ctx, GetFilter{Key: key})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]View, error) {
	classes, err := svc.repo.QueryClasses(ctx, filter, core.CleanOrdering(ordering, OrderingFields...)...)
	if err != nil {
		return nil, err
	}

	wanted := make(map[bimester.Status]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		wanted[st] = true
	}
	statuses := make(map[string]bimester.Status) // by bimester ID
	views := make([]View, 0, len(classes))
	for _, c := range classes {
		st, ok := statuses[c.BimesterID]
		if !ok {
			if st, err = svc.Status(ctx, c); err != nil {
				return nil, err
			}
			statuses[c.BimesterID] = st
		}
		if len(wanted) > 0 && !wanted[st] {
			continue
		}
		views = append(views, View{Class: c, Status: st})
	}
	return views, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, GetFilter{ID: id})
}

func (svc *Service) Update(ctx context.Context, orig Class, uc UpdateClass) (View, error) {
	c := uc.apply(orig)
	c.UpdatedAt = svc.clock.Now()
	c, err := svc.repo.UpdateClass(ctx, c)
	if err != nil {
		if errors.Cause(err) == ErrExists {
			return View{}, fieldError("group_number", err)
		}
		return View{}, err
	}
	return svc.View(ctx, c)
}

// Delete removes the class unless enrollments still reference it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	inUse, err := svc.repo.ClassInUse(ctx, id)
	if err != nil {
		return errors.Wrap(err, "checking class references")
	}
	if inUse {
		return ErrInUse
	}
	return svc.repo.DeleteClass(ctx, id)
}
