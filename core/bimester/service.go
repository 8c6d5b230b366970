package bimester

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("bimester not found")
	ErrNameExists = errors.New("a bimester with this name already exists")
	ErrInUse      = core.NewConflictError("bimester is referenced by classes")
)

type (
	Repository interface {
		// CheckNameUniqueness returns ErrNameExists when a bimester other than excludeID is named name.
		CheckNameUniqueness(ctx context.Context, name, excludeID string) error
		CreateBimester(ctx context.Context, b Bimester) (Bimester, error)
		// QueryBimesters applies QueryFilter.Search on the name. Statuses are filtered by the Service.
		QueryBimesters(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Bimester, error)
		GetBimester(ctx context.Context, filter GetFilter) (Bimester, error)
		UpdateBimester(ctx context.Context, b Bimester) (Bimester, error)
		// BimesterInUse reports whether classes reference the bimester.
		BimesterInUse(ctx context.Context, id string) (bool, error)
		DeleteBimester(ctx context.Context, id string) error
	}

	Service struct {
		repo  Repository
		clock core.Clock
	}
)

func NewService(repo Repository, clock core.Clock) *Service {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Service{repo: repo, clock: clock}
}

func (svc *Service) checkNameUniqueness(ctx context.Context, name, excludeID string) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, excludeID); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

// View wraps b with its current status.
func (svc *Service) View(b Bimester) View {
	return View{Bimester: b, Status: ResolveStatus(svc.clock.Now(), &b)}
}

func (svc *Service) Create(ctx context.Context, nb NewBimester) (View, error) {
	now := svc.clock.Now()
	b, err := svc.repo.CreateBimester(ctx, Bimester{
		Name:          nb.Name,
		StartDate:     nb.StartDate,
		EndDate:       nb.EndDate,
		GradeDeadline: nb.GradeDeadline,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return View{}, err
	}
	return svc.View(b), nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]View, error) {
	filter.Clean()
	bimesters, err := svc.repo.QueryBimesters(ctx, filter, core.CleanOrdering(ordering, OrderingFields...)...)
	if err != nil {
		return nil, err
	}

	wanted := make(map[Status]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		wanted[st] = true
	}
	views := make([]View, 0, len(bimesters))
	for _, b := range bimesters {
		v := svc.View(b)
		if len(wanted) > 0 && !wanted[v.Status] {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Bimester, error) {
	return svc.repo.GetBimester(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByName(ctx context.Context, name string) (Bimester, error) {
	return svc.repo.GetBimester(ctx, GetFilter{Name: core.CleanString(name)})
}

func (svc *Service) Update(ctx context.Context, orig Bimester, ub UpdateBimester) (View, error) {
	b := ub.apply(orig)
	b.UpdatedAt = svc.clock.Now()
	b, err := svc.repo.UpdateBimester(ctx, b)
	if err != nil {
		return View{}, err
	}
	return svc.View(b), nil
}

// Delete removes the bimester unless classes still reference it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	inUse, err := svc.repo.BimesterInUse(ctx, id)
	if err != nil {
		return errors.Wrap(err, "checking bimester references")
	}
	if inUse {
		return ErrInUse
	}
	return svc.repo.DeleteBimester(ctx, id)
}
