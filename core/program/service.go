package program

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("program not found")
	ErrCodeExists = errors.New("a program with this code already exists")
	ErrInUse      = core.NewConflictError("program still has courses")
)

type (
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists when a program other than excludeID holds code.
		CheckCodeUniqueness(ctx context.Context, code, excludeID string) error
		CreateProgram(ctx context.Context, p Program) (Program, error)
		// QueryPrograms applies AND operation on available QueryFilter fields.
		// QueryFilter.Search is already folded and matched against Program.SearchKey.
		QueryPrograms(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Program, error)
		GetProgram(ctx context.Context, filter GetFilter) (Program, error)
		UpdateProgram(ctx context.Context, p Program) (Program, error)
		// ProgramInUse reports whether courses reference the program.
		ProgramInUse(ctx context.Context, id string) (bool, error)
		DeleteProgram(ctx context.Context, id string) error
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

func (svc *Service) checkCodeUniqueness(ctx context.Context, code, excludeID string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excludeID); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

// CodeExists backs the real-time duplicate check of program forms.
func (svc *Service) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return false, nil
	}
	err := svc.repo.CheckCodeUniqueness(ctx, code, excludeID)
	switch errors.Cause(err) {
	case nil:
		return false, nil
	case ErrCodeExists:
		return true, nil
	default:
		return false, err
	}
}

func (svc *Service) Create(ctx context.Context, np NewProgram) (Program, error) {
	now := svc.clock.Now()
	p := Program{
		Code:          np.Code,
		Language:      np.Language,
		NameEs:        np.NameEs,
		NameEn:        np.NameEn,
		DescriptionEs: np.DescriptionEs,
		DescriptionEn: np.DescriptionEn,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.setSearchKey()
	return svc.repo.CreateProgram(ctx, p)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Program, error) {
	filter.Clean()
	return svc.repo.QueryPrograms(ctx, filter, core.CleanOrdering(ordering, OrderingFields...)...)
}

// QueryViews is Query with every program resolved for locale.
func (svc *Service) QueryViews(ctx context.Context, locale bilingual.Language, filter QueryFilter, ordering ...core.DBOrdering) ([]View, error) {
	programs, err := svc.Query(ctx, filter, ordering...)
	if err != nil {
		return nil, err
	}
	views := make([]View, len(programs))
	for i, p := range programs {
		views[i] = NewView(p, locale)
	}
	return views, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Program, error) {
	return svc.repo.GetProgram(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Program, error) {
	return svc.repo.GetProgram(ctx, GetFilter{Code: NormalizeCode(code)})
}

func (svc *Service) Update(ctx context.Context, orig Program, up UpdateProgram) (Program, error) {
	p := up.apply(orig)
	p.UpdatedAt = svc.clock.Now()
	p.setSearchKey()
	return svc.repo.UpdateProgram(ctx, p)
}

// Delete removes the program unless courses still reference it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	inUse, err := svc.repo.ProgramInUse(ctx, id)
	if err != nil {
		return errors.Wrap(err, "checking program references")
	}
	if inUse {
		return ErrInUse
	}
	return svc.repo.DeleteProgram(ctx, id)
}
