package bimester

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

type Bimester struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"` // e.g. "2021 Bimester I"
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	GradeDeadline time.Time `json:"grade_deadline"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// View is a Bimester along with its status at read time.
type View struct {
	Bimester
	Status Status `json:"status"`
}

// NewBimester contains information needed to create a new Bimester.
type NewBimester struct {
	Name          string    `json:"name" validate:"required,notblank,max=64"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	GradeDeadline time.Time `json:"grade_deadline" validate:"required"`
}

func (nb *NewBimester) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nb.Name = core.CleanString(nb.Name)
	nb.StartDate, nb.EndDate, nb.GradeDeadline = nb.StartDate.UTC(), nb.EndDate.UTC(), nb.GradeDeadline.UTC()

	if err := validate.StructCtx(ctx, nb); err != nil {
		return err
	}
	return svc.checkNameUniqueness(ctx, nb.Name, "")
}

// UpdateBimester defines what information may be provided to modify an existing Bimester.
type UpdateBimester struct {
	Name          string     `json:"name" validate:"omitempty,max=64"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	GradeDeadline *time.Time `json:"grade_deadline"`

	// period holds the merged dates checked by the struct validation.
	period [3]time.Time
}

func (ub *UpdateBimester) Validate(ctx context.Context, orig Bimester, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(ub.Name); name != "" {
		ub.Name = name
	} else {
		ub.Name = orig.Name
	}
	ub.period = [3]time.Time{orig.StartDate, orig.EndDate, orig.GradeDeadline}
	for i, d := range []*time.Time{ub.StartDate, ub.EndDate, ub.GradeDeadline} {
		if d != nil {
			ub.period[i] = d.UTC()
		}
	}

	if err := validate.StructCtx(ctx, ub); err != nil {
		return err
	}
	return svc.checkNameUniqueness(ctx, ub.Name, orig.ID)
}

// apply returns orig modified by ub. ub must have been validated.
func (ub UpdateBimester) apply(orig Bimester) Bimester {
	b := orig
	b.Name = ub.Name
	b.StartDate, b.EndDate, b.GradeDeadline = ub.period[0], ub.period[1], ub.period[2]
	return b
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Statuses []Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Bimester. The first non-empty field wins.
// Name is matched case-insensitively.
type GetFilter struct {
	ID   string
	Name string
}

var OrderingFields = []string{"name", "start_date", "end_date", "grade_deadline", "created_at"}
