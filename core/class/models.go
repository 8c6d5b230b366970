package class

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
)

// Class is one taught instance of a course within a bimester.
// It has no stored status: see View.
type Class struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	BimesterID  string    `json:"bimester_id"`
	ProfessorID string    `json:"professor_id"`
	GroupNumber string    `json:"group_number"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (c Class) Key() Key {
	return Key{CourseID: c.CourseID, BimesterID: c.BimesterID, GroupNumber: c.GroupNumber}
}

// Key identifies a class.
type Key struct {
	CourseID    string
	BimesterID  string
	GroupNumber string
}

// View is a Class along with the status of its bimester at read time.
type View struct {
	Class
	Status bimester.Status `json:"status"`
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	CourseID    string `json:"course_id" validate:"required"`
	BimesterID  string `json:"bimester_id" validate:"required"`
	ProfessorID string `json:"professor_id" validate:"required"`
	GroupNumber string `json:"group_number" validate:"required,code,max=8"`
}

func (nc *NewClass) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nc.CourseID = strings.TrimSpace(nc.CourseID)
	nc.BimesterID = strings.TrimSpace(nc.BimesterID)
	nc.ProfessorID = strings.TrimSpace(nc.ProfessorID)
	nc.GroupNumber = core.CleanString(nc.GroupNumber)

	if err := validate.StructCtx(ctx, nc); err != nil {
		return err
	}
	if err := svc.checkReferences(ctx, nc.CourseID, nc.BimesterID, nc.ProfessorID); err != nil {
		return err
	}
	return svc.checkKeyUniqueness(ctx, Key{CourseID: nc.CourseID, BimesterID: nc.BimesterID, GroupNumber: nc.GroupNumber}, "")
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	ProfessorID *string `json:"professor_id"`
	GroupNumber *string `json:"group_number" validate:"omitempty,code,max=8"`
}

func (uc *UpdateClass) Validate(ctx context.Context, orig Class, validate *validator.Validate, svc *Service) error {
	if uc.GroupNumber != nil {
		group := core.CleanString(*uc.GroupNumber)
		uc.GroupNumber = &group
	}
	if err := validate.StructCtx(ctx, uc); err != nil {
		return err
	}
	if uc.ProfessorID != nil {
		if err := svc.checkProfessor(ctx, *uc.ProfessorID); err != nil {
			return err
		}
	}
	if uc.GroupNumber != nil {
		key := orig.Key()
		key.GroupNumber = *uc.GroupNumber
		return svc.checkKeyUniqueness(ctx, key, orig.ID)
	}
	return nil
}

func (uc UpdateClass) apply(orig Class) Class {
	c := orig
	c.ProfessorID = core.StringOr(uc.ProfessorID, c.ProfessorID)
	c.GroupNumber = core.StringOr(uc.GroupNumber, c.GroupNumber)
	return c
}

type QueryFilter struct {
	CourseID    string            `query:"course_id"`
	BimesterID  string            `query:"bimester_id"`
	ProfessorID string            `query:"professor_id"`
	Statuses    []bimester.Status `query:"status"`
}

// GetFilter selects a single Class: by ID, or by Key.
type GetFilter struct {
	ID  string
	Key Key
}

var OrderingFields = []string{"group_number", "created_at"}
