package course

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
)

type Course struct {
	ID            string             `json:"id"`
	ProgramID     string             `json:"program_id"`
	Code          string             `json:"code"` // e.g. "CCOU-08", unique within the program
	Language      bilingual.Language `json:"language"`
	NameEs        string             `json:"name_es"`
	NameEn        string             `json:"name_en"`
	DescriptionEs string             `json:"description_es"`
	DescriptionEn string             `json:"description_en"`
	Credits       int                `json:"credits"`
	IsActive      bool               `json:"is_active"`
	SearchKey     string             `json:"-"`
	CreatedAt     time.Time          `json:"created_at"` // UTC
	UpdatedAt     time.Time          `json:"updated_at"` // UTC
}

var _ bilingual.Record = Course{} // interface compliance check

func (c Course) ContentLanguage() bilingual.Language { return c.Language }

func (c Course) BilingualField(name string) (bilingual.Text, bool) {
	switch name {
	case "name":
		return bilingual.Text{Es: c.NameEs, En: c.NameEn}, true
	case "description":
		return bilingual.Text{Es: c.DescriptionEs, En: c.DescriptionEn}, true
	}
	return bilingual.Text{}, false
}

func (c *Course) setSearchKey() {
	c.SearchKey = bilingual.Fold(c.Code + " " + bilingual.SearchKey(c, bilingual.Spanish, "name", "description"))
}

// View is a Course with its bilingual fields resolved for one locale.
type View struct {
	Course
	DisplayName        string `json:"display_name"`
	DisplayDescription string `json:"display_description"`
}

func NewView(c Course, locale bilingual.Language) View {
	return View{
		Course:             c,
		DisplayName:        bilingual.Resolve(c, "name", locale, c.Code),
		DisplayDescription: bilingual.Resolve(c, "description", locale, ""),
	}
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	ProgramID     string             `json:"program_id" validate:"required"`
	Code          string             `json:"code" validate:"required,code,max=16"`
	Language      bilingual.Language `json:"language" validate:"required,language"`
	NameEs        string             `json:"name_es" validate:"max=128"`
	NameEn        string             `json:"name_en" validate:"max=128"`
	DescriptionEs string             `json:"description_es"`
	DescriptionEn string             `json:"description_en"`
	Credits       int                `json:"credits" validate:"min=1,max=12"`
}

func (nc *NewCourse) clean() {
	nc.ProgramID = strings.TrimSpace(nc.ProgramID)
	nc.Code = NormalizeCode(nc.Code)
	nc.NameEs, nc.NameEn = core.CleanString(nc.NameEs), core.CleanString(nc.NameEn)
	nc.DescriptionEs, nc.DescriptionEn = strings.TrimSpace(nc.DescriptionEs), strings.TrimSpace(nc.DescriptionEn)
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nc.clean()
	if err := validate.StructCtx(ctx, nc); err != nil {
		return err
	}
	if err := svc.checkProgram(ctx, nc.ProgramID); err != nil {
		return err
	}
	return svc.checkCodeUniqueness(ctx, nc.ProgramID, nc.Code, "")
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// A course cannot move to another program.
type UpdateCourse struct {
	Code          *string             `json:"code"`
	Language      *bilingual.Language `json:"language"`
	NameEs        *string             `json:"name_es"`
	NameEn        *string             `json:"name_en"`
	DescriptionEs *string             `json:"description_es"`
	DescriptionEn *string             `json:"description_en"`
	Credits       *int                `json:"credits"`
	IsActive      *bool               `json:"is_active"`

	merged NewCourse
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course, validate *validator.Validate, svc *Service) error {
	uc.merged = NewCourse{
		ProgramID:     orig.ProgramID,
		Code:          core.StringOr(uc.Code, orig.Code),
		Language:      orig.Language,
		NameEs:        core.StringOr(uc.NameEs, orig.NameEs),
		NameEn:        core.StringOr(uc.NameEn, orig.NameEn),
		DescriptionEs: core.StringOr(uc.DescriptionEs, orig.DescriptionEs),
		DescriptionEn: core.StringOr(uc.DescriptionEn, orig.DescriptionEn),
		Credits:       orig.Credits,
	}
	if uc.Language != nil {
		uc.merged.Language = *uc.Language
	}
	if uc.Credits != nil {
		uc.merged.Credits = *uc.Credits
	}
	uc.merged.clean()

	if err := validate.StructCtx(ctx, &uc.merged); err != nil {
		return err
	}
	return svc.checkCodeUniqueness(ctx, orig.ProgramID, uc.merged.Code, orig.ID)
}

func (uc UpdateCourse) apply(orig Course) Course {
	c := orig
	m := uc.merged
	c.Code, c.Language, c.Credits = m.Code, m.Language, m.Credits
	c.NameEs, c.NameEn = m.NameEs, m.NameEn
	c.DescriptionEs, c.DescriptionEn = m.DescriptionEs, m.DescriptionEn
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	return c
}

type QueryFilter struct {
	ProgramID string             `query:"program_id"`
	Search    string             `query:"search"`
	Language  bilingual.Language `query:"language"`
	IsActive  *bool              `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.ProgramID = strings.TrimSpace(qf.ProgramID)
	qf.Search = bilingual.Fold(qf.Search)
}

// GetFilter selects a single Course: by ID, or by program and code.
type GetFilter struct {
	ID        string
	ProgramID string
	Code      string
}

var OrderingFields = []string{"code", "name_es", "name_en", "credits", "created_at"}

// NormalizeCode trims and upper-cases a course code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
