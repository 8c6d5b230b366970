package program

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
)

type Program struct {
	ID            string             `json:"id"`
	Code          string             `json:"code"` // e.g. "01L"
	Language      bilingual.Language `json:"language"`
	NameEs        string             `json:"name_es"`
	NameEn        string             `json:"name_en"`
	DescriptionEs string             `json:"description_es"`
	DescriptionEn string             `json:"description_en"`
	IsActive      bool               `json:"is_active"`
	SearchKey     string             `json:"-"`          // folded code + bilingual search key
	CreatedAt     time.Time          `json:"created_at"` // UTC
	UpdatedAt     time.Time          `json:"updated_at"` // UTC
}

var _ bilingual.Record = Program{} // interface compliance check

func (p Program) ContentLanguage() bilingual.Language { return p.Language }

func (p Program) BilingualField(name string) (bilingual.Text, bool) {
	switch name {
	case "name":
		return bilingual.Text{Es: p.NameEs, En: p.NameEn}, true
	case "description":
		return bilingual.Text{Es: p.DescriptionEs, En: p.DescriptionEn}, true
	}
	return bilingual.Text{}, false
}

func (p *Program) setSearchKey() {
	p.SearchKey = bilingual.Fold(p.Code + " " + bilingual.SearchKey(p, bilingual.Spanish, "name", "description"))
}

// View is a Program with its bilingual fields resolved for one locale.
type View struct {
	Program
	DisplayName        string `json:"display_name"`
	DisplayDescription string `json:"display_description"`
}

func NewView(p Program, locale bilingual.Language) View {
	return View{
		Program:            p,
		DisplayName:        bilingual.Resolve(p, "name", locale, p.Code),
		DisplayDescription: bilingual.Resolve(p, "description", locale, ""),
	}
}

// NewProgram contains information needed to create a new Program.
type NewProgram struct {
	Code          string             `json:"code" validate:"required,code,max=16"`
	Language      bilingual.Language `json:"language" validate:"required,language"`
	NameEs        string             `json:"name_es" validate:"max=128"`
	NameEn        string             `json:"name_en" validate:"max=128"`
	DescriptionEs string             `json:"description_es"`
	DescriptionEn string             `json:"description_en"`
}

func (np *NewProgram) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	np.Code = NormalizeCode(np.Code)
	np.NameEs, np.NameEn = core.CleanString(np.NameEs), core.CleanString(np.NameEn)
	np.DescriptionEs, np.DescriptionEn = strings.TrimSpace(np.DescriptionEs), strings.TrimSpace(np.DescriptionEn)

	if err := validate.StructCtx(ctx, np); err != nil {
		return err
	}
	return svc.checkCodeUniqueness(ctx, np.Code, "")
}

// UpdateProgram defines what information may be provided to modify an existing Program.
// The merged result is validated as a whole.
type UpdateProgram struct {
	Code          *string             `json:"code"`
	Language      *bilingual.Language `json:"language"`
	NameEs        *string             `json:"name_es"`
	NameEn        *string             `json:"name_en"`
	DescriptionEs *string             `json:"description_es"`
	DescriptionEn *string             `json:"description_en"`
	IsActive      *bool               `json:"is_active"`

	merged NewProgram
}

func (up *UpdateProgram) Validate(ctx context.Context, orig Program, validate *validator.Validate, svc *Service) error {
	up.merged = NewProgram{
		Code:          core.StringOr(up.Code, orig.Code),
		Language:      orig.Language,
		NameEs:        core.StringOr(up.NameEs, orig.NameEs),
		NameEn:        core.StringOr(up.NameEn, orig.NameEn),
		DescriptionEs: core.StringOr(up.DescriptionEs, orig.DescriptionEs),
		DescriptionEn: core.StringOr(up.DescriptionEn, orig.DescriptionEn),
	}
	if up.Language != nil {
		up.merged.Language = *up.Language
	}
	np := &up.merged
	np.Code = NormalizeCode(np.Code)
	np.NameEs, np.NameEn = core.CleanString(np.NameEs), core.CleanString(np.NameEn)
	np.DescriptionEs, np.DescriptionEn = strings.TrimSpace(np.DescriptionEs), strings.TrimSpace(np.DescriptionEn)

	if err := validate.StructCtx(ctx, np); err != nil {
		return err
	}
	return svc.checkCodeUniqueness(ctx, np.Code, orig.ID)
}

func (up UpdateProgram) apply(orig Program) Program {
	p := orig
	p.Code = up.merged.Code
	p.Language = up.merged.Language
	p.NameEs, p.NameEn = up.merged.NameEs, up.merged.NameEn
	p.DescriptionEs, p.DescriptionEn = up.merged.DescriptionEs, up.merged.DescriptionEn
	if up.IsActive != nil {
		p.IsActive = *up.IsActive
	}
	return p
}

type QueryFilter struct {
	Search   string             `query:"search"`
	Language bilingual.Language `query:"language"`
	IsActive *bool              `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = bilingual.Fold(qf.Search)
}

// GetFilter selects a single Program. The first non-empty field wins.
type GetFilter struct {
	ID   string
	Code string
}

var OrderingFields = []string{"code", "name_es", "name_en", "created_at"}

// NormalizeCode trims and upper-cases a program code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
