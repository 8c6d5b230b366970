package program

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
)

type fakeRepo struct {
	programs map[string]Program
	inUse    map[string]bool
}

var _ Repository = (*fakeRepo)(nil) // interface compliance check

func newFakeRepo() *fakeRepo {
	return &fakeRepo{programs: map[string]Program{}, inUse: map[string]bool{}}
}

func (r *fakeRepo) CheckCodeUniqueness(_ context.Context, code, excludeID string) error {
	for _, p := range r.programs {
		if p.ID != excludeID && p.Code == code {
			return ErrCodeExists
		}
	}
	return nil
}

func (r *fakeRepo) CreateProgram(_ context.Context, p Program) (Program, error) {
	p.ID = "p-" + p.Code
	r.programs[p.ID] = p
	return p, nil
}

func (r *fakeRepo) QueryPrograms(_ context.Context, filter QueryFilter, _ ...core.DBOrdering) ([]Program, error) {
	var res []Program
	for _, p := range r.programs {
		if strings.Contains(p.SearchKey, filter.Search) {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetProgram(_ context.Context, filter GetFilter) (Program, error) {
	for _, p := range r.programs {
		if (filter.ID != "" && p.ID == filter.ID) || (filter.Code != "" && p.Code == filter.Code) {
			return p, nil
		}
	}
	return Program{}, ErrNotFound
}

func (r *fakeRepo) UpdateProgram(_ context.Context, p Program) (Program, error) {
	r.programs[p.ID] = p
	return p, nil
}

func (r *fakeRepo) ProgramInUse(_ context.Context, id string) (bool, error) {
	return r.inUse[id], nil
}

func (r *fakeRepo) DeleteProgram(_ context.Context, id string) error {
	delete(r.programs, id)
	return nil
}

func newValidate() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	bilingual.InitValidators(validate, translator)
	InitValidators(validate)
	return validate
}

func fieldNames(err error) []string {
	var fields []string
	switch e := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			fields = append(fields, fe.Field())
		}
	case *core.ValidationError:
		for _, fe := range e.Fields {
			fields = append(fields, fe.Field)
		}
	}
	return fields
}

func TestNewProgram_Validate(t *testing.T) {
	validate := newValidate()
	repo := newFakeRepo()
	repo.programs["p-01L"] = Program{ID: "p-01L", Code: "01L"}
	svc := NewService(repo, nil)

	tests := []struct {
		name       string
		np         NewProgram
		wantFields []string
	}{
		{name: "valid es", np: NewProgram{Code: " 02l ", Language: bilingual.Spanish, NameEs: "Teología"}},
		{name: "valid both", np: NewProgram{Code: "03L", Language: bilingual.Both, NameEs: "Teología", NameEn: "Theology"}},
		{name: "en name missing", np: NewProgram{Code: "03L", Language: bilingual.English, NameEs: "Teología"}, wantFields: []string{"name_en"}},
		{name: "both names missing", np: NewProgram{Code: "03L", Language: bilingual.Both}, wantFields: []string{"name_es", "name_en"}},
		{name: "bad language", np: NewProgram{Code: "03L", Language: "fr"}, wantFields: []string{"language"}},
		{name: "bad code", np: NewProgram{Code: "0 3L", Language: bilingual.Spanish, NameEs: "x"}, wantFields: []string{"code"}},
		{name: "code taken", np: NewProgram{Code: "01l", Language: bilingual.Spanish, NameEs: "x"}, wantFields: []string{"code"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.np.Validate(context.Background(), validate, svc)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ElementsMatch(t, tt.wantFields, fieldNames(err))
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	validate := newValidate()
	repo := newFakeRepo()
	svc := NewService(repo, core.FixedClock(now))

	np := NewProgram{Code: "01l", Language: bilingual.Both, NameEs: "Matemáticas Aplicadas", NameEn: "Applied Mathematics"}
	require.NoError(t, np.Validate(ctx, validate, svc))
	p, err := svc.Create(ctx, np)
	require.NoError(t, err)
	assert.Equal(t, "01L", p.Code)
	assert.True(t, p.IsActive)
	assert.Equal(t, "01l matematicas aplicadas applied mathematics", p.SearchKey)

	found, err := svc.Query(ctx, QueryFilter{Search: "MATEMATICAS"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	views, err := svc.QueryViews(ctx, bilingual.English, QueryFilter{Search: "applied"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "EN: Applied Mathematics / ES: Matemáticas Aplicadas", views[0].DisplayName)

	exists, err := svc.CodeExists(ctx, " 01l", "")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = svc.CodeExists(ctx, "01L", p.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	lang := bilingual.English
	up := UpdateProgram{Language: &lang}
	require.NoError(t, up.Validate(ctx, p, validate, svc))
	p, err = svc.Update(ctx, p, up)
	require.NoError(t, err)
	assert.Equal(t, "01l applied mathematics", p.SearchKey)
	assert.Equal(t, "Applied Mathematics", NewView(p, bilingual.Spanish).DisplayName)

	empty := ""
	up = UpdateProgram{NameEn: &empty}
	err = up.Validate(ctx, p, validate, svc)
	assert.Equal(t, []string{"name_en"}, fieldNames(err))

	repo.inUse[p.ID] = true
	assert.True(t, core.IsConflict(svc.Delete(ctx, p.ID)))
	repo.inUse[p.ID] = false
	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.GetByCode(ctx, "01L")
	assert.True(t, core.IsNotFound(err))
}
