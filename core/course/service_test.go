package course_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	testutil "github.com/cpmappstudio/alef-university-sub001/tests"
)

func TestNewCourse_Validate(t *testing.T) {
	f := testutil.NewFixture(t)
	prog := f.CreateProgram(t, "01L", bilingual.Spanish, "Teología", "")
	other := f.CreateProgram(t, "02L", bilingual.Spanish, "Música", "")
	f.CreateCourse(t, prog.ID, "CCOU-08", 3, "Consejería", "")

	tests := []struct {
		name       string
		nc         course.NewCourse
		wantFields []string
	}{
		{
			name: "valid",
			nc:   course.NewCourse{ProgramID: prog.ID, Code: " ccou-09 ", Language: bilingual.Spanish, NameEs: "Ética", Credits: 3},
		},
		{
			name: "same code in another program",
			nc:   course.NewCourse{ProgramID: other.ID, Code: "CCOU-08", Language: bilingual.Spanish, NameEs: "Coro", Credits: 2},
		},
		{
			name:       "code taken in program",
			nc:         course.NewCourse{ProgramID: prog.ID, Code: "ccou-08", Language: bilingual.Spanish, NameEs: "Ética", Credits: 3},
			wantFields: []string{"code"},
		},
		{
			name:       "unknown program",
			nc:         course.NewCourse{ProgramID: "nope", Code: "X-1", Language: bilingual.Spanish, NameEs: "Ética", Credits: 3},
			wantFields: []string{"program_id"},
		},
		{
			name:       "english name required",
			nc:         course.NewCourse{ProgramID: prog.ID, Code: "X-1", Language: bilingual.English, NameEs: "Ética", Credits: 3},
			wantFields: []string{"name_en"},
		},
		{
			name:       "credits out of range",
			nc:         course.NewCourse{ProgramID: prog.ID, Code: "X-1", Language: bilingual.Spanish, NameEs: "Ética", Credits: 13},
			wantFields: []string{"credits"},
		},
		{
			name:       "no credits",
			nc:         course.NewCourse{ProgramID: prog.ID, Code: "X-1", Language: bilingual.Spanish, NameEs: "Ética"},
			wantFields: []string{"credits"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nc.Validate(context.Background(), f.Validate, f.Services.Courses)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ElementsMatch(t, tt.wantFields, testutil.FieldNames(err))
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t)
	svc := f.Services.Courses
	prog := f.CreateProgram(t, "01L", bilingual.Both, "Teología", "Theology")

	nc := course.NewCourse{
		ProgramID: prog.ID,
		Code:      "ccou-08",
		Language:  bilingual.Both,
		NameEs:    "Introducción a la Consejería",
		NameEn:    "Introduction to Counseling",
		Credits:   3,
	}
	require.NoError(t, nc.Validate(ctx, f.Validate, svc))
	crs, err := svc.Create(ctx, nc)
	require.NoError(t, err)
	assert.Equal(t, "CCOU-08", crs.Code)
	assert.True(t, crs.IsActive)
	assert.Equal(t, testutil.Now, crs.CreatedAt)

	exists, err := svc.CodeExists(ctx, prog.ID, " ccou-08", "")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = svc.CodeExists(ctx, prog.ID, "CCOU-08", crs.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := svc.GetByCode(ctx, prog.ID, "ccou-08")
	require.NoError(t, err)
	assert.Equal(t, crs.ID, got.ID)

	t.Run("search ignores accents and case", func(t *testing.T) {
		views, err := svc.QueryViews(ctx, bilingual.English, course.QueryFilter{Search: "INTRODUCCION"})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "EN: Introduction to Counseling / ES: Introducción a la Consejería", views[0].DisplayName)

		views, err = svc.QueryViews(ctx, bilingual.Spanish, course.QueryFilter{Search: "ccou"})
		require.NoError(t, err)
		assert.Len(t, views, 1)

		views, err = svc.QueryViews(ctx, bilingual.Spanish, course.QueryFilter{Search: "física"})
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("update keeps the program", func(t *testing.T) {
		lang := bilingual.English
		credits := 4
		uc := course.UpdateCourse{Language: &lang, Credits: &credits}
		require.NoError(t, uc.Validate(ctx, crs, f.Validate, svc))
		updated, err := svc.Update(ctx, crs, uc)
		require.NoError(t, err)
		assert.Equal(t, prog.ID, updated.ProgramID)
		assert.Equal(t, 4, updated.Credits)
		assert.Equal(t, "Introduction to Counseling", course.NewView(updated, bilingual.Spanish).DisplayName)

		blank := " "
		uc = course.UpdateCourse{NameEn: &blank}
		err = uc.Validate(ctx, updated, f.Validate, svc)
		assert.ElementsMatch(t, []string{"name_en"}, testutil.FieldNames(err))
	})

	t.Run("delete is blocked by classes", func(t *testing.T) {
		prof := f.CreateUser(t, "professor", "Pablo", "prof@alef.test", "P-1")
		bim := f.CreateBimester(t, "2021 Bimester I", testutil.Now)
		cls := f.CreateClass(t, crs.ID, bim.ID, prof.ID, "1")

		err := svc.Delete(ctx, crs.ID)
		assert.True(t, core.IsConflict(err))
		assert.Equal(t, course.ErrInUse, err)

		require.NoError(t, f.Services.Classes.Delete(ctx, cls.ID))
		require.NoError(t, svc.Delete(ctx, crs.ID))
		_, err = svc.Get(ctx, crs.ID)
		assert.True(t, core.IsNotFound(err))
	})
}
