package user

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

type fakeRepo struct {
	users map[string]User
	inUse map[string]bool
}

var _ Repository = (*fakeRepo)(nil) // interface compliance check

func newFakeRepo(users ...User) *fakeRepo {
	repo := &fakeRepo{users: map[string]User{}, inUse: map[string]bool{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeRepo) CheckUniqueness(_ context.Context, email, code, excludeID string) error {
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		if email != "" && u.Email == email {
			return ErrEmailExists
		}
		if code != "" && u.Code == code {
			return ErrCodeExists
		}
	}
	return nil
}

func (r *fakeRepo) CreateUser(_ context.Context, usr User) (User, error) {
	usr.ID = "u" + string(rune('0'+len(r.users)+1))
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *fakeRepo) QueryUsers(_ context.Context, filter QueryFilter, _ ...core.DBOrdering) ([]User, error) {
	var res []User
	for _, u := range r.users {
		if filter.Search == "" || strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Search)) {
			res = append(res, u)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetUser(_ context.Context, filter GetFilter) (User, error) {
	for _, u := range r.users {
		if (filter.ID != "" && u.ID == filter.ID) ||
			(filter.Email != "" && u.Email == filter.Email) ||
			(filter.Code != "" && u.Code == filter.Code) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *fakeRepo) UpdateUser(_ context.Context, usr User) (User, error) {
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *fakeRepo) SetLastLogin(_ context.Context, id string, at time.Time) error {
	u := r.users[id]
	u.LastLogin = at
	r.users[id] = u
	return nil
}

func (r *fakeRepo) UserInUse(_ context.Context, id string) (bool, error) {
	return r.inUse[id], nil
}

func (r *fakeRepo) DeleteUser(_ context.Context, id string) error {
	delete(r.users, id)
	return nil
}

func TestService(t *testing.T) {
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	svc := NewService(repo, core.FixedClock(now))
	ctx := context.Background()

	usr, err := svc.Create(ctx, NewUser{Name: "Ada", Email: "ada@alef.edu", Code: "01L-2021-01", Role: RoleStudent, Password: "Gr4des&Bimesters"})
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	assert.Equal(t, now, usr.CreatedAt)
	assert.NoError(t, usr.CheckPassword("Gr4des&Bimesters"))

	got, err := svc.GetByEmail(ctx, " ADA@alef.edu ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	got, err = svc.GetByCode(ctx, "01l-2021-01")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = svc.GetByID(ctx, "missing")
	assert.True(t, core.IsNotFound(err))

	exists, err := svc.EmailExists(ctx, "ada@alef.edu", "")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = svc.EmailExists(ctx, "ada@alef.edu", usr.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = svc.CodeExists(ctx, "01L-2021-01", "")
	require.NoError(t, err)
	assert.True(t, exists)

	inactive := false
	updated, err := svc.Update(ctx, usr, UpdateUser{Name: "Ada L.", Email: usr.Email, Role: RoleProfessor, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, RoleProfessor, updated.Role)
	assert.False(t, updated.IsActive)
	assert.Equal(t, usr.Code, updated.Code)

	logged, err := svc.SetLastLogin(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, now, logged.LastLogin)

	repo.inUse[usr.ID] = true
	err = svc.Delete(ctx, usr.ID)
	assert.True(t, core.IsConflict(err))

	repo.inUse[usr.ID] = false
	require.NoError(t, svc.Delete(ctx, usr.ID))
	_, err = svc.GetByID(ctx, usr.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestCheckGrant(t *testing.T) {
	admin := &core.Principal{UserID: "a", Role: RoleAdmin}
	super := &core.Principal{UserID: "s", Role: RoleSuperAdmin}
	prof := &core.Principal{UserID: "p", Role: RoleProfessor}

	assert.NoError(t, CheckGrant(admin, RoleStudent))
	assert.NoError(t, CheckGrant(admin, RoleAdmin))
	assert.ErrorIs(t, CheckGrant(admin, RoleSuperAdmin), core.ErrForbidden)
	assert.NoError(t, CheckGrant(super, RoleSuperAdmin))
	assert.Equal(t, core.ErrForbidden, CheckGrant(prof, RoleStudent))
	assert.Equal(t, core.ErrUnauthenticated, CheckGrant(nil, RoleStudent))
}
