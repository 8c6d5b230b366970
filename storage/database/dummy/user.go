package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, email, code, excludeID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if usr.ID == excludeID {
			continue
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
		if code != "" && usr.Code == code {
			return user.ErrCodeExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = newID()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	roles := make(map[string]bool, len(filter.Roles))
	for _, r := range filter.Roles {
		roles[r] = true
	}

	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		// users with search keyword matching any Name, Email or Code ?
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.Code), search) {
			continue
		}
		if len(roles) > 0 && !roles[u.Role] {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, *u)
	}

	orderBy(len(users), func(i, j int) { users[i], users[j] = users[j], users[i] }, ordering, "name",
		func(field string, i, j int) (int, bool) {
			a, b := users[i], users[j]
			switch field {
			case "name":
				return compareStrings(a.Name, b.Name), true
			case "email":
				return compareStrings(a.Email, b.Email), true
			case "code":
				return compareStrings(a.Code, b.Code), true
			case "role":
				return compareInts(user.RolePriority(a.Role), user.RolePriority(b.Role)), true
			case "is_active":
				return compareBools(a.IsActive, b.IsActive), true
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt), true
			}
			return 0, false
		})
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if (filter.Email != "" && usr.Email == filter.Email) || (filter.Code != "" && usr.Code == filter.Code) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.PasswordHash == nil {
		usr.PasswordHash = orig.PasswordHash
	}
	usr.CreatedAt = orig.CreatedAt
	usr.LastLogin = orig.LastLogin
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, id string, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = at
	return nil
}

func (repo *userRepository) UserInUse(_ context.Context, id string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.classes {
		if c.ProfessorID == id {
			return true, nil
		}
	}
	for _, e := range repo.db.enrollments {
		if e.StudentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.db.users, id)
	return nil
}
