package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	ErrCodeExists  = errors.New("a user with this code already exists")
	ErrUserInUse   = core.NewConflictError("user still owns classes or enrollments")
	ErrRoleTooHigh = errors.Wrap(core.ErrForbidden, "cannot grant a role above your own")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrCodeExists when another user than excludeID holds them.
		CheckUniqueness(ctx context.Context, email, code, excludeID string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Email or User.Code.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id string, at time.Time) error
		// UserInUse reports whether classes or enrollments reference the user.
		UserInUse(ctx context.Context, id string) (bool, error)
		DeleteUser(ctx context.Context, id string) error
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

func (svc *Service) checkUniqueness(ctx context.Context, email, code, excludeID string) error {
	if err := svc.repo.CheckUniqueness(ctx, email, code, excludeID); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrEmailExists:
			field = "email"
		case ErrCodeExists:
			field = "code"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// CheckGrant fails when actor may not hand out role.
func CheckGrant(actor *core.Principal, role string) error {
	if err := actor.Require(AdminRoles...); err != nil {
		return err
	}
	if RolePriority(role) > RolePriority(actor.Role) {
		return ErrRoleTooHigh
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := svc.clock.Now()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Code:      nu.Code,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter, core.CleanOrdering(ordering, UserOrderingFields...)...)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByCode(ctx context.Context, code string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Code: NormalizeCode(code)})
}

// EmailExists backs the real-time duplicate check of user forms.
func (svc *Service) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	return svc.exists(ctx, core.CleanString(email, true /* lower */), "", excludeID)
}

func (svc *Service) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	return svc.exists(ctx, "", NormalizeCode(code), excludeID)
}

func (svc *Service) exists(ctx context.Context, email, code, excludeID string) (bool, error) {
	if email == "" && code == "" {
		return false, nil
	}
	err := svc.repo.CheckUniqueness(ctx, email, code, excludeID)
	switch errors.Cause(err) {
	case nil:
		return false, nil
	case ErrEmailExists, ErrCodeExists:
		return true, nil
	default:
		return false, err
	}
}

func (svc *Service) Update(ctx context.Context, orig User, uu UpdateUser) (User, error) {
	usr := orig
	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.Code != nil {
		usr.Code = *uu.Code
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	usr.UpdatedAt = svc.clock.Now()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = svc.clock.Now()
	if err := svc.repo.SetLastLogin(ctx, usr.ID, usr.LastLogin); err != nil {
		return User{}, err
	}
	return usr, nil
}

// Delete removes the user unless classes or enrollments still point to it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	inUse, err := svc.repo.UserInUse(ctx, id)
	if err != nil {
		return errors.Wrap(err, "checking user references")
	}
	if inUse {
		return ErrUserInUse
	}
	return svc.repo.DeleteUser(ctx, id)
}
