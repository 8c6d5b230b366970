// Package boiledrepos implements the user repository with sqlboiler raw queries.
package boiledrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/strmangle"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

var (
	userColumns = []string{
		"id", "name", "email", "code", "role", "is_active", "password_hash", "created_at", "updated_at", "last_login",
	}
	// columns an update writes; the password is only written when set
	userUpdateColumns = []string{"name", "email", "code", "role", "is_active", "updated_at"}

	userSelect = "SELECT " + strings.Join(userColumns, ", ") + " FROM users"
)

// userRecord is a users row, bound by column name.
type userRecord struct {
	ID           string      `boil:"id"`
	Name         string      `boil:"name"`
	Email        string      `boil:"email"`
	Code         null.String `boil:"code"`
	Role         string      `boil:"role"`
	IsActive     bool        `boil:"is_active"`
	PasswordHash null.Bytes  `boil:"password_hash"`
	CreatedAt    time.Time   `boil:"created_at"`
	UpdatedAt    time.Time   `boil:"updated_at"`
	LastLogin    null.Time   `boil:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

func (repo userRepository) boil(usr user.User) userRecord {
	return userRecord{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Code:         null.NewString(usr.Code, usr.Code != ""),
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		PasswordHash: null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(u *userRecord) user.User {
	if u == nil {
		return user.User{}
	}
	usr := user.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Code:         u.Code.String,
		Role:         u.Role,
		IsActive:     u.IsActive,
		PasswordHash: u.PasswordHash.Bytes,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
	if u.LastLogin.Valid {
		usr.LastLogin = u.LastLogin.Time.UTC()
	}
	return usr
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps a violated unique constraint to the matching user error.
func (repo userRepository) trapUniqueErr(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "code") {
			return user.ErrCodeExists
		}
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo userRepository) CheckUniqueness(ctx context.Context, email, code, excludeID string) error {
	if !validID(excludeID) {
		excludeID = uuid.Nil.String()
	}
	var emailTaken, codeTaken bool
	err := queries.Raw(`SELECT
		COALESCE(BOOL_OR(email = $1), FALSE),
		COALESCE(BOOL_OR(code = $2), FALSE)
		FROM users WHERE id <> $3 AND (email = $1 OR code = $2)`, email, null.NewString(code, code != ""), excludeID).
		QueryRowContext(ctx, repo.exec).Scan(&emailTaken, &codeTaken)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	switch {
	case emailTaken && email != "":
		return user.ErrEmailExists
	case codeTaken && code != "":
		return user.ErrCodeExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	u := repo.boil(usr)
	q := fmt.Sprintf("INSERT INTO users (%s) VALUES (%s)",
		strings.Join(userColumns, ", "), strmangle.Placeholders(true, len(userColumns), 1, 1))
	_, err := queries.Raw(q,
		u.ID, u.Name, u.Email, u.Code, u.Role, u.IsActive, u.PasswordHash, u.CreatedAt, u.UpdatedAt, u.LastLogin,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return user.User{}, repo.trapUniqueErr(err, "inserting user")
	}
	return repo.unboil(&u), nil
}

// roleRank sorts roles by privilege rather than by name.
var roleRank = fmt.Sprintf("CASE role WHEN '%s' THEN %d WHEN '%s' THEN %d WHEN '%s' THEN %d ELSE %d END",
	user.RoleSuperAdmin, user.RolePriority(user.RoleSuperAdmin),
	user.RoleAdmin, user.RolePriority(user.RoleAdmin),
	user.RoleProfessor, user.RolePriority(user.RoleProfessor),
	user.RolePriority(user.RoleStudent))

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// users with Name, Email or Code matching the search keyword
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR email ILIKE %[1]s OR code ILIKE %[1]s)", p))
	}
	if len(filter.Roles) > 0 {
		conds = append(conds, "role = ANY("+arg(pq.Array(filter.Roles))+")")
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(*filter.IsActive))
	}

	q := userSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if ord.Field == "role" {
			ord.Field = roleRank
		}
		orderList = append(orderList, ord.String())
	}
	q += " ORDER BY " + strings.Join(append(orderList, "name ASC"), ", ")

	var records []*userRecord
	if err := queries.Raw(q, args...).Bind(ctx, repo.exec, &records); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(records))
	for _, u := range records {
		users = append(users, repo.unboil(u))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var q *queries.Query
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		q = queries.Raw(userSelect+" WHERE id = $1", filter.ID)
	case filter.Email != "":
		q = queries.Raw(userSelect+" WHERE email = $1", filter.Email)
	case filter.Code != "":
		q = queries.Raw(userSelect+" WHERE code = $1", filter.Code)
	default:
		return user.User{}, user.ErrNotFound
	}

	var u userRecord
	if err := q.Bind(ctx, repo.exec, &u); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.unboil(&u), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !validID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	u := repo.boil(usr)
	cols := userUpdateColumns
	args := []interface{}{u.Name, u.Email, u.Code, u.Role, u.IsActive, u.UpdatedAt}
	if u.PasswordHash.Valid {
		cols = append(append([]string(nil), cols...), "password_hash")
		args = append(args, u.PasswordHash)
	}
	args = append(args, u.ID)

	q := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strmangle.SetParamNames("", "", 1, cols), len(args), strings.Join(userColumns, ", "))
	var updated userRecord
	if err := queries.Raw(q, args...).Bind(ctx, repo.exec, &updated); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, repo.trapUniqueErr(err, "updating user")
	}
	return repo.unboil(&updated), nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return user.ErrNotFound
	}
	res, err := queries.Raw("UPDATE users SET last_login = $1 WHERE id = $2", at.UTC(), id).ExecContext(ctx, repo.exec)
	return repo.affected(res, err, "setting last login")
}

func (repo userRepository) UserInUse(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var inUse bool
	err := queries.Raw(`SELECT EXISTS (SELECT 1 FROM classes WHERE professor_id = $1)
		OR EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1)`, id).
		QueryRowContext(ctx, repo.exec).Scan(&inUse)
	if err != nil {
		return false, errors.Wrap(err, "checking user references")
	}
	return inUse, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id string) error {
	if !validID(id) {
		return user.ErrNotFound
	}
	res, err := queries.Raw("DELETE FROM users WHERE id = $1", id).ExecContext(ctx, repo.exec)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return user.ErrUserInUse
	}
	return repo.affected(res, err, "deleting user")
}

func (repo userRepository) affected(res sql.Result, err error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}
