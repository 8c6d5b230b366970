package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
)

const classColumns = "id, course_id, bimester_id, professor_id, group_number, created_at, updated_at"

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(ctx context.Context, c class.Class) (class.Class, error) {
	c.ID = newID()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO classes (`+classColumns+`)
		VALUES (:id, :course_id, :bimester_id, :professor_id, :group_number, :created_at, :updated_at)`, classRow(c))
	if err != nil {
		if uniqueConstraint(err) != "" {
			return class.Class{}, class.ErrExists
		}
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter class.QueryFilter, ordering ...core.DBOrdering) ([]class.Class, error) {
	w := &where{}
	for _, f := range []struct{ column, id string }{
		{"course_id", filter.CourseID},
		{"bimester_id", filter.BimesterID},
		{"professor_id", filter.ProfessorID},
	} {
		if f.id == "" {
			continue
		}
		if !validID(f.id) {
			return []class.Class{}, nil
		}
		w.add(f.column+" = ?", f.id)
	}

	var rows []classRecord
	q := repo.db.Rebind("SELECT " + classColumns + " FROM classes" + w.String() + orderBy(ordering, "group_number ASC", "created_at ASC"))
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.class())
	}
	return classes, nil
}

func (repo *classRepository) GetClass(ctx context.Context, filter class.GetFilter) (class.Class, error) {
	var (
		row classRecord
		err error
	)
	if filter.ID != "" {
		if !validID(filter.ID) {
			return class.Class{}, class.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+classColumns+" FROM classes WHERE id = ?"), filter.ID)
	} else {
		key := filter.Key
		if !validID(key.CourseID) || !validID(key.BimesterID) {
			return class.Class{}, class.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+classColumns+
			" FROM classes WHERE course_id = ? AND bimester_id = ? AND group_number = ?"), key.CourseID, key.BimesterID, key.GroupNumber)
	}
	if err != nil {
		return class.Class{}, trapNoRows(err, class.ErrNotFound, "getting class")
	}
	return row.class(), nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, c class.Class) (class.Class, error) {
	if !validID(c.ID) {
		return class.Class{}, class.ErrNotFound
	}
	r := classRow(c)
	var row classRecord
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`UPDATE classes SET
		course_id = ?, bimester_id = ?, professor_id = ?, group_number = ?, updated_at = ?
		WHERE id = ? RETURNING `+classColumns),
		r.CourseID, r.BimesterID, r.ProfessorID, r.GroupNumber, r.UpdatedAt, r.ID)
	if err != nil {
		if uniqueConstraint(err) != "" {
			return class.Class{}, class.ErrExists
		}
		return class.Class{}, trapNoRows(err, class.ErrNotFound, "updating class")
	}
	return row.class(), nil
}

func (repo *classRepository) ClassInUse(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var inUse bool
	err := repo.db.GetContext(ctx, &inUse, repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM enrollments WHERE class_id = ?)"), id)
	return inUse, errors.Wrap(err, "checking class references")
}

func (repo *classRepository) DeleteClass(ctx context.Context, id string) error {
	if !validID(id) {
		return class.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM classes WHERE id = ?"), id)
	return deleted(res, err, class.ErrNotFound, class.ErrInUse, "deleting class")
}

// classRecord is a classes row. The professor is nulled when the user is deleted.
type classRecord struct {
	ID          string      `db:"id"`
	CourseID    string      `db:"course_id"`
	BimesterID  string      `db:"bimester_id"`
	ProfessorID null.String `db:"professor_id"`
	GroupNumber string      `db:"group_number"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func classRow(c class.Class) classRecord {
	return classRecord{
		ID: c.ID, CourseID: c.CourseID, BimesterID: c.BimesterID,
		ProfessorID: null.NewString(c.ProfessorID, c.ProfessorID != ""),
		GroupNumber: c.GroupNumber,
		CreatedAt:   c.CreatedAt.UTC(), UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (r classRecord) class() class.Class {
	return class.Class{
		ID: r.ID, CourseID: r.CourseID, BimesterID: r.BimesterID,
		ProfessorID: r.ProfessorID.String,
		GroupNumber: r.GroupNumber,
		CreatedAt:   r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}
