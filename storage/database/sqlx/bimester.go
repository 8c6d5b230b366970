package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
)

const bimesterColumns = "id, name, start_date, end_date, grade_deadline, created_at, updated_at"

type bimesterRepository struct {
	db *sqlx.DB
}

var _ bimester.Repository = (*bimesterRepository)(nil) // interface compliance check

func NewBimesterRepository(db *sqlx.DB) bimester.Repository {
	return &bimesterRepository{db: db}
}

func (repo *bimesterRepository) CheckNameUniqueness(ctx context.Context, name, excludeID string) error {
	w := &where{}
	w.add("LOWER(name) = LOWER(?)", name)
	if validID(excludeID) {
		w.add("id <> ?", excludeID)
	}
	var exists bool
	q := repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM bimesters" + w.String() + ")")
	if err := repo.db.GetContext(ctx, &exists, q, w.args...); err != nil {
		return errors.Wrap(err, "checking bimester name uniqueness")
	}
	if exists {
		return bimester.ErrNameExists
	}
	return nil
}

func (repo *bimesterRepository) CreateBimester(ctx context.Context, b bimester.Bimester) (bimester.Bimester, error) {
	b.ID = newID()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO bimesters (`+bimesterColumns+`)
		VALUES (:id, :name, :start_date, :end_date, :grade_deadline, :created_at, :updated_at)`, bimesterRow(b))
	if err != nil {
		if uniqueConstraint(err) != "" {
			return bimester.Bimester{}, bimester.ErrNameExists
		}
		return bimester.Bimester{}, errors.Wrap(err, "inserting bimester")
	}
	return b, nil
}

func (repo *bimesterRepository) QueryBimesters(ctx context.Context, filter bimester.QueryFilter, ordering ...core.DBOrdering) ([]bimester.Bimester, error) {
	w := &where{}
	if filter.Search != "" {
		w.add("LOWER(name) LIKE LOWER(?)", contains(filter.Search))
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "start_date"}}
	}

	var rows []bimesterRecord
	q := repo.db.Rebind("SELECT " + bimesterColumns + " FROM bimesters" + w.String() + orderBy(ordering, "name ASC"))
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying bimesters")
	}
	bimesters := make([]bimester.Bimester, 0, len(rows))
	for _, r := range rows {
		bimesters = append(bimesters, r.bimester())
	}
	return bimesters, nil
}

func (repo *bimesterRepository) GetBimester(ctx context.Context, filter bimester.GetFilter) (bimester.Bimester, error) {
	var (
		row bimesterRecord
		err error
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return bimester.Bimester{}, bimester.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+bimesterColumns+" FROM bimesters WHERE id = ?"), filter.ID)
	case filter.Name != "":
		err = repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+bimesterColumns+" FROM bimesters WHERE LOWER(name) = LOWER(?)"), filter.Name)
	default:
		return bimester.Bimester{}, bimester.ErrNotFound
	}
	if err != nil {
		return bimester.Bimester{}, trapNoRows(err, bimester.ErrNotFound, "getting bimester")
	}
	return row.bimester(), nil
}

func (repo *bimesterRepository) UpdateBimester(ctx context.Context, b bimester.Bimester) (bimester.Bimester, error) {
	if !validID(b.ID) {
		return bimester.Bimester{}, bimester.ErrNotFound
	}
	var row bimesterRecord
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`UPDATE bimesters SET
		name = ?, start_date = ?, end_date = ?, grade_deadline = ?, updated_at = ?
		WHERE id = ? RETURNING `+bimesterColumns),
		b.Name, b.StartDate.UTC(), b.EndDate.UTC(), b.GradeDeadline.UTC(), b.UpdatedAt.UTC(), b.ID)
	if err != nil {
		if uniqueConstraint(err) != "" {
			return bimester.Bimester{}, bimester.ErrNameExists
		}
		return bimester.Bimester{}, trapNoRows(err, bimester.ErrNotFound, "updating bimester")
	}
	return row.bimester(), nil
}

func (repo *bimesterRepository) BimesterInUse(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var inUse bool
	err := repo.db.GetContext(ctx, &inUse, repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM classes WHERE bimester_id = ?)"), id)
	return inUse, errors.Wrap(err, "checking bimester references")
}

func (repo *bimesterRepository) DeleteBimester(ctx context.Context, id string) error {
	if !validID(id) {
		return bimester.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM bimesters WHERE id = ?"), id)
	return deleted(res, err, bimester.ErrNotFound, bimester.ErrInUse, "deleting bimester")
}

type bimesterRecord struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	StartDate     time.Time `db:"start_date"`
	EndDate       time.Time `db:"end_date"`
	GradeDeadline time.Time `db:"grade_deadline"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func bimesterRow(b bimester.Bimester) bimesterRecord {
	return bimesterRecord{
		ID: b.ID, Name: b.Name,
		StartDate: b.StartDate.UTC(), EndDate: b.EndDate.UTC(), GradeDeadline: b.GradeDeadline.UTC(),
		CreatedAt: b.CreatedAt.UTC(), UpdatedAt: b.UpdatedAt.UTC(),
	}
}

func (r bimesterRecord) bimester() bimester.Bimester {
	return bimester.Bimester{
		ID: r.ID, Name: r.Name,
		StartDate: r.StartDate.UTC(), EndDate: r.EndDate.UTC(), GradeDeadline: r.GradeDeadline.UTC(),
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}
