package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
)

const programColumns = `id, code, language, name_es, name_en, description_es, description_en,
	is_active, search_key, created_at, updated_at`

type programRepository struct {
	db *sqlx.DB
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *sqlx.DB) program.Repository {
	return &programRepository{db: db}
}

func (repo *programRepository) CheckCodeUniqueness(ctx context.Context, code, excludeID string) error {
	w := &where{}
	w.add("code = ?", code)
	if validID(excludeID) {
		w.add("id <> ?", excludeID)
	}
	var exists bool
	q := repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM programs" + w.String() + ")")
	if err := repo.db.GetContext(ctx, &exists, q, w.args...); err != nil {
		return errors.Wrap(err, "checking program code uniqueness")
	}
	if exists {
		return program.ErrCodeExists
	}
	return nil
}

func (repo *programRepository) CreateProgram(ctx context.Context, p program.Program) (program.Program, error) {
	p.ID = newID()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO programs (`+programColumns+`) VALUES (
		:id, :code, :language, :name_es, :name_en, :description_es, :description_en,
		:is_active, :search_key, :created_at, :updated_at)`, programRow(p))
	if err != nil {
		if uniqueConstraint(err) != "" {
			return program.Program{}, program.ErrCodeExists
		}
		return program.Program{}, errors.Wrap(err, "inserting program")
	}
	return p, nil
}

func (repo *programRepository) QueryPrograms(ctx context.Context, filter program.QueryFilter, ordering ...core.DBOrdering) ([]program.Program, error) {
	w := &where{}
	if filter.Search != "" {
		w.add("search_key LIKE ?", contains(filter.Search))
	}
	if filter.Language != "" {
		w.add("language = ?", filter.Language)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	var rows []programRecord
	q := repo.db.Rebind("SELECT " + programColumns + " FROM programs" + w.String() + orderBy(ordering, "code ASC"))
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}
	programs := make([]program.Program, 0, len(rows))
	for _, r := range rows {
		programs = append(programs, r.program())
	}
	return programs, nil
}

func (repo *programRepository) GetProgram(ctx context.Context, filter program.GetFilter) (program.Program, error) {
	var (
		row programRecord
		err error
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return program.Program{}, program.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+programColumns+" FROM programs WHERE id = ?"), filter.ID)
	case filter.Code != "":
		err = repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+programColumns+" FROM programs WHERE code = ?"), filter.Code)
	default:
		return program.Program{}, program.ErrNotFound
	}
	if err != nil {
		return program.Program{}, trapNoRows(err, program.ErrNotFound, "getting program")
	}
	return row.program(), nil
}

func (repo *programRepository) UpdateProgram(ctx context.Context, p program.Program) (program.Program, error) {
	if !validID(p.ID) {
		return program.Program{}, program.ErrNotFound
	}
	var row programRecord
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`UPDATE programs SET
		code = ?, language = ?, name_es = ?, name_en = ?, description_es = ?, description_en = ?,
		is_active = ?, search_key = ?, updated_at = ?
		WHERE id = ? RETURNING `+programColumns),
		p.Code, p.Language, p.NameEs, p.NameEn, p.DescriptionEs, p.DescriptionEn,
		p.IsActive, p.SearchKey, p.UpdatedAt.UTC(), p.ID)
	if err != nil {
		if uniqueConstraint(err) != "" {
			return program.Program{}, program.ErrCodeExists
		}
		return program.Program{}, trapNoRows(err, program.ErrNotFound, "updating program")
	}
	return row.program(), nil
}

func (repo *programRepository) ProgramInUse(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var inUse bool
	err := repo.db.GetContext(ctx, &inUse, repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM courses WHERE program_id = ?)"), id)
	return inUse, errors.Wrap(err, "checking program references")
}

func (repo *programRepository) DeleteProgram(ctx context.Context, id string) error {
	if !validID(id) {
		return program.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM programs WHERE id = ?"), id)
	return deleted(res, err, program.ErrNotFound, program.ErrInUse, "deleting program")
}

// programRecord is a programs row.
type programRecord struct {
	ID            string    `db:"id"`
	Code          string    `db:"code"`
	Language      string    `db:"language"`
	NameEs        string    `db:"name_es"`
	NameEn        string    `db:"name_en"`
	DescriptionEs string    `db:"description_es"`
	DescriptionEn string    `db:"description_en"`
	IsActive      bool      `db:"is_active"`
	SearchKey     string    `db:"search_key"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func programRow(p program.Program) programRecord {
	return programRecord{
		ID: p.ID, Code: p.Code, Language: string(p.Language),
		NameEs: p.NameEs, NameEn: p.NameEn, DescriptionEs: p.DescriptionEs, DescriptionEn: p.DescriptionEn,
		IsActive: p.IsActive, SearchKey: p.SearchKey,
		CreatedAt: p.CreatedAt.UTC(), UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func (r programRecord) program() program.Program {
	return program.Program{
		ID: r.ID, Code: r.Code, Language: bilingual.Language(r.Language),
		NameEs: r.NameEs, NameEn: r.NameEn, DescriptionEs: r.DescriptionEs, DescriptionEn: r.DescriptionEn,
		IsActive: r.IsActive, SearchKey: r.SearchKey,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}
