package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
)

const courseColumns = `id, program_id, code, language, name_es, name_en, description_es, description_en,
	credits, is_active, search_key, created_at, updated_at`

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, programID, code, excludeID string) error {
	if !validID(programID) {
		return nil
	}
	w := &where{}
	w.add("program_id = ? AND code = ?", programID, code)
	if validID(excludeID) {
		w.add("id <> ?", excludeID)
	}
	var exists bool
	q := repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM courses" + w.String() + ")")
	if err := repo.db.GetContext(ctx, &exists, q, w.args...); err != nil {
		return errors.Wrap(err, "checking course code uniqueness")
	}
	if exists {
		return course.ErrCodeExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = newID()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO courses (`+courseColumns+`) VALUES (
		:id, :program_id, :code, :language, :name_es, :name_en, :description_es, :description_en,
		:credits, :is_active, :search_key, :created_at, :updated_at)`, courseRow(c))
	if err != nil {
		if uniqueConstraint(err) != "" {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	w := &where{}
	if filter.ProgramID != "" {
		if !validID(filter.ProgramID) {
			return []course.Course{}, nil
		}
		w.add("program_id = ?", filter.ProgramID)
	}
	if filter.Search != "" {
		w.add("search_key LIKE ?", contains(filter.Search))
	}
	if filter.Language != "" {
		w.add("language = ?", filter.Language)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	var rows []courseRecord
	q := repo.db.Rebind("SELECT " + courseColumns + " FROM courses" + w.String() + orderBy(ordering, "code ASC"))
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	var (
		row courseRecord
		err error
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return course.Course{}, course.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+courseColumns+" FROM courses WHERE id = ?"), filter.ID)
	case filter.ProgramID != "" && filter.Code != "":
		if !validID(filter.ProgramID) {
			return course.Course{}, course.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row,
			repo.db.Rebind("SELECT "+courseColumns+" FROM courses WHERE program_id = ? AND code = ?"), filter.ProgramID, filter.Code)
	default:
		return course.Course{}, course.ErrNotFound
	}
	if err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "getting course")
	}
	return row.course(), nil
}

// UpdateCourse never moves a course to another program.
func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if !validID(c.ID) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRecord
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`UPDATE courses SET
		code = ?, language = ?, name_es = ?, name_en = ?, description_es = ?, description_en = ?,
		credits = ?, is_active = ?, search_key = ?, updated_at = ?
		WHERE id = ? RETURNING `+courseColumns),
		c.Code, c.Language, c.NameEs, c.NameEn, c.DescriptionEs, c.DescriptionEn,
		c.Credits, c.IsActive, c.SearchKey, c.UpdatedAt.UTC(), c.ID)
	if err != nil {
		if uniqueConstraint(err) != "" {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "updating course")
	}
	return row.course(), nil
}

func (repo *courseRepository) CourseInUse(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var inUse bool
	err := repo.db.GetContext(ctx, &inUse, repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM classes WHERE course_id = ?)"), id)
	return inUse, errors.Wrap(err, "checking course references")
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM courses WHERE id = ?"), id)
	return deleted(res, err, course.ErrNotFound, course.ErrInUse, "deleting course")
}

type courseRecord struct {
	ID            string    `db:"id"`
	ProgramID     string    `db:"program_id"`
	Code          string    `db:"code"`
	Language      string    `db:"language"`
	NameEs        string    `db:"name_es"`
	NameEn        string    `db:"name_en"`
	DescriptionEs string    `db:"description_es"`
	DescriptionEn string    `db:"description_en"`
	Credits       int       `db:"credits"`
	IsActive      bool      `db:"is_active"`
	SearchKey     string    `db:"search_key"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func courseRow(c course.Course) courseRecord {
	return courseRecord{
		ID: c.ID, ProgramID: c.ProgramID, Code: c.Code, Language: string(c.Language),
		NameEs: c.NameEs, NameEn: c.NameEn, DescriptionEs: c.DescriptionEs, DescriptionEn: c.DescriptionEn,
		Credits: c.Credits, IsActive: c.IsActive, SearchKey: c.SearchKey,
		CreatedAt: c.CreatedAt.UTC(), UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (r courseRecord) course() course.Course {
	return course.Course{
		ID: r.ID, ProgramID: r.ProgramID, Code: r.Code, Language: bilingual.Language(r.Language),
		NameEs: r.NameEs, NameEn: r.NameEn, DescriptionEs: r.DescriptionEs, DescriptionEn: r.DescriptionEn,
		Credits: r.Credits, IsActive: r.IsActive, SearchKey: r.SearchKey,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}
