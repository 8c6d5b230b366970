package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
)

const enrollmentColumns = "id, class_id, student_id, percentage_grade, letter_grade, grade_points, created_at, updated_at"

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	e.ID = newID()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO enrollments (`+enrollmentColumns+`)
		VALUES (:id, :class_id, :student_id, :percentage_grade, :letter_grade, :grade_points, :created_at, :updated_at)`,
		enrollmentRow(e))
	if err != nil {
		if uniqueConstraint(err) != "" {
			return enrollment.Enrollment{}, enrollment.ErrExists
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter, ordering ...core.DBOrdering) ([]enrollment.Enrollment, error) {
	w := &where{}
	for _, f := range []struct{ column, id string }{
		{"class_id", filter.ClassID},
		{"student_id", filter.StudentID},
	} {
		if f.id == "" {
			continue
		}
		if !validID(f.id) {
			return []enrollment.Enrollment{}, nil
		}
		w.add(f.column+" = ?", f.id)
	}

	// ungraded enrollments sort last whatever the direction
	list := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if ord.Field == "percentage_grade" {
			ord.Field = "percentage_grade IS NULL, percentage_grade"
		}
		list = append(list, ord)
	}

	var rows []enrollmentRecord
	q := repo.db.Rebind("SELECT " + enrollmentColumns + " FROM enrollments" + w.String() + orderBy(list, "created_at ASC"))
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, r.enrollment())
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, filter enrollment.GetFilter) (enrollment.Enrollment, error) {
	var (
		row enrollmentRecord
		err error
	)
	if filter.ID != "" {
		if !validID(filter.ID) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+enrollmentColumns+" FROM enrollments WHERE id = ?"), filter.ID)
	} else {
		if !validID(filter.ClassID) || !validID(filter.StudentID) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+enrollmentColumns+
			" FROM enrollments WHERE class_id = ? AND student_id = ?"), filter.ClassID, filter.StudentID)
	}
	if err != nil {
		return enrollment.Enrollment{}, trapNoRows(err, enrollment.ErrNotFound, "getting enrollment")
	}
	return row.enrollment(), nil
}

// UpdateEnrollment only writes the grade: the class and the student of an enrollment never change.
func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	if !validID(e.ID) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	r := enrollmentRow(e)
	var row enrollmentRecord
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`UPDATE enrollments SET
		percentage_grade = ?, letter_grade = ?, grade_points = ?, updated_at = ?
		WHERE id = ? RETURNING `+enrollmentColumns),
		r.PercentageGrade, r.LetterGrade, r.GradePoints, r.UpdatedAt, r.ID)
	if err != nil {
		return enrollment.Enrollment{}, trapNoRows(err, enrollment.ErrNotFound, "updating enrollment")
	}
	return row.enrollment(), nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	if !validID(id) {
		return enrollment.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM enrollments WHERE id = ?"), id)
	return deleted(res, err, enrollment.ErrNotFound, nil, "deleting enrollment")
}

type enrollmentRecord struct {
	ID              string       `db:"id"`
	ClassID         string       `db:"class_id"`
	StudentID       string       `db:"student_id"`
	PercentageGrade null.Float64 `db:"percentage_grade"`
	LetterGrade     null.String  `db:"letter_grade"`
	GradePoints     null.Float64 `db:"grade_points"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

func enrollmentRow(e enrollment.Enrollment) enrollmentRecord {
	return enrollmentRecord{
		ID: e.ID, ClassID: e.ClassID, StudentID: e.StudentID,
		PercentageGrade: null.Float64FromPtr(e.PercentageGrade),
		LetterGrade:     null.NewString(e.LetterGrade, e.LetterGrade != ""),
		GradePoints:     null.Float64FromPtr(e.GradePoints),
		CreatedAt:       e.CreatedAt.UTC(), UpdatedAt: e.UpdatedAt.UTC(),
	}
}

func (r enrollmentRecord) enrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID: r.ID, ClassID: r.ClassID, StudentID: r.StudentID,
		PercentageGrade: r.PercentageGrade.Ptr(),
		LetterGrade:     r.LetterGrade.String,
		GradePoints:     r.GradePoints.Ptr(),
		CreatedAt:       r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}
