package dummydb

import (
	"context"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) find(classID, studentID string) (*enrollment.Enrollment, bool) {
	for _, e := range repo.db.enrollments {
		if e.ClassID == classID && e.StudentID == studentID {
			return e, true
		}
	}
	return nil, false
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.find(e.ClassID, e.StudentID); ok {
		return enrollment.Enrollment{}, enrollment.ErrExists
	}
	e.ID = newID()
	repo.db.enrollments[e.ID] = copyEnrollment(e)
	return e, nil
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter enrollment.QueryFilter, ordering ...core.DBOrdering) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if filter.ClassID != "" && e.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		enrollments = append(enrollments, *copyEnrollment(*e))
	}

	orderBy(len(enrollments), func(i, j int) { enrollments[i], enrollments[j] = enrollments[j], enrollments[i] }, ordering, "created_at",
		func(field string, i, j int) (int, bool) {
			a, b := enrollments[i], enrollments[j]
			switch field {
			case "percentage_grade":
				return compareFloatPtrs(a.PercentageGrade, b.PercentageGrade), true
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt), true
			}
			return 0, false
		})
	return enrollments, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, filter enrollment.GetFilter) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if e, ok := repo.db.enrollments[filter.ID]; ok {
			return *copyEnrollment(*e), nil
		}
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if e, ok := repo.find(filter.ClassID, filter.StudentID); ok {
		return *copyEnrollment(*e), nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.enrollments[e.ID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	e.ClassID, e.StudentID, e.CreatedAt = orig.ClassID, orig.StudentID, orig.CreatedAt
	repo.db.enrollments[e.ID] = copyEnrollment(e)
	return e, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[id]; !ok {
		return enrollment.ErrNotFound
	}
	delete(repo.db.enrollments, id)
	return nil
}

// copyEnrollment detaches the grade pointers from the caller's.
func copyEnrollment(e enrollment.Enrollment) *enrollment.Enrollment {
	if e.PercentageGrade != nil {
		p := *e.PercentageGrade
		e.PercentageGrade = &p
	}
	if e.GradePoints != nil {
		p := *e.GradePoints
		e.GradePoints = &p
	}
	return &e
}
