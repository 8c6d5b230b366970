package dummydb

import (
	"context"
	"strings"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CheckCodeUniqueness(_ context.Context, programID, code, excludeID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.courses {
		if c.ID != excludeID && c.ProgramID == programID && c.Code == code {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = newID()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.ProgramID != "" && c.ProgramID != filter.ProgramID {
			continue
		}
		if filter.Search != "" && !strings.Contains(c.SearchKey, filter.Search) {
			continue
		}
		if filter.Language != "" && c.Language != filter.Language {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		courses = append(courses, *c)
	}

	orderBy(len(courses), func(i, j int) { courses[i], courses[j] = courses[j], courses[i] }, ordering, "code",
		func(field string, i, j int) (int, bool) {
			a, b := courses[i], courses[j]
			switch field {
			case "code":
				return compareStrings(a.Code, b.Code), true
			case "name_es":
				return compareStrings(a.NameEs, b.NameEs), true
			case "name_en":
				return compareStrings(a.NameEn, b.NameEn), true
			case "credits":
				return compareInts(a.Credits, b.Credits), true
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt), true
			}
			return 0, false
		})
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, filter course.GetFilter) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if c, ok := repo.db.courses[filter.ID]; ok {
			return *c, nil
		}
		return course.Course{}, course.ErrNotFound
	}
	for _, c := range repo.db.courses {
		if filter.Code != "" && c.ProgramID == filter.ProgramID && c.Code == filter.Code {
			return *c, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.courses[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	c.ProgramID, c.CreatedAt = orig.ProgramID, orig.CreatedAt
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) CourseInUse(_ context.Context, id string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.classes {
		if c.CourseID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	return nil
}
