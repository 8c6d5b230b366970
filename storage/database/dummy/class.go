package dummydb

import (
	"context"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

// findByKey must be called with the lock held.
func (repo *classRepository) findByKey(key class.Key) (*class.Class, bool) {
	for _, c := range repo.db.classes {
		if c.Key() == key {
			return c, true
		}
	}
	return nil, false
}

func (repo *classRepository) CreateClass(_ context.Context, c class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.findByKey(c.Key()); ok {
		return class.Class{}, class.ErrExists
	}
	c.ID = newID()
	repo.db.classes[c.ID] = &c
	return c, nil
}

func (repo *classRepository) QueryClasses(_ context.Context, filter class.QueryFilter, ordering ...core.DBOrdering) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]class.Class, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		if filter.CourseID != "" && c.CourseID != filter.CourseID {
			continue
		}
		if filter.BimesterID != "" && c.BimesterID != filter.BimesterID {
			continue
		}
		if filter.ProfessorID != "" && c.ProfessorID != filter.ProfessorID {
			continue
		}
		classes = append(classes, *c)
	}

	orderBy(len(classes), func(i, j int) { classes[i], classes[j] = classes[j], classes[i] }, ordering, "group_number",
		func(field string, i, j int) (int, bool) {
			a, b := classes[i], classes[j]
			switch field {
			case "group_number":
				return compareStrings(a.GroupNumber, b.GroupNumber), true
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt), true
			}
			return 0, false
		})
	return classes, nil
}

func (repo *classRepository) GetClass(_ context.Context, filter class.GetFilter) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if c, ok := repo.db.classes[filter.ID]; ok {
			return *c, nil
		}
		return class.Class{}, class.ErrNotFound
	}
	if c, ok := repo.findByKey(filter.Key); ok {
		return *c, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) UpdateClass(_ context.Context, c class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.classes[c.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	if other, ok := repo.findByKey(c.Key()); ok && other.ID != c.ID {
		return class.Class{}, class.ErrExists
	}
	c.CreatedAt = orig.CreatedAt
	repo.db.classes[c.ID] = &c
	return c, nil
}

func (repo *classRepository) ClassInUse(_ context.Context, id string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.ClassID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return class.ErrNotFound
	}
	delete(repo.db.classes, id)
	return nil
}
