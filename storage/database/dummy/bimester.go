package dummydb

import (
	"context"
	"strings"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
)

type bimesterRepository struct {
	db *DB
}

var _ bimester.Repository = (*bimesterRepository)(nil) // interface compliance check

func NewBimesterRepository(db *DB) bimester.Repository {
	return &bimesterRepository{db: db}
}

func (repo *bimesterRepository) CheckNameUniqueness(_ context.Context, name, excludeID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, b := range repo.db.bimesters {
		if b.ID != excludeID && strings.EqualFold(b.Name, name) {
			return bimester.ErrNameExists
		}
	}
	return nil
}

func (repo *bimesterRepository) CreateBimester(_ context.Context, b bimester.Bimester) (bimester.Bimester, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	b.ID = newID()
	repo.db.bimesters[b.ID] = &b
	return b, nil
}

func (repo *bimesterRepository) QueryBimesters(_ context.Context, filter bimester.QueryFilter, ordering ...core.DBOrdering) ([]bimester.Bimester, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	bimesters := make([]bimester.Bimester, 0, len(repo.db.bimesters))
	for _, b := range repo.db.bimesters {
		if search != "" && !strings.Contains(strings.ToLower(b.Name), search) {
			continue
		}
		bimesters = append(bimesters, *b)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "start_date", Ascending: false}}
	}
	orderBy(len(bimesters), func(i, j int) { bimesters[i], bimesters[j] = bimesters[j], bimesters[i] }, ordering, "name",
		func(field string, i, j int) (int, bool) {
			a, b := bimesters[i], bimesters[j]
			switch field {
			case "name":
				return compareStrings(a.Name, b.Name), true
			case "start_date":
				return compareTimes(a.StartDate, b.StartDate), true
			case "end_date":
				return compareTimes(a.EndDate, b.EndDate), true
			case "grade_deadline":
				return compareTimes(a.GradeDeadline, b.GradeDeadline), true
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt), true
			}
			return 0, false
		})
	return bimesters, nil
}

func (repo *bimesterRepository) GetBimester(_ context.Context, filter bimester.GetFilter) (bimester.Bimester, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if b, ok := repo.db.bimesters[filter.ID]; ok {
			return *b, nil
		}
		return bimester.Bimester{}, bimester.ErrNotFound
	}
	for _, b := range repo.db.bimesters {
		if filter.Name != "" && strings.EqualFold(b.Name, filter.Name) {
			return *b, nil
		}
	}
	return bimester.Bimester{}, bimester.ErrNotFound
}

func (repo *bimesterRepository) UpdateBimester(_ context.Context, b bimester.Bimester) (bimester.Bimester, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.bimesters[b.ID]
	if !ok {
		return bimester.Bimester{}, bimester.ErrNotFound
	}
	b.CreatedAt = orig.CreatedAt
	repo.db.bimesters[b.ID] = &b
	return b, nil
}

func (repo *bimesterRepository) BimesterInUse(_ context.Context, id string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.classes {
		if c.BimesterID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *bimesterRepository) DeleteBimester(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.bimesters[id]; !ok {
		return bimester.ErrNotFound
	}
	delete(repo.db.bimesters, id)
	return nil
}
