package dummydb

import (
	"context"
	"strings"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
)

type programRepository struct {
	db *DB
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *DB) program.Repository {
	return &programRepository{db: db}
}

func (repo *programRepository) CheckCodeUniqueness(_ context.Context, code, excludeID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.programs {
		if p.ID != excludeID && p.Code == code {
			return program.ErrCodeExists
		}
	}
	return nil
}

func (repo *programRepository) CreateProgram(_ context.Context, p program.Program) (program.Program, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = newID()
	repo.db.programs[p.ID] = &p
	return p, nil
}

func (repo *programRepository) QueryPrograms(_ context.Context, filter program.QueryFilter, ordering ...core.DBOrdering) ([]program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	programs := make([]program.Program, 0, len(repo.db.programs))
	for _, p := range repo.db.programs {
		if filter.Search != "" && !strings.Contains(p.SearchKey, filter.Search) {
			continue
		}
		if filter.Language != "" && p.Language != filter.Language {
			continue
		}
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		programs = append(programs, *p)
	}

	orderBy(len(programs), func(i, j int) { programs[i], programs[j] = programs[j], programs[i] }, ordering, "code",
		func(field string, i, j int) (int, bool) {
			a, b := programs[i], programs[j]
			switch field {
			case "code":
				return compareStrings(a.Code, b.Code), true
			case "name_es":
				return compareStrings(a.NameEs, b.NameEs), true
			case "name_en":
				return compareStrings(a.NameEn, b.NameEn), true
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt), true
			}
			return 0, false
		})
	return programs, nil
}

func (repo *programRepository) GetProgram(_ context.Context, filter program.GetFilter) (program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.programs[filter.ID]; ok {
			return *p, nil
		}
		return program.Program{}, program.ErrNotFound
	}
	for _, p := range repo.db.programs {
		if filter.Code != "" && p.Code == filter.Code {
			return *p, nil
		}
	}
	return program.Program{}, program.ErrNotFound
}

func (repo *programRepository) UpdateProgram(_ context.Context, p program.Program) (program.Program, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.programs[p.ID]
	if !ok {
		return program.Program{}, program.ErrNotFound
	}
	p.CreatedAt = orig.CreatedAt
	repo.db.programs[p.ID] = &p
	return p, nil
}

func (repo *programRepository) ProgramInUse(_ context.Context, id string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.courses {
		if c.ProgramID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *programRepository) DeleteProgram(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.programs[id]; !ok {
		return program.ErrNotFound
	}
	delete(repo.db.programs, id)
	return nil
}
