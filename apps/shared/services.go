// Package shared assembles what every binary needs: validation, repositories and domain services.
package shared

import (
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
	"github.com/cpmappstudio/alef-university-sub001/core/grading"
	"github.com/cpmappstudio/alef-university-sub001/core/importer"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
	"github.com/cpmappstudio/alef-university-sub001/storage/database"
	dummydb "github.com/cpmappstudio/alef-university-sub001/storage/database/dummy"
	boiledrepos "github.com/cpmappstudio/alef-university-sub001/storage/database/sqlboiler"
	sqlxrepos "github.com/cpmappstudio/alef-university-sub001/storage/database/sqlx"
)

type Repositories struct {
	Users       user.Repository
	Programs    program.Repository
	Courses     course.Repository
	Bimesters   bimester.Repository
	Classes     class.Repository
	Enrollments enrollment.Repository

	close func() error
}

// Close releases the underlying database, if any.
func (r Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func NewMemoryRepositories(db *dummydb.DB) Repositories {
	return Repositories{
		Users:       dummydb.NewUserRepository(db),
		Programs:    dummydb.NewProgramRepository(db),
		Courses:     dummydb.NewCourseRepository(db),
		Bimesters:   dummydb.NewBimesterRepository(db),
		Classes:     dummydb.NewClassRepository(db),
		Enrollments: dummydb.NewEnrollmentRepository(db),
	}
}

func NewPostgresRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Users:       boiledrepos.NewUserRepository(db),
		Programs:    sqlxrepos.NewProgramRepository(db),
		Courses:     sqlxrepos.NewCourseRepository(db),
		Bimesters:   sqlxrepos.NewBimesterRepository(db),
		Classes:     sqlxrepos.NewClassRepository(db),
		Enrollments: sqlxrepos.NewEnrollmentRepository(db),
		close:       db.Close,
	}
}

// OpenRepositories opens the repositories of the configured database engine.
func OpenRepositories(conf *core.Config) (Repositories, error) {
	if conf.Database.Engine == "memory" {
		db, err := dummydb.Open()
		if err != nil {
			return Repositories{}, errors.Wrap(err, "opening in-memory database")
		}
		return NewMemoryRepositories(db), nil
	}
	db, err := database.Open(conf)
	if err != nil {
		return Repositories{}, errors.Wrap(err, "opening database")
	}
	return NewPostgresRepositories(sqlx.NewDb(db, "postgres")), nil
}

type Services struct {
	Users       *user.Service
	Programs    *program.Service
	Courses     *course.Service
	Bimesters   *bimester.Service
	Classes     *class.Service
	Enrollments *enrollment.Service
	Importer    *importer.Service
}

func NewServices(
	repos Repositories,
	scale grading.Scale,
	conf *core.Config,
	mailSvc core.EmailService,
	logger core.Logger,
	clock core.Clock,
) (*Services, error) {
	svcs := &Services{
		Users:     user.NewService(repos.Users, clock),
		Programs:  program.NewService(repos.Programs, clock),
		Bimesters: bimester.NewService(repos.Bimesters, clock),
	}
	svcs.Courses = course.NewService(repos.Courses, svcs.Programs, clock)
	svcs.Classes = class.NewService(repos.Classes, svcs.Courses, svcs.Bimesters, svcs.Users, clock)
	svcs.Enrollments = enrollment.NewService(repos.Enrollments, svcs.Classes, svcs.Courses, svcs.Bimesters, svcs.Users, scale, clock)

	imp, err := importer.NewService(
		importer.Config{MaxFileSize: conf.Import.MaxFileSize, CacheTTL: conf.Import.CacheTTL},
		svcs.Programs, svcs.Courses, svcs.Bimesters, svcs.Users, svcs.Classes, svcs.Enrollments,
		mailSvc, logger, clock,
	)
	if err != nil {
		return nil, err
	}
	svcs.Importer = imp
	return svcs, nil
}

// LoadScale returns the grade scale of conf.Grading.ScaleFile, or the default one when unset.
func LoadScale(conf *core.Config) (grading.Scale, error) {
	if conf.Grading.ScaleFile == "" {
		return grading.DefaultScale(), nil
	}
	f, err := os.Open(conf.Grading.ScaleFile)
	if err != nil {
		return grading.Scale{}, errors.Wrap(err, "opening grade scale")
	}
	defer func() { _ = f.Close() }()
	return grading.LoadScale(f)
}
