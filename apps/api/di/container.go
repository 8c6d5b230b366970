// Package di wires the API binary with dig.
package di

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/cpmappstudio/alef-university-sub001/apps/api/echo"
	"github.com/cpmappstudio/alef-university-sub001/apps/shared"
	"github.com/cpmappstudio/alef-university-sub001/core"
	blobsvc "github.com/cpmappstudio/alef-university-sub001/services/blob"
	emailsvc "github.com/cpmappstudio/alef-university-sub001/services/email"
	logsvc "github.com/cpmappstudio/alef-university-sub001/services/logger"
	queuesvc "github.com/cpmappstudio/alef-university-sub001/services/queue"
	workersvc "github.com/cpmappstudio/alef-university-sub001/services/worker"
	"github.com/cpmappstudio/alef-university-sub001/storage/database"
)

// Validation groups the validator with its translator, both built at once.
type Validation struct {
	dig.Out
	Validate   *validator.Validate
	Translator ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(conf)
}

func newClock() core.Clock {
	return core.SystemClock
}

func newValidation() Validation {
	validate, translator := shared.NewValidator()
	return Validation{Validate: validate, Translator: translator}
}

// newRepositories opens the configured database. Postgres is created and migrated up first.
func newRepositories(conf *core.Config) (shared.Repositories, error) {
	if conf.Database.Engine == "memory" {
		return shared.OpenRepositories(conf)
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		return shared.Repositories{}, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return shared.Repositories{}, err
	}
	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return shared.Repositories{}, err
	}
	return shared.NewPostgresRepositories(sqlx.NewDb(db, "postgres")), nil
}

func newImportRunner(
	queue queuesvc.Queue,
	blobs core.BlobStore,
	svcs *shared.Services,
	conf *core.Config,
	logger core.Logger,
) (*workersvc.ImportRunner, error) {
	return workersvc.NewImportRunner(queue, blobs, svcs.Importer, conf.Import.Workers, logger)
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Services   *shared.Services
	Scheduler  *workersvc.Scheduler
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Services:   p.Services,
		Imports:    p.Scheduler,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newClock))
	must(c.Provide(newValidation))
	must(c.Provide(newRepositories))
	must(c.Provide(shared.LoadScale))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(shared.NewServices))
	must(c.Provide(blobsvc.NewStore))
	must(c.Provide(queuesvc.NewQueue))
	must(c.Provide(workersvc.NewScheduler))
	must(c.Provide(newImportRunner))
	must(c.Provide(newServer))

	return c
}

// RunImports consumes the in-process queue until ctx is done, when no external worker does.
func RunImports(ctx context.Context, conf *core.Config, runner *workersvc.ImportRunner, logger core.Logger) {
	if conf.RedisEnabled() {
		return
	}
	go func() {
		if err := runner.Run(ctx); err != nil {
			logger.Error(fmt.Sprintf("import runner stopped: %v", err), err)
		}
	}()
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
