package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/cpmappstudio/alef-university-sub001/apps/shared"
	"github.com/cpmappstudio/alef-university-sub001/core"
	emailsvc "github.com/cpmappstudio/alef-university-sub001/services/email"
	logsvc "github.com/cpmappstudio/alef-university-sub001/services/logger"
	"github.com/cpmappstudio/alef-university-sub001/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(conf)
	core.ParseEmailTemplates(conf, logger)

	var db *sql.DB
	var repos shared.Repositories
	var err error
	if conf.Database.Engine == "memory" {
		repos, err = shared.OpenRepositories(conf)
	} else {
		if db, err = database.Open(conf); err == nil {
			repos = shared.NewPostgresRepositories(sqlx.NewDb(db, "postgres"))
		}
	}
	errAndDie(logger, err)
	defer func() { _ = repos.Close() }()

	scale, err := shared.LoadScale(conf)
	errAndDie(logger, err)
	svcs, err := shared.NewServices(repos, scale, conf, emailsvc.NewService(conf, logger), logger, core.SystemClock)
	errAndDie(logger, err)
	validate, _ := shared.NewValidator()

	// start CLI
	cli := commandLine{
		db:       db,
		svcs:     svcs,
		validate: validate,
		scale:    scale,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("admin: %v", err), err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
