package main

import (
	"database/sql"
	"errors"

	"github.com/trezcool/goose"

	appfs "github.com/cpmappstudio/alef-university-sub001/fs"
)

var (
	// mockable
	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		return goose.RunFS(command, db, appfs.FS, "migrations", args...)
	}

	errNoDatabase = errors.New("migrations need the postgres engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, arguments...)
}
