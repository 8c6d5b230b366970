// Package database opens, creates and migrates the Postgres database.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/cpmappstudio/alef-university-sub001/core"
	appfs "github.com/cpmappstudio/alef-university-sub001/fs"
)

const (
	pingAttempts = 30
	pingStep     = 100 * time.Millisecond
)

// dsn is the connection URL of dbName, as the admin role when asAdmin and one is configured.
func dsn(conf *core.Config, dbName string, asAdmin bool) string {
	db := conf.Database
	role := url.UserPassword(db.User, db.Password)
	if asAdmin && db.AdminUser != "" {
		role = url.UserPassword(db.AdminUser, db.AdminPassword)
	}

	q := url.Values{"timezone": {"utc"}, "sslmode": {"require"}}
	if db.DisableTLS {
		q.Set("sslmode", "disable")
	}
	u := url.URL{Scheme: "postgres", User: role, Host: db.Address(), Path: dbName, RawQuery: q.Encode()}
	return u.String()
}

func connect(conf *core.Config, dbName string, asAdmin bool) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn(conf, dbName, asAdmin))
	if err != nil {
		return nil, errors.Wrapf(err, "opening database %q", dbName)
	}
	if err = waitReady(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects to the application database and waits for it to answer.
func Open(conf *core.Config) (*sql.DB, error) {
	return connect(conf, conf.Database.Name, false)
}

// waitReady pings db until it answers, waiting a step longer after each failed attempt.
func waitReady(db *sql.DB) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * pingStep)
	}
	return errors.Wrap(err, "database ping timeout")
}

func exists(db *sql.DB, query, name string) (bool, error) {
	var found bool
	err := db.QueryRow(query, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

// ensureRole creates the application role, allowed to create databases, unless it exists.
func ensureRole(db *sql.DB, conf *core.Config) error {
	name := conf.Database.User
	if name == "" {
		return nil
	}
	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", name)
	if err != nil {
		return errors.Wrap(err, "looking up app role")
	}
	if found {
		return nil
	}
	stmt := "CREATE ROLE " + pq.QuoteIdentifier(name) + " LOGIN CREATEDB PASSWORD " + pq.QuoteLiteral(conf.Database.Password)
	_, err = db.Exec(stmt)
	return errors.Wrap(err, "creating app role")
}

func ensureDatabase(db *sql.DB, name string) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", name)
	if err != nil {
		return errors.Wrap(err, "looking up database")
	}
	if found {
		return nil
	}
	_, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name))
	return errors.Wrap(err, "creating database")
}

// CreateIfNotExist creates the application role as admin, then the application database as that role.
func CreateIfNotExist(conf *core.Config) error {
	admin, err := connect(conf, "postgres", true)
	if err != nil {
		return err
	}
	err = ensureRole(admin, conf)
	_ = admin.Close()
	if err != nil {
		return err
	}

	owner, err := connect(conf, "postgres", false)
	if err != nil {
		return err
	}
	defer func() { _ = owner.Close() }()
	return ensureDatabase(owner, conf.Database.Name)
}

// Migrate applies the embedded migrations. command is a goose command: up, down, redo or status.
func Migrate(db *sql.DB, command string) error {
	if command == "" {
		command = "up"
	}
	if err := goose.RunFS(command, db, appfs.FS, "migrations"); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}
