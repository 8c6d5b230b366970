// Package sqlxrepos implements the catalog and enrollment repositories on Postgres with sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// uniqueConstraint returns the name of the unique constraint err violates, "" if it is not a unique violation.
func uniqueConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

// deleted checks the outcome of a DELETE by id: no row is notFound, a row still referenced is inUse.
func deleted(res sql.Result, err error, notFound, inUse error, msg string) error {
	if err != nil {
		if inUse != nil && isForeignKeyViolation(err) {
			return inUse
		}
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// trapNoRows maps sql.ErrNoRows to notFound.
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// validID reports whether id can be looked up: ids are UUIDs and Postgres rejects anything else.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	return uuid.NewString()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains builds the LIKE pattern of a substring match.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// where accumulates AND-ed conditions with their positional args.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond, where every "?" is a placeholder for the next arg.
func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders ordering, which the services already restricted to known fields, followed by tieBreak.
func orderBy(ordering []core.DBOrdering, tieBreak ...string) string {
	list := make([]string, 0, len(ordering)+len(tieBreak))
	for _, ord := range ordering {
		list = append(list, ord.String())
	}
	list = append(list, tieBreak...)
	if len(list) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(list, ", ")
}
