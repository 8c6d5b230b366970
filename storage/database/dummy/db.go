// Package dummydb keeps every table in memory. It backs the tests and DB_ENGINE=memory.
package dummydb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

// DB holds all tables behind one lock so that reference checks see a consistent state.
type DB struct {
	sync.RWMutex
	users       map[string]*user.User
	programs    map[string]*program.Program
	courses     map[string]*course.Course
	bimesters   map[string]*bimester.Bimester
	classes     map[string]*class.Class
	enrollments map[string]*enrollment.Enrollment
}

func Open() (*DB, error) {
	db := &DB{}
	db.reset()
	return db, nil
}

func (db *DB) reset() {
	db.users = make(map[string]*user.User)
	db.programs = make(map[string]*program.Program)
	db.courses = make(map[string]*course.Course)
	db.bimesters = make(map[string]*bimester.Bimester)
	db.classes = make(map[string]*class.Class)
	db.enrollments = make(map[string]*enrollment.Enrollment)
}

// Truncate empties every table.
func (db *DB) Truncate() {
	db.Lock()
	defer db.Unlock()
	db.reset()
}

func newID() string {
	return uuid.NewString()
}

// comparer compares the items at i and j on a field, returning <0, 0 or >0. ok is false for unknown fields.
type comparer func(field string, i, j int) (cmp int, ok bool)

// orderBy sorts n items by ordering, then by the tie-breaking field.
func orderBy(n int, swap func(i, j int), ordering []core.DBOrdering, tieBreak string, compare comparer) {
	ordering = append(append([]core.DBOrdering(nil), ordering...), core.DBOrdering{Field: tieBreak, Ascending: true})
	sort.Sort(sorter{n: n, swap: swap, less: func(i, j int) bool {
		for _, ord := range ordering {
			c, ok := compare(ord.Field, i, j)
			if !ok || c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	}})
}

type sorter struct {
	n    int
	swap func(i, j int)
	less func(i, j int) bool
}

func (s sorter) Len() int           { return s.n }
func (s sorter) Swap(i, j int)      { s.swap(i, j) }
func (s sorter) Less(i, j int) bool { return s.less(i, j) }

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloatPtrs(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}
