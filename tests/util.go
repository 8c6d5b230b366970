// Package testutil wires the whole domain over the in-memory database for tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/apps/shared"
	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/grading"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
	emailsvc "github.com/cpmappstudio/alef-university-sub001/services/email"
	logsvc "github.com/cpmappstudio/alef-university-sub001/services/logger"
	dummydb "github.com/cpmappstudio/alef-university-sub001/storage/database/dummy"
)

// Now is the default time of a Fixture clock.
var Now = time.Date(2021, time.March, 15, 12, 0, 0, 0, time.UTC)

// Clock is a settable core.Clock.
type Clock struct {
	mu  sync.RWMutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type Fixture struct {
	Conf       *core.Config
	DB         *dummydb.DB
	Repos      shared.Repositories
	Services   *shared.Services
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleService
	Logger     core.Logger
	Clock      *Clock
}

func NewConfig() *core.Config {
	conf := &core.Config{
		AppName:         "Alef University",
		Env:             "TEST",
		Debug:           true,
		TestMode:        true,
		SecretKey:       "test-secret",
		DefaultLocale:   "es",
		FrontendBaseURL: "http://localhost:3000",
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 30 * time.Minute
	conf.Database.Engine = "memory"
	conf.Email.DefaultFromName = "Alef University"
	conf.Email.DefaultFromAddress = "noreply@alef.test"
	conf.Log.Level = "debug"
	conf.Log.Format = "json"
	conf.Import.MaxFileSize = 1 << 20
	conf.Import.CacheTTL = time.Minute
	conf.Import.Workers = 2
	return conf
}

// NewFixture returns a fresh domain, with the clock set to Now and the default grade scale.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	conf := NewConfig()
	logger := logsvc.NewRollbarLogger(conf)
	core.ParseEmailTemplates(conf, logger)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	f := &Fixture{
		Conf:   conf,
		DB:     db,
		Repos:  shared.NewMemoryRepositories(db),
		Mail:   emailsvc.NewConsoleServiceMock(conf, logger),
		Logger: logger,
		Clock:  &Clock{now: Now},
	}
	f.Validate, f.Translator = shared.NewValidator()
	f.Services, err = shared.NewServices(f.Repos, grading.DefaultScale(), conf, f.Mail, logger, f.Clock)
	if err != nil {
		t.Fatalf("shared.NewServices() failed: %v", err)
	}
	return f
}

// CreateUser stores a user straight through the repository. The password is only hashed when given.
func (f *Fixture) CreateUser(t *testing.T, role, name, email, code string, pwd ...string) user.User {
	t.Helper()
	now := f.Clock.Now()
	usr := user.User{
		Name:      name,
		Email:     email,
		Code:      user.NormalizeCode(code),
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(pwd) > 0 {
		if err := usr.SetPassword(pwd[0]); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := f.Repos.Users.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (f *Fixture) CreateProgram(t *testing.T, code string, lang bilingual.Language, nameEs, nameEn string) program.Program {
	t.Helper()
	p, err := f.Services.Programs.Create(context.Background(), program.NewProgram{
		Code: code, Language: lang, NameEs: nameEs, NameEn: nameEn,
	})
	if err != nil {
		t.Fatalf("CreateProgram() failed: %v", err)
	}
	return p
}

func (f *Fixture) CreateCourse(t *testing.T, programID, code string, credits int, nameEs, nameEn string) course.Course {
	t.Helper()
	lang := bilingual.Both
	switch {
	case nameEn == "":
		lang = bilingual.Spanish
	case nameEs == "":
		lang = bilingual.English
	}
	c, err := f.Services.Courses.Create(context.Background(), course.NewCourse{
		ProgramID: programID, Code: code, Language: lang, NameEs: nameEs, NameEn: nameEn, Credits: credits,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

// CreateBimester creates a bimester starting at start, lasting 8 weeks, with one week to grade.
func (f *Fixture) CreateBimester(t *testing.T, name string, start time.Time) bimester.Bimester {
	t.Helper()
	end := start.AddDate(0, 0, 56)
	v, err := f.Services.Bimesters.Create(context.Background(), bimester.NewBimester{
		Name: name, StartDate: start, EndDate: end, GradeDeadline: end.AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("CreateBimester() failed: %v", err)
	}
	return v.Bimester
}

func (f *Fixture) CreateClass(t *testing.T, courseID, bimesterID, professorID, group string) class.Class {
	t.Helper()
	c, created, err := f.Services.Classes.FindOrCreate(context.Background(), class.Key{
		CourseID: courseID, BimesterID: bimesterID, GroupNumber: group,
	}, professorID)
	if err != nil || !created {
		t.Fatalf("CreateClass() failed: created=%t, %v", created, err)
	}
	return c
}

// Catalog is a small but complete data set.
type Catalog struct {
	Admin     user.User
	Professor user.User
	Other     user.User // another professor
	Students  []user.User
	Program   program.Program
	Course    course.Course
	Bimester  bimester.Bimester // active at Now
	Past      bimester.Bimester // completed at Now
}

// Seed creates a Catalog. Its program is "01L" with the 3 credit course "CCOU-08";
// its students are 01L-0001..01L-0003.
func (f *Fixture) Seed(t *testing.T) Catalog {
	t.Helper()
	cat := Catalog{
		Admin:     f.CreateUser(t, user.RoleAdmin, "Ada Admin", "admin@alef.test", ""),
		Professor: f.CreateUser(t, user.RoleProfessor, "Pablo Profesor", "prof@alef.test", "P-001"),
		Other:     f.CreateUser(t, user.RoleProfessor, "Olga Otra", "olga@alef.test", "P-002"),
	}
	for i, name := range []string{"Ana", "Beto", "Carla"} {
		code := "01L-000" + string(rune('1'+i))
		cat.Students = append(cat.Students, f.CreateUser(t, user.RoleStudent, name, strings.ToLower(name)+"@alef.test", code))
	}
	cat.Program = f.CreateProgram(t, "01L", bilingual.Both, "Teología", "Theology")
	cat.Course = f.CreateCourse(t, cat.Program.ID, "CCOU-08", 3, "Consejería", "Counseling")
	cat.Bimester = f.CreateBimester(t, "2021 Bimester I", Now.AddDate(0, 0, -14))
	cat.Past = f.CreateBimester(t, "2020 Bimester VI", Now.AddDate(0, 0, -120))
	return cat
}

func Principal(usr user.User) *core.Principal {
	return &core.Principal{UserID: usr.ID, Email: usr.Email, Name: usr.Name, Role: usr.Role}
}

// FieldNames lists the fields a validation error is about.
func FieldNames(err error) []string {
	var fields []string
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			fields = append(fields, fe.Field())
		}
	case *core.ValidationError:
		for _, fe := range e.Fields {
			fields = append(fields, fe.Field)
		}
	}
	return fields
}
