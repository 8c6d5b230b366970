// Package importer turns enrollment files into classes and graded enrollments.
//
// A run goes through idle → reading → parsing → validating → importing → completed.
// Only the importing phase writes, and it never does in a dry run.
// File level failures abort the run and bring it back to idle; record level ones are collected in the Result.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseReading    Phase = "reading"
	PhaseParsing    Phase = "parsing"
	PhaseValidating Phase = "validating"
	PhaseImporting  Phase = "importing"
	PhaseCompleted  Phase = "completed"
)

// Source is an import file.
type Source struct {
	Name   string // file name, its extension tells the format
	Reader io.Reader
}

type Options struct {
	DryRun bool
	// OnPhase, when set, is called on every phase change.
	OnPhase func(Phase)
}

// Result is the report of a completed run.
type Result struct {
	Phase                 Phase      `json:"phase"`
	DryRun                bool       `json:"dryRun"`
	Source                string     `json:"source"`
	Format                Format     `json:"format"`
	TotalRecords          int        `json:"totalRecords"`
	ValidRecords          int        `json:"validRecords"`
	ClassesCreated        int        `json:"classesCreated"`
	ClassesAlreadyExisted int        `json:"classesAlreadyExisted"`
	EnrollmentsCreated    int        `json:"enrollmentsCreated"`
	EnrollmentsUpdated    int        `json:"enrollmentsUpdated"`
	EnrollmentsUnchanged  int        `json:"enrollmentsUnchanged"`
	Errors                []RowError `json:"errors"`
	Warnings              []Warning  `json:"warnings"`
	StartedAt             time.Time  `json:"startedAt"`
	FinishedAt            time.Time  `json:"finishedAt"`
}

// Config holds the limits of an import run.
type Config struct {
	MaxFileSize int64         // bytes, 0 for no limit
	CacheTTL    time.Duration // lifetime of the reference lookups of a run, 0 for the whole run
}

type Service struct {
	programs    *program.Service
	courses     *course.Service
	bimesters   *bimester.Service
	users       *user.Service
	classes     *class.Service
	enrollments *enrollment.Service
	mailSvc     core.EmailService
	logger      core.Logger
	clock       core.Clock

	maxFileSize int64
	cacheTTL    time.Duration
}

func NewService(
	conf Config,
	programs *program.Service,
	courses *course.Service,
	bimesters *bimester.Service,
	users *user.Service,
	classes *class.Service,
	enrollments *enrollment.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	clock core.Clock,
) (*Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(programs, "programs"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(bimesters, "bimesters"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(classes, "classes"),
		vala.IsNotNil(enrollments, "enrollments"),
		vala.IsNotNil(logger, "logger"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "importer.NewService")
	}
	if clock == nil {
		clock = core.SystemClock
	}
	return &Service{
		programs:    programs,
		courses:     courses,
		bimesters:   bimesters,
		users:       users,
		classes:     classes,
		enrollments: enrollments,
		mailSvc:     mailSvc,
		logger:      logger,
		clock:       clock,
		maxFileSize: conf.MaxFileSize,
		cacheTTL:    conf.CacheTTL,
	}, nil
}

// Run imports src on behalf of actor, who must be an admin.
func (svc *Service) Run(ctx context.Context, actor *core.Principal, src Source, opts Options) (*Result, error) {
	setPhase := func(p Phase) {
		if opts.OnPhase != nil {
			opts.OnPhase(p)
		}
	}
	fail := func(err error) (*Result, error) {
		setPhase(PhaseIdle)
		return nil, err
	}

	if err := actor.Require(user.AdminRoles...); err != nil {
		return nil, err
	}
	format, err := DetectFormat(src.Name)
	if err != nil {
		return fail(err)
	}
	res := &Result{
		Phase:     PhaseIdle,
		DryRun:    opts.DryRun,
		Source:    src.Name,
		Format:    format,
		Errors:    []RowError{},
		Warnings:  []Warning{},
		StartedAt: svc.clock.Now(),
	}

	setPhase(PhaseReading)
	data, err := svc.read(src.Reader)
	if err != nil {
		return fail(err)
	}

	setPhase(PhaseParsing)
	records, dropped, err := parse(format, data)
	if err != nil {
		return fail(err)
	}
	if len(records) == 0 && len(dropped) == 0 {
		return fail(ErrEmptyFile)
	}
	res.Warnings = append(res.Warnings, dropped...)
	res.TotalRecords = len(records)

	setPhase(PhaseValidating)
	valid := make([]ClassRecord, 0, len(records))
	for _, rec := range records {
		if errs := validate(rec); len(errs) > 0 {
			res.Errors = append(res.Errors, errs...)
			continue
		}
		valid = append(valid, rec)
	}
	res.ValidRecords = len(valid)

	setPhase(PhaseImporting)
	run := &importRun{svc: svc, lk: svc.newLookup(), res: res, dryRun: opts.DryRun, seen: map[string]map[string]bool{}, planned: map[class.Key]bool{}}
	for _, rec := range valid {
		if err = ctx.Err(); err != nil {
			return fail(errors.Wrap(err, "import interrupted"))
		}
		run.importRecord(ctx, rec)
	}

	res.Phase = PhaseCompleted
	res.FinishedAt = svc.clock.Now()
	setPhase(PhaseCompleted)

	svc.logger.Info(fmt.Sprintf(
		"import %q (dry run: %t): %d/%d records valid, %d classes created, %d enrollments created, %d updated, %d errors",
		res.Source, res.DryRun, res.ValidRecords, res.TotalRecords, res.ClassesCreated,
		res.EnrollmentsCreated, res.EnrollmentsUpdated, len(res.Errors),
	), actor)
	if !opts.DryRun {
		svc.sendSummary(actor, res)
	}
	return res, nil
}

func (svc *Service) read(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, ErrEmptyFile
	}
	if svc.maxFileSize > 0 {
		r = io.LimitReader(r, svc.maxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	if svc.maxFileSize > 0 && int64(len(data)) > svc.maxFileSize {
		return nil, ErrFileTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}

func parse(format Format, data []byte) ([]ClassRecord, []Warning, error) {
	switch format {
	case FormatJSONL:
		records, err := ParseJSONL(bytes.NewReader(data))
		return records, nil, err
	case FormatJSON:
		records, err := ParseJSON(data)
		return records, nil, err
	case FormatXLSX:
		rows, err := ParseXLSX(bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		records, dropped := Group(rows)
		return records, dropped, nil
	default:
		return nil, nil, ErrUnsupportedFileType
	}
}

func (svc *Service) sendSummary(actor *core.Principal, res *Result) {
	if svc.mailSvc == nil || actor.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: actor.Name, Address: actor.Email}},
		Subject:      "Enrollment import summary: " + res.Source,
		TemplateName: "import_summary",
		TemplateData: map[string]interface{}{"Name": actor.Name, "Result": res},
	})
}

// importRun is the importing phase of one run.
type importRun struct {
	svc    *Service
	lk     *lookup
	res    *Result
	dryRun bool

	seen    map[string]map[string]bool // student codes by class key
	planned map[class.Key]bool         // classes a dry run would have created
}

func (run *importRun) importRecord(ctx context.Context, rec ClassRecord) {
	key := rec.ClassKey()
	fail := func(studentCode, msg string, data ErrorData) {
		run.res.Errors = append(run.res.Errors, RowError{Line: rec.Line, ClassKey: key, StudentCode: studentCode, Message: msg, Data: data})
	}
	persistenceFailed := func(studentCode, op string, err error) {
		run.svc.logger.Error(fmt.Sprintf("importer: %s [%s]: %v", op, key, err), err)
		fail(studentCode, fmt.Sprintf("could not %s", op), PersistenceData{Operation: op})
	}

	programCode := strings.TrimSpace(string(rec.ProgramCode))
	prog, err := run.lk.program(ctx, programCode)
	if err != nil {
		if core.IsNotFound(err) {
			fail("", fmt.Sprintf("unknown program code %q", programCode), UnknownProgramData{ProgramCode: programCode})
		} else {
			persistenceFailed("", "look up program", err)
		}
		return
	}

	courseCode := strings.TrimSpace(string(rec.CourseCode))
	crs, err := run.lk.course(ctx, prog.ID, courseCode)
	if err != nil {
		if core.IsNotFound(err) {
			fail("", fmt.Sprintf("unknown course code %q in program %q", courseCode, prog.Code),
				UnknownCourseData{ProgramCode: prog.Code, CourseCode: courseCode})
		} else {
			persistenceFailed("", "look up course", err)
		}
		return
	}

	bimesterName := strings.TrimSpace(string(rec.BimesterName))
	bim, err := run.lk.bimester(ctx, bimesterName)
	if err != nil {
		if core.IsNotFound(err) {
			fail("", fmt.Sprintf("unknown bimester %q", bimesterName), UnknownBimesterData{BimesterName: bimesterName})
		} else {
			persistenceFailed("", "look up bimester", err)
		}
		return
	}

	email := strings.ToLower(strings.TrimSpace(string(rec.ProfessorEmail)))
	prof, err := run.lk.userByEmail(ctx, email)
	switch {
	case core.IsNotFound(err):
		fail("", fmt.Sprintf("unknown professor %q", email), UnknownProfessorData{ProfessorEmail: email})
		return
	case err != nil:
		persistenceFailed("", "look up professor", err)
		return
	case !prof.IsProfessor():
		fail("", fmt.Sprintf("%q is not a professor", email), UnknownProfessorData{ProfessorEmail: email, NotProfessor: true})
		return
	}

	ckey := class.Key{CourseID: crs.ID, BimesterID: bim.ID, GroupNumber: strings.TrimSpace(string(rec.GroupNumber))}
	cls, created, err := run.class(ctx, ckey, prof.ID)
	if err != nil {
		persistenceFailed("", "find or create class", err)
		return
	}
	if created {
		run.res.ClassesCreated++
	} else {
		run.res.ClassesAlreadyExisted++
		if cls.ProfessorID != "" && cls.ProfessorID != prof.ID {
			run.res.Warnings = append(run.res.Warnings, Warning{
				Line:     rec.Line,
				ClassKey: key,
				Message:  fmt.Sprintf("class already exists with another professor; %q was not assigned", email),
			})
		}
	}

	if run.seen[key] == nil {
		run.seen[key] = make(map[string]bool)
	}
	for _, sg := range rec.Students {
		code := user.NormalizeCode(sg.StudentCode)
		if run.seen[key][code] {
			run.res.Warnings = append(run.res.Warnings, Warning{
				Line: rec.Line, ClassKey: key, StudentCode: code,
				Message: "student listed more than once for this class; only the first grade was imported",
			})
			continue
		}
		run.seen[key][code] = true

		student, err := run.lk.userByCode(ctx, code)
		switch {
		case core.IsNotFound(err):
			fail(code, fmt.Sprintf("unknown student code %q", code), UnknownStudentData{StudentCode: code})
			continue
		case err != nil:
			persistenceFailed(code, "look up student", err)
			continue
		case !student.IsStudent():
			fail(code, fmt.Sprintf("%q is not a student", code), UnknownStudentData{StudentCode: code, NotStudent: true})
			continue
		}

		grade, _ := sg.PercentageGrade.Number()
		outcome, err := run.enroll(ctx, cls, created, student.ID, grade)
		if err != nil {
			persistenceFailed(code, "save enrollment", err)
			continue
		}
		switch outcome {
		case enrollment.Created:
			run.res.EnrollmentsCreated++
		case enrollment.Updated:
			run.res.EnrollmentsUpdated++
		case enrollment.Unchanged:
			run.res.EnrollmentsUnchanged++
		}
	}
}

// class finds or creates the class of key. A dry run only looks it up.
func (run *importRun) class(ctx context.Context, key class.Key, professorID string) (class.Class, bool, error) {
	if !run.dryRun {
		return run.svc.classes.FindOrCreate(ctx, key, professorID)
	}
	if run.planned[key] {
		return class.Class{ProfessorID: professorID}, false, nil
	}
	cls, err := run.svc.classes.Find(ctx, key)
	if core.IsNotFound(err) {
		run.planned[key] = true
		return class.Class{ProfessorID: professorID}, true, nil
	}
	return cls, false, err
}

// enroll upserts the enrollment. A dry run only tells what the upsert would do.
func (run *importRun) enroll(ctx context.Context, cls class.Class, classCreated bool, studentID string, grade float64) (enrollment.Outcome, error) {
	if !run.dryRun {
		_, outcome, err := run.svc.enrollments.Upsert(ctx, cls.ID, studentID, &grade)
		return outcome, err
	}
	if classCreated || cls.ID == "" {
		return enrollment.Created, nil
	}
	e, err := run.svc.enrollments.Find(ctx, cls.ID, studentID)
	switch {
	case core.IsNotFound(err):
		return enrollment.Created, nil
	case err != nil:
		return "", err
	case e.HasGrade(&grade):
		return enrollment.Unchanged, nil
	default:
		return enrollment.Updated, nil
	}
}
