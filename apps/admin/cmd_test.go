package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
	"github.com/cpmappstudio/alef-university-sub001/core/grading"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
	testutil "github.com/cpmappstudio/alef-university-sub001/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Fixture, *bytes.Buffer) {
	f := testutil.NewFixture(t)
	out := new(bytes.Buffer)
	return &commandLine{
		svcs:     f.Services,
		validate: f.Validate,
		scale:    grading.DefaultScale(),
		out:      out,
	}, f, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	err := cli.run([]string{"admin", "migrate", "up"})
	assert.Equal(t, errNoDatabase, err, "the in-memory engine has nothing to migrate")

	cli.db = new(sql.DB)
	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_terms", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, f, _ := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-email", "root@alef.test"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "root@alef.test", "-name", "Root"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"adduser", "-email", "root@alef.test", "-name", "Root", "-role", "king"},
			extra: "s3cret-Passw0rd", wantErrStr: "role"},
		{name: "create", args: []string{"adduser", "-email", "Root@alef.test", "-name", "Root"}, extra: "s3cret-Passw0rd"},
		{name: "update", args: []string{"adduser", "-email", "root@alef.test", "-name", "Root Admin", "-role", "admin"},
			extra: "n3w-Passw0rd"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				assert.Contains(t, testutil.FieldNames(err), tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}

	usr, err := f.Services.Users.GetByEmail(ctx, "root@alef.test")
	require.NoError(t, err)
	assert.Equal(t, "Root Admin", usr.Name)
	assert.Equal(t, user.RoleAdmin, usr.Role)
	assert.NoError(t, usr.CheckPassword("n3w-Passw0rd"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, f, _ := setup(t)
	usr := f.CreateUser(t, user.RoleStudent, "Ana", "ana@alef.test", "01L-0001", "0ld-Passw0rd")

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@alef.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@alef.test"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: "n3w-Passw0rd"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			refreshed, err := f.Services.Users.GetByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword("n3w-Passw0rd"))
		})
	}
}

func Test_commandLine_import(t *testing.T) {
	cli, f, out := setup(t)
	cat := f.Seed(t)

	path := filepath.Join(t.TempDir(), "grades.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"programCode":"01L","courseCode":"CCOU-08","bimesterName":"2021 Bimester I","groupNumber":1,"professorEmail":"prof@alef.test","students":[{"studentCode":"01L-0001","percentageGrade":91}]}
`), 0o600))

	assert.Equal(t, errHelp, cli.run([]string{"admin", "import", "-file", path}))
	assert.Error(t, cli.run([]string{"admin", "import", "-file", path, "-as", "nobody@alef.test"}))
	assert.Error(t, cli.run([]string{"admin", "import", "-file", path, "-as", cat.Professor.Email}), "professors may not import")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "import", "-file", path, "-as", cat.Admin.Email, "-dry-run"}))
	assert.Contains(t, out.String(), `"dryRun": true`)
	assert.Contains(t, out.String(), `"enrollmentsCreated": 1`)

	enrollments, err := f.Services.Enrollments.Query(context.Background(), enrollmentFilter(cat.Students[0].ID))
	require.NoError(t, err)
	assert.Empty(t, enrollments, "dry runs write nothing")

	require.NoError(t, cli.run([]string{"admin", "import", "-file", path, "-as", cat.Admin.Email}))
	enrollments, err = f.Services.Enrollments.Query(context.Background(), enrollmentFilter(cat.Students[0].ID))
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "A-", enrollments[0].LetterGrade)
}

func Test_commandLine_scale(t *testing.T) {
	cli, _, out := setup(t)
	require.NoError(t, cli.run([]string{"admin", "scale"}))

	scale, err := grading.LoadScale(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, grading.DefaultScale(), scale)

	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &raw))
	assert.Contains(t, raw, "bands")
}

func enrollmentFilter(studentID string) enrollment.QueryFilter {
	return enrollment.QueryFilter{StudentID: studentID}
}
