package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/importer"
)

// importFile runs an import synchronously on behalf of the admin with email asEmail and prints its report.
func (cli *commandLine) importFile(path, asEmail string, dryRun bool) error {
	ctx := context.Background()
	usr, err := cli.svcs.Users.GetByEmail(ctx, asEmail)
	if err != nil {
		return errors.Wrap(err, "finding the acting admin")
	}
	actor := &core.Principal{UserID: usr.ID, Email: usr.Email, Name: usr.Name, Role: usr.Role}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening import file")
	}
	defer func() { _ = f.Close() }()

	res, err := cli.svcs.Importer.Run(ctx, actor, importer.Source{Name: filepath.Base(path), Reader: f}, importer.Options{
		DryRun: dryRun,
		OnPhase: func(p importer.Phase) {
			fmt.Fprintf(cli.out, "... %s\n", p)
		},
	})
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding import report")
	}
	fmt.Fprintln(cli.out, string(out))
	return nil
}

// printScale writes the grading scale in use, in the YAML format of a scale file.
func (cli *commandLine) printScale() error {
	enc := yaml.NewEncoder(cli.out)
	enc.SetIndent(2)
	if err := enc.Encode(cli.scale); err != nil {
		return errors.Wrap(err, "encoding grading scale")
	}
	return enc.Close()
}
