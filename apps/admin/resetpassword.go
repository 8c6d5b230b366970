package main

import (
	"context"

	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.svcs.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	uu := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
	if err = uu.Validate(ctx, usr, cli.validate, cli.svcs.Users); err != nil {
		return err
	}
	_, err = cli.svcs.Users.Update(ctx, usr, uu)
	return err
}
