package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

// addUser creates a user, or updates the name, role, code and password of the one with email.
func (cli *commandLine) addUser(name, email, code, role, pwd string) error {
	ctx := context.Background()
	svc := cli.svcs.Users

	usr, err := svc.GetByEmail(ctx, email)
	if errors.Cause(err) == user.ErrNotFound {
		nu := user.NewUser{
			Name: name, Email: email, Code: code, Role: role,
			Password: pwd, PasswordConfirm: pwd,
		}
		if err = nu.Validate(ctx, cli.validate, svc); err != nil {
			return err
		}
		if usr, err = svc.Create(ctx, nu); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "created %s <%s> (%s)\n", usr.Name, usr.Email, usr.Role)
		return nil
	}
	if err != nil {
		return err
	}

	active := true
	uu := user.UpdateUser{Name: name, Role: role, IsActive: &active, Password: pwd, PasswordConfirm: pwd}
	if code != "" {
		uu.Code = &code
	}
	if err = uu.Validate(ctx, usr, cli.validate, svc); err != nil {
		return err
	}
	if usr, err = svc.Update(ctx, usr, uu); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "updated %s <%s> (%s)\n", usr.Name, usr.Email, usr.Role)
	return nil
}
