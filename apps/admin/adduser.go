package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core/user"
)

var roleFlags = map[string]string{
	"admin":   user.RoleAdmin,
	"curator": user.RoleCurator,
	"teacher": user.RoleTeacher,
}

// addUser creates an active user with a single role.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	r, ok := roleFlags[role]
	if !ok {
		return errors.Errorf("unknown role %q", role)
	}

	nu := user.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           []string{r},
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s (%s)\n", usr.Email, usr.ID)
	return nil
}
