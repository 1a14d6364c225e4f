package main

import (
	"context"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if tag := user.PasswordPolicyViolation(pwd, usr.Name, usr.Email); tag != "" {
		msg, _ := cli.translator.T(tag, "password")
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: msg})
	}
	return cli.usrSvc.ResetPassword(ctx, usr.Email, pwd)
}
