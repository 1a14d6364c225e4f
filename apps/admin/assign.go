package main

import (
	"context"
	"fmt"

	"github.com/Bebdyshev/usp-backend/core/user"
)

func (cli *commandLine) assign(email string, gradeID, subjectID int) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	na := user.NewAssignment{GradeID: gradeID}
	if subjectID != 0 {
		na.SubjectID = &subjectID
	}
	if err = cli.validate.Struct(na); err != nil {
		return err
	}
	if err = cli.usrSvc.Assign(ctx, usr.ID, na); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s can now see grade %d\n", usr.Email, gradeID)
	return nil
}
