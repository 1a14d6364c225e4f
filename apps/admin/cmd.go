package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/score"
	"github.com/Bebdyshev/usp-backend/core/settings"
	"github.com/Bebdyshev/usp-backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf        *core.Config
	db          *sql.DB
	out         io.Writer
	validate    *validator.Validate
	translator  ut.Translator
	usrSvc      *user.Service
	scoreSvc    *score.Service
	settingsSvc *settings.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL -role admin|curator|teacher - create a user, the password is prompted next")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset a user's password")
	fmt.Fprintln(cli.out, "  assign -email EMAIL -grade GRADE_ID [-subject SUBJECT_ID] - give a user access to a grade")
	fmt.Fprintln(cli.out, "  import -file PATH -grade GRADE_ID -subject SUBJECT_ID [-semester N] [-year YEAR] [-teacher NAME] - import a gradebook")
	fmt.Fprintln(cli.out, "  template [-out PATH] - write an empty gradebook template")
	fmt.Fprintln(cli.out, "  mapping export|import -file PATH - save or load the column aliases as YAML")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		cmd := cli.flagSet("adduser")
		name := cmd.String("name", "", "The user's full name.")
		email := cmd.String("email", "", "The user's email. The password will be prompted next.")
		role := cmd.String("role", "teacher", "One of admin, curator or teacher.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *name == "" || *email == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil || pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addUser(*name, *email, *role, pwd)

	case "resetpassword":
		cmd := cli.flagSet("resetpassword")
		email := cmd.String("email", "", "The user's email. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *email == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil || pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*email, pwd)

	case "assign":
		cmd := cli.flagSet("assign")
		email := cmd.String("email", "", "The user's email.")
		gradeID := cmd.Int("grade", 0, "The grade ID.")
		subjectID := cmd.Int("subject", 0, "Restrict the assignment to one subject ID.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *email == "" || *gradeID == 0 {
			cmd.Usage()
			return errHelp
		}
		return cli.assign(*email, *gradeID, *subjectID)

	case "import":
		cmd := cli.flagSet("import")
		path := cmd.String("file", "", "The .xlsx gradebook.")
		req := score.ImportRequest{}
		cmd.IntVar(&req.GradeID, "grade", 0, "The grade ID.")
		cmd.IntVar(&req.SubjectID, "subject", 0, "The subject ID.")
		cmd.IntVar(&req.Semester, "semester", cli.conf.Gradebook.Semester, "The semester (1 or 2).")
		cmd.StringVar(&req.AcademicYear, "year", cli.conf.Gradebook.AcademicYear, "The academic year.")
		cmd.StringVar(&req.TeacherName, "teacher", "", "The subject teacher.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *path == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.importGradebook(*path, req)

	case "template":
		cmd := cli.flagSet("template")
		path := cmd.String("out", gradebook.TemplateFilename, "Where to write the template.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.writeTemplate(*path)

	case "mapping":
		if len(args) < 3 || (args[2] != "export" && args[2] != "import") {
			cli.printUsage()
			return errHelp
		}
		cmd := cli.flagSet("mapping " + args[2])
		path := cmd.String("file", "", "The YAML file.")
		if err := cmd.Parse(args[3:]); err != nil {
			return err
		}
		if *path == "" {
			cmd.Usage()
			return errHelp
		}
		if args[2] == "export" {
			return cli.exportMapping(*path)
		}
		return cli.importMapping(*path)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	cmd := flag.NewFlagSet(name, flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	return cmd
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// describe renders validation failures one field per line.
func describe(err error, translator ut.Translator) string {
	var fields map[string]string

	var vErrs validator.ValidationErrors
	var vErr *core.ValidationError
	switch {
	case errors.As(err, &vErrs):
		fields = core.TranslateValidationErrors(vErrs, translator)
	case errors.As(err, &vErr) && len(vErr.Fields) > 0:
		fields = make(map[string]string, len(vErr.Fields))
		for _, fe := range vErr.Fields {
			fields[fe.Field] = fe.Error
		}
	default:
		return err.Error()
	}

	lines := make([]string, 0, len(fields))
	for fld, msg := range fields {
		lines = append(lines, fld+": "+msg)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
