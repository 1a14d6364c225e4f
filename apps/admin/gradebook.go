package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/risk"
	"github.com/Bebdyshev/usp-backend/core/score"
)

// importGradebook imports the file at path with the rights of an admin.
func (cli *commandLine) importGradebook(path string, req score.ImportRequest) error {
	if err := req.Validate(cli.validate); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening gradebook")
	}
	defer func() { _ = f.Close() }()

	res, err := cli.scoreSvc.Import(context.Background(), req, f, core.UnrestrictedScope())
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "import %s: %d imported (%d created, %d updated)\n", res.ImportID, res.ImportedCount, res.CreatedCount, res.UpdatedCount)
	for _, lvl := range risk.Levels {
		fmt.Fprintf(cli.out, "  %-8s %d\n", lvl, res.DangerDistribution[lvl])
	}
	for _, msg := range res.Warnings {
		fmt.Fprintln(cli.out, "warning:", msg)
	}
	for _, msg := range res.Errors {
		fmt.Fprintln(cli.out, "error:", msg)
	}
	return nil
}

func (cli *commandLine) writeTemplate(path string) error {
	buf, err := gradebook.Template()
	if err != nil {
		return err
	}
	if err = os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "writing template")
	}
	fmt.Fprintln(cli.out, "template written to", path)
	return nil
}
