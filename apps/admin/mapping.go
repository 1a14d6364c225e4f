package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Bebdyshev/usp-backend/core/settings"
)

// exportMapping writes the effective column aliases in the format importMapping reads.
func (cli *commandLine) exportMapping(path string) error {
	aliases, err := cli.settingsSvc.ColumnAliases(context.Background())
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(settings.UpdateColumnMapping{Fields: aliases})
	if err != nil {
		return errors.Wrap(err, "encoding column mapping")
	}
	if err = os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrap(err, "writing column mapping")
	}
	fmt.Fprintf(cli.out, "%d fields exported to %s\n", len(aliases), path)
	return nil
}

func (cli *commandLine) importMapping(path string) error {
	ctx := context.Background()
	in, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading column mapping")
	}
	var ucm settings.UpdateColumnMapping
	if err = yaml.Unmarshal(in, &ucm); err != nil {
		return errors.Wrap(err, "decoding column mapping")
	}
	if err = ucm.Validate(ctx, cli.validate); err != nil {
		return err
	}
	if _, err = cli.settingsSvc.UpdateColumnMapping(ctx, ucm); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d fields imported from %s\n", len(ucm.Fields), path)
	return nil
}
