package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/storage/database"
)

var gooseRunFunc = database.RunMigration // mockable

var errNoDatabase = errors.New("migrations need the sql store backend")

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return gooseRunFunc(ctx, args[0], cli.db, args[1:]...)
}
