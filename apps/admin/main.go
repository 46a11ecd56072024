package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/portal/core"
	logsvc "github.com/trezcool/portal/services/logger"
	"github.com/trezcool/portal/storage"
	"github.com/trezcool/portal/storage/database"
	sqlxrepos "github.com/trezcool/portal/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stdout, "admin", conf)
	ctx := context.Background()

	var (
		db         *sqlx.DB
		store      core.RecordStore
		closeStore func() error
		err        error
	)
	// migrations are run explicitly here, so the sql store is not migrated on open
	if conf.Store.Backend == storage.BackendSQL {
		if err = database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		if db, err = database.Open(conf); err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		store, closeStore, err = storage.WithCache(ctx, conf, sqlxrepos.NewRecordStore(db), logger)
	} else {
		store, closeStore, err = storage.Open(ctx, conf, logger)
	}
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
	}

	cli := commandLine{db: db, store: store, out: os.Stdout}
	err = cli.run(ctx, os.Args)

	if cerr := closeStore(); cerr != nil {
		logger.Error("closing store", cerr)
	}
	if db != nil {
		_ = db.Close()
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
