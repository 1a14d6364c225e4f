package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/Bebdyshev/usp-backend/apps/shared"
	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/score"
	"github.com/Bebdyshev/usp-backend/core/settings"
	"github.com/Bebdyshev/usp-backend/core/user"
	appfs "github.com/Bebdyshev/usp-backend/fs"
	emailsvc "github.com/Bebdyshev/usp-backend/services/email"
	logsvc "github.com/Bebdyshev/usp-backend/services/logger"
	"github.com/Bebdyshev/usp-backend/storage/database"
	sqlxrepos "github.com/Bebdyshev/usp-backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	local, err := logsvc.NewLocalLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(local.Named("admin"), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	cli := newCommandLine(conf, sqlx.NewDb(db, conf.Database.Engine), emailsvc.NewConsoleService(conf, logger), logger)
	err = cli.run(os.Args)

	_ = db.Close()
	_ = logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", describe(err, cli.translator))
		}
		os.Exit(1)
	}
}

func newCommandLine(conf *core.Config, db *sqlx.DB, mailer core.EmailService, logger core.Logger) *commandLine {
	policies, err := score.PoliciesFromConfig(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading risk policies: %v", err), err)
	}

	tx := sqlxrepos.NewTxRunner(db)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	settingsSvc := settings.NewService(tx, sqlxrepos.NewSettingsRepository(db), conf)
	validate, translator := shared.NewValidator()

	return &commandLine{
		conf:        conf,
		db:          db.DB,
		out:         os.Stdout,
		validate:    validate,
		translator:  translator,
		usrSvc:      usrSvc,
		settingsSvc: settingsSvc,
		scoreSvc: score.NewService(
			conf,
			tx,
			sqlxrepos.NewScoreRepository(db, conf.Database.RowLocks),
			settingsSvc,
			usrSvc,
			mailer,
			logger,
			policies,
		),
	}
}
