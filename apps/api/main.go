package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers

	"github.com/jmoiron/sqlx"

	echoapi "github.com/Bebdyshev/usp-backend/apps/api/echo"
	"github.com/Bebdyshev/usp-backend/apps/shared"
	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/analytics"
	"github.com/Bebdyshev/usp-backend/core/score"
	"github.com/Bebdyshev/usp-backend/core/settings"
	"github.com/Bebdyshev/usp-backend/core/user"
	appfs "github.com/Bebdyshev/usp-backend/fs"
	emailsvc "github.com/Bebdyshev/usp-backend/services/email"
	logsvc "github.com/Bebdyshev/usp-backend/services/logger"
	"github.com/Bebdyshev/usp-backend/storage/database"
	boiledrepos "github.com/Bebdyshev/usp-backend/storage/database/sqlboiler"
	sqlxrepos "github.com/Bebdyshev/usp-backend/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	local, err := logsvc.NewLocalLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(local.Named("api"), conf)
	logger.Enable(!conf.Debug)
	defer func() { _ = logger.Sync() }()

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	dbx := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	policies, err := score.PoliciesFromConfig(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading risk policies: %v", err), err)
	}
	tx := sqlxrepos.NewTxRunner(dbx)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(dbx))
	settingsSvc := settings.NewService(tx, sqlxrepos.NewSettingsRepository(dbx), conf)
	scoreSvc := score.NewService(
		conf,
		tx,
		sqlxrepos.NewScoreRepository(dbx, conf.Database.RowLocks),
		settingsSvc,
		usrSvc,
		mailSvc,
		logger,
		policies,
	)
	analyticsSvc := analytics.NewService(boiledrepos.NewAnalyticsRepository(db, true /* indexPlaceholders */))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		UserSvc:      usrSvc,
		ScoreSvc:     scoreSvc,
		SettingsSvc:  settingsSvc,
		AnalyticsSvc: analyticsSvc,
		Validate:     validate,
		Translator:   translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
