package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grading"
	emailsvc "github.com/trezcool/alama/services/email"
	gradersvc "github.com/trezcool/alama/services/grader"
	ledgersvc "github.com/trezcool/alama/services/ledger"
	logsvc "github.com/trezcool/alama/services/logger"
	subssvc "github.com/trezcool/alama/services/submissions"
	"github.com/trezcool/alama/storage/database"
	dummydb "github.com/trezcool/alama/storage/database/dummy"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	ledger, store, cleanup, err := setUpBackends(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up backends: %v", err), err)
	}
	defer cleanup()

	grader := gradersvc.NewHTTPService(conf, logger)
	gradingSvc := grading.NewService(conf, ledger, store, grader, logger, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			GradingSvc: gradingSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpBackends wires the grade ledger and the submission store for the
// configured backend: the academic backend's REST API (default), a direct
// Postgres connection, or the in-memory DB for local hacking.
func setUpBackends(conf *core.Config, logger core.Logger) (grading.Ledger, grading.SubmissionStore, func(), error) {
	noop := func() {}

	switch conf.Grading.LedgerBackend {
	case "postgres":
		db, err := setUpDB(conf)
		if err != nil {
			return nil, nil, noop, err
		}
		cleanup := func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close DB", err)
			}
		}
		ledger := sqlxrepos.NewGradeLedger(sqlx.NewDb(db, conf.Database.Engine))
		// submissions always live behind the academic backend
		return ledger, subssvc.NewRestStore(conf, logger), cleanup, nil

	case "dummy":
		db, err := dummydb.Open()
		if err != nil {
			return nil, nil, noop, err
		}
		return dummydb.NewGradeLedger(db), dummydb.NewSubmissionStore(db), noop, nil

	default:
		return ledgersvc.NewRestLedger(conf, logger), subssvc.NewRestStore(conf, logger), noop, nil
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
		return nil, err
	}
	return db, nil
}
