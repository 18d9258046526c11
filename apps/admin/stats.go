package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/alama/core/grading"
	ledgersvc "github.com/trezcool/alama/services/ledger"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/storage/database"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
)

// stats prints the grading rollup for one assignment, straight from the
// configured grade ledger.
func (cli *commandLine) stats(assignmentID int) error {
	ledger, cleanup, err := cli.getLedger()
	if err != nil {
		return err
	}
	defer cleanup()

	cliLogger := logsvc.NewRollbarLogger(logger, cli.conf)
	svc := grading.NewService(cli.conf, ledger, nil, nil, cliLogger, nil)

	s, err := svc.Stats(context.Background(), assignmentID)
	if err != nil {
		return err
	}

	fmt.Printf("Assignment %d\n", s.AssignmentID)
	fmt.Printf("  total students  : %d\n", s.TotalStudents)
	fmt.Printf("  graded          : %d\n", s.GradedCount)
	fmt.Printf("  needs grading   : %d\n", s.NeedsGrading)
	fmt.Printf("  average score   : %.2f\n", s.AverageScore)
	fmt.Printf("  completion rate : %d%%\n", s.CompletionRate)
	return nil
}

func (cli *commandLine) getLedger() (grading.Ledger, func(), error) {
	noop := func() {}
	if cli.ledger != nil {
		return cli.ledger, noop, nil
	}

	cliLogger := logsvc.NewRollbarLogger(log.New(os.Stdout, "LEDGER : ", log.LstdFlags), cli.conf)

	if cli.conf.Grading.LedgerBackend == "postgres" {
		db, err := database.Open(cli.conf)
		if err != nil {
			return nil, noop, err
		}
		if err = database.Ping(db); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return sqlxrepos.NewGradeLedger(sqlx.NewDb(db, cli.conf.Database.Engine)), func() { _ = db.Close() }, nil
	}

	if cli.conf.Grading.LedgerToken == "" {
		fmt.Print("Enter ledger API token:")
		tok, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return nil, noop, err
		}
		if len(tok) == 0 {
			return nil, noop, errHelp
		}
		cli.conf.Grading.LedgerToken = string(tok)
	}
	return ledgersvc.NewRestLedger(cli.conf, cliLogger), noop, nil
}
