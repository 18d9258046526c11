package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"golang.org/x/term"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grading"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	db     *sql.DB
	ledger grading.Ledger // defaults to the configured backend
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - apply grade store migrations (goose commands)")
	fmt.Println("  stats -assignment ID - print an assignment's grading rollup")
	fmt.Println("  mktoken -username USERNAME -email EMAIL [-admin] - generate an API access token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)
	statsAsg := statsCmd.Int("assignment", 0, "The assignment ID.")

	mktokenCmd := flag.NewFlagSet("mktoken", flag.ExitOnError)
	mktokenUname := mktokenCmd.String("username", "", "The account's username.")
	mktokenEmail := mktokenCmd.String("email", "", "The account's email. Receives run reports.")
	mktokenAdmin := mktokenCmd.Bool("admin", false, "Grant admin access.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "stats":
		if err := statsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *statsAsg == 0 {
			statsCmd.Usage()
			return errHelp
		}
		return cli.stats(*statsAsg)
	case "mktoken":
		if err := mktokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *mktokenUname == "" || *mktokenEmail == "" {
			mktokenCmd.Usage()
			return errHelp
		}
		return cli.mktoken(*mktokenUname, *mktokenEmail, *mktokenAdmin)
	default:
		cli.printUsage()
		return errHelp
	}
}
