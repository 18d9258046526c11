package main

import (
	"log"
	"os"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	cli := commandLine{conf: conf}

	// migrations run against the grade store; no DB needed otherwise
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		db, err := database.Open(conf)
		errAndDie(err)
		defer db.Close()
		errAndDie(database.Ping(db))
		cli.db = db
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
