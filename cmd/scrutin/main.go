// Package main provides an operator command line for the coordination core:
// it inspects election status and eligibility, triggers tally creation and
// combination, and prints results, all against a bbolt database. A demo
// command runs a full quorum scenario in memory.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/scrutin"
	"go.dedis.ch/scrutin/crypto/elgamal"
	"go.dedis.ch/scrutin/election/types"
	"go.dedis.ch/scrutin/storage/bboltdb"
	"go.dedis.ch/scrutin/tally"
	"golang.org/x/xerrors"
)

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	app := &urfave.App{
		Name:  "scrutin",
		Usage: "coordinate a threshold-encrypted election",
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:  "config",
				Usage: "path of the YAML configuration",
			},
			&urfave.StringFlag{
				Name:  "db",
				Usage: "path of the database",
				Value: "scrutin.db",
			},
		},
		Commands: []*urfave.Command{
			{
				Name:   "status",
				Usage:  "print the status and tally phase of an election",
				Flags:  electionFlag(),
				Action: statusAction,
			},
			{
				Name:  "eligibility",
				Usage: "print the eligibility record of an identity",
				Flags: append(electionFlag(), &urfave.StringFlag{
					Name:     "identity",
					Usage:    "acting identity",
					Required: true,
				}),
				Action: eligibilityAction,
			},
			{
				Name:   "tally",
				Usage:  "create the encrypted tally of an ended election",
				Flags:  electionFlag(),
				Action: tallyAction,
			},
			{
				Name:   "combine",
				Usage:  "combine the submitted partial decryptions",
				Flags:  electionFlag(),
				Action: combineAction,
			},
			{
				Name:   "results",
				Usage:  "print the decrypted results of an election",
				Flags:  electionFlag(),
				Action: resultsAction,
			},
			{
				Name:  "demo",
				Usage: "run a full quorum scenario against the database",
				Flags: []urfave.Flag{
					&urfave.IntFlag{
						Name:  "quorum",
						Value: 3,
					},
					&urfave.IntFlag{
						Name:  "guardians",
						Value: 5,
					},
					&urfave.IntFlag{
						Name:  "ballots",
						Value: 10,
					},
				},
				Action: demoAction,
			},
		},
	}

	return app.Run(args)
}

func electionFlag() []urfave.Flag {
	return []urfave.Flag{
		&urfave.StringFlag{
			Name:     "election",
			Usage:    "election identifier",
			Required: true,
		},
	}
}

// openService loads the configuration and opens the service over the bbolt
// store. The returned closer must be called before the process exits.
func openService(c *urfave.Context) (*tally.Service, func(), error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to load config: %v", err)
	}

	if cfg.LogLevel != "" {
		lvl, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, xerrors.Errorf("failed to parse log level: %v", err)
		}

		scrutin.Logger = scrutin.Logger.Level(lvl)
	}

	path := cfg.DBPath
	if path == "" {
		path = c.String("db")
	}

	db, err := bboltdb.New(path)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to open db: %v", err)
	}

	closer := func() {
		db.Close()
	}

	return tally.NewService(db, elgamal.NewEngine()), closer, nil
}

func statusAction(c *urfave.Context) error {
	srvc, closer, err := openService(c)
	if err != nil {
		return err
	}

	defer closer()

	id := types.ID(c.String("election"))

	status, phase, err := srvc.GetStatus(id, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "status: %v\nphase: %v\n", status, phase)

	return nil
}

func eligibilityAction(c *urfave.Context) error {
	srvc, closer, err := openService(c)
	if err != nil {
		return err
	}

	defer closer()

	record, err := srvc.CheckEligibility(c.String("identity"),
		types.ID(c.String("election")))
	if err != nil {
		return err
	}

	return printJSON(c, record)
}

func tallyAction(c *urfave.Context) error {
	srvc, closer, err := openService(c)
	if err != nil {
		return err
	}

	defer closer()

	created, err := srvc.CreateTally(types.ID(c.String("election")))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "encrypted tally: %s (%d ballots)\n",
		created.ID, created.BallotCount)

	return nil
}

func combineAction(c *urfave.Context) error {
	srvc, closer, err := openService(c)
	if err != nil {
		return err
	}

	defer closer()

	plain, err := srvc.CombinePartialDecryptions(types.ID(c.String("election")))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "combined tally: %s from guardians %v\n",
		plain.ID, plain.Subset)

	return nil
}

func resultsAction(c *urfave.Context) error {
	srvc, closer, err := openService(c)
	if err != nil {
		return err
	}

	defer closer()

	results, err := srvc.GetResults(types.ID(c.String("election")))
	if err != nil {
		return err
	}

	return printJSON(c, results)
}

func printJSON(c *urfave.Context, value interface{}) error {
	buf, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to marshal output: %v", err)
	}

	fmt.Fprintln(c.App.Writer, string(buf))

	return nil
}
