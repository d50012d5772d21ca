package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"signalengine/cmd/backfill"
	"signalengine/cmd/engine"
	"signalengine/src/database"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Signalengine CMD"
	app.Usage = "The signal engine command line interface"

	app.Commands = []cli.Command{
		engineCMD,
		backfillCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	engineCMD = cli.Command{
		Name:        "engine",
		Usage:       "run the signal engine",
		Action:      engineAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the evaluation loop plus the status API`,
	}
	backfillCMD = cli.Command{
		Name:        "backfill",
		Usage:       "backfill 1m OHLCV candles",
		Action:      backfillAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Backfill one-minute candles into the database`,
	}
)

func engineAction(_ *cli.Context) error {

	logrus.Info("Starting engine CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	runner := &engine.Runner{Log: logrus.WithField("cmd", "engine")}
	if err := runner.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func backfillAction(_ *cli.Context) error {

	logrus.Info("Starting backfill CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	b := &backfill.Backfill{
		Log: logrus.WithField("cmd", "backfill"),
		DB:  database.MainDB,
	}

	if err := b.Start(); err != nil {
		logrus.WithError(err).Error("Starting backfill cmd")
		return err
	}

	return nil
}
