package engine

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/executors"
	"signalengine/src/server"
)

// Runner wires the evaluation engine to the status API and runs both until
// the process receives SIGINT or SIGTERM.
type Runner struct {
	Log *logger.Entry
}

func (r *Runner) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := executors.NewEngine(ctx)
	if err != nil {
		r.Log.WithError(err).Error("failed to build engine")
		return err
	}

	go func() {
		if err := eng.StartLoop(ctx); err != nil {
			r.Log.WithError(err).Error("engine loop exited with error")
		}
	}()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	// Blocks until shutdown; the server handles the signal itself.
	server.StartServer(server.GetConfig().Port, eng.Manager())

	return nil
}
