package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/database"
	"signalengine/src/executors"
	"signalengine/src/server"
)

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	SetupLogger()
	defer handlePanic()

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := executors.NewEngine(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build engine")
	}

	go func() {
		if err := eng.StartLoop(ctx); err != nil {
			logger.WithError(err).Error("Engine loop exited with error")
		}
	}()

	server.StartServer(resolvePort(), eng.Manager())
	cancel()
}

// resolvePort must run after godotenv.Load so a SERVER_PORT set only in
// .env is honored.
func resolvePort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	return server.GetConfig().Port
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", os.Getenv("APP_NAME")))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
