package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/lifecycle"
	"signalengine/src/repository"
	"signalengine/src/security"
)

// StartServer runs the status API until SIGINT or SIGTERM, then shuts down
// gracefully. The API is read-only: it reports engine state and history but
// never mutates positions.
func StartServer(port string, manager *lifecycle.Manager) {
	r := chi.NewRouter()

	h := &statusHandler{
		manager:   manager,
		signals:   repository.NewSignalRepository(),
		positions: repository.NewPositionRepository(),
	}

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/signals/active", h.ActiveSignals)
		r.Get("/positions/open", h.OpenPositions)
		r.Get("/positions/closed", h.ClosedPositions)

		// Admin routes require the bearer token.
		r.Group(func(r chi.Router) {
			r.Use(security.TokenMiddleware(security.GetConfig()))
			r.Get("/stats/close-reasons", h.CloseReasonStats)
		})
	})

	// Graceful server
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
