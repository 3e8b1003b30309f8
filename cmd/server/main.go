// Command server boots the identity reconciliation service: load
// config, build the store/reconciler/router, serve with graceful
// shutdown, the way the teacher's flat main.go did — scaled up to the
// explicit Init-steps style of the wider example pack.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitespeed/identity-reconciler/internal/config"
	"github.com/bitespeed/identity-reconciler/internal/httpapi"
	"github.com/bitespeed/identity-reconciler/internal/logging"
	"github.com/bitespeed/identity-reconciler/internal/reconcile"
	"github.com/bitespeed/identity-reconciler/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open store", err)
		os.Exit(1)
	}
	defer db.Close()

	reconciler := reconcile.New(db, cfg.TxMaxWait, cfg.TxTimeout, log)
	router := httpapi.NewRouter(db, reconciler, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", err)
	}
}
