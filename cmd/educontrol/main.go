package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"educontrol/core/appbootstrap"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()
	app, err := appbootstrap.Compose(ctx, *cfgPath)
	if err != nil {
		os.Stderr.WriteString("bootstrap: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer app.Close()

	if app.Cfg.Reminders.Enabled {
		if err := app.Reminders.Start(); err != nil {
			app.Logger.Errorf("reminders: %v", err)
			os.Exit(1)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Errorf("server: %v", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		app.Logger.Printf("shutting down on %s", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Errorf("shutdown: %v", err)
		}
	}
}
