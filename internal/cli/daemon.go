package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/config"
	"github.com/lherron/guildq/internal/logging"
	"github.com/lherron/guildq/internal/server"
	"github.com/lherron/guildq/internal/store"
)

// DaemonOptions configures the guildqd daemon.
type DaemonOptions struct {
	Addr     string
	Unix     string
	Token    string
	DBPath   string
	LogLevel string
}

// ServeDaemon starts the guildqd daemon and blocks until it is interrupted.
func ServeDaemon(opts DaemonOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Token == "" {
		opts.Token = cfg.DaemonToken
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	database, err := appctx.OpenDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	app := &appctx.App{Config: cfg, DB: database, Store: store.New(database), Log: log}
	srv := server.New(app.Resolver(), app.Store.Projects, server.Options{
		Token:         opts.Token,
		ImportTimeout: cfg.ImportTimeout,
		Log:           log.WithField("component", "server"),
	})

	httpServer := &http.Server{
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ImportTimeout + 5*time.Second,
	}

	var listener net.Listener
	if opts.Unix != "" {
		_ = os.Remove(opts.Unix)
		listener, err = net.Listen("unix", opts.Unix)
		if err != nil {
			return fmt.Errorf("failed to listen on unix socket: %w", err)
		}
	} else {
		addr := opts.Addr
		if addr == "" {
			addr = cfg.DaemonAddr
		}
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", listener.Addr().String()).Info("guildqd listening")
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	log.Info("guildqd stopped")
	return nil
}
