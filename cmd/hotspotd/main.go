// SPDX-License-Identifier: GPL-3.0-or-later

// Command hotspotd runs the hotspot helper behind the HTTP bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bassosimone/hotspot"
	"github.com/bassosimone/hotspot/internal/bridge"
	flag "github.com/spf13/pflag"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "hotspotd: %v\n", err)
		os.Exit(1)
	}
}

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

func run(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := loadOptions(args, os.LookupEnv)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))

	// 1. Build the helper on its queue
	queue := hotspot.NewQueue()
	defer queue.Close()
	d, err := hotspot.NewDispatcher(hotspot.NewConfig(), opts.policy, queue, logger)
	if err != nil {
		return err
	}
	defer func() {
		err := d.Close()
		logger.Info("hotspotdDispatcherClosed", slog.Any("err", err))
	}()

	// 2. Let the bridge play the OS and register exactly once
	bcfg := bridge.NewConfig()
	bcfg.CommandTimeout = opts.commandTimeout
	b := bridge.New(bcfg, logger)
	d.AppState = b
	d.Notifier = b
	mgr := hotspot.NewManager(b, queue, d, logger)
	if err := mgr.Register(opts.policy.DisplayName); err != nil {
		return err
	}
	b.PerformLogoff = mgr.PerformLogoff

	// 3. Serve until the context is done
	listener, err := net.Listen("tcp", opts.listen)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errch := make(chan error, 1)
	go func() {
		errch <- srv.Serve(listener)
	}()
	logger.Info("hotspotdServing", slog.String("localAddr", listener.Addr().String()))

	select {
	case <-ctx.Done():
	case err := <-errch:
		return err
	}

	// 4. Shut down
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	b.Close()
	err = srv.Shutdown(shutdownCtx)
	logger.Info("hotspotdShutdown", slog.Any("err", err))
	return err
}
