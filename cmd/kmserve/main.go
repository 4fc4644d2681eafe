// Command kmserve is the headless session server: it wires internal/api's
// Server to a listen address and runs until a termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/thandwin/kmcore/internal/api"
	"github.com/thandwin/kmcore/internal/config"
)

func main() {
	var (
		configPath    = flag.String("config", "", "config file path (default: platform config dir)")
		addr          = flag.String("addr", "", "listen address (overrides config server.listen_addr)")
		composingCap  = flag.Int("composing-cap", 0, "composing buffer cap in UTF-16 units (overrides config)")
		rematchBudget = flag.Int("rematch-budget", 0, "re-match iteration budget (overrides config)")
		logLevel      = flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
		watchParent   = flag.Bool("watch-parent", false, "shut down if the parent process dies (for GUI-launched sessions)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kmserve: %v\n", err)
		os.Exit(1)
	}

	listenAddr := cfg.Server.ListenAddr
	if *addr != "" {
		listenAddr = *addr
	}
	level := cfg.Engine.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	composing := cfg.Engine.ComposingCap
	if *composingCap > 0 {
		composing = *composingCap
	}
	rematch := cfg.Engine.RematchBudget
	if *rematchBudget > 0 {
		rematch = *rematchBudget
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(level),
	}))

	server := api.NewServer(api.Config{
		Addr:          listenAddr,
		ComposingCap:  composing,
		RematchBudget: rematch,
		Logger:        logger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			logger.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "kmserve: shutdown error: %v\n", err)
				os.Exit(1)
			}
			logger.Info("stopped")
			os.Exit(0)
		})
	}

	if *watchParent {
		monitor := api.NewProcessMonitor(shutdown, logger)
		monitor.Start()
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "kmserve: server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	shutdown()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}
