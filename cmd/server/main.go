package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/diabetes-risk-mcp-server/internal/api"
	"github.com/diabetes-risk-mcp-server/internal/app"
)

func main() {
	configFile := flag.String("config", "", "path to config file (default: search ./, ./config, /etc/diabetes-risk)")
	flag.Parse()

	a, err := app.New(app.Options{ConfigFile: *configFile})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	server := api.NewServer(*a.Manager.GetServerConfig(), a.Logger, a.Pipeline, a.Model, a.Recorder)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.ReloadOnSignal(ctx, syscall.SIGHUP)

	if err := server.Start(ctx); err != nil {
		a.Logger.WithError(err).Error("Server failed")
		stop()
		a.Close()
		os.Exit(1)
	}

	a.Logger.Info("Server stopped")
}
