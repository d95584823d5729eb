package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/diabetes-risk-mcp-server/internal/app"
	"github.com/diabetes-risk-mcp-server/internal/mcp"
)

func main() {
	configFile := flag.String("config", "", "path to config file (default: search ./, ./config, /etc/diabetes-risk)")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr
	log.SetOutput(os.Stderr)
	a, err := app.New(app.Options{ConfigFile: *configFile, LogOutput: os.Stderr})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	server := mcp.NewServer(a.Config.MCP, a.Logger, a.Pipeline, a.Recorder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.ReloadOnSignal(ctx, syscall.SIGHUP)

	if err := server.RunStdio(ctx); err != nil && ctx.Err() == nil {
		a.Logger.WithError(err).Error("MCP server failed")
		stop()
		a.Close()
		os.Exit(1)
	}

	a.Logger.Info("MCP server stopped")
}
