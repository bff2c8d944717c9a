package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"activity-monitor/internal/agent"
	"activity-monitor/internal/config"
	"activity-monitor/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agent:", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadDotEnv()
	cfg, err := config.LoadAgent()
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.LogLevel, "text"); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := agent.NewClient(cfg.ServerURL, cfg.Hostname, cfg.Username)
	go registerSelf(ctx, client)

	logging.Logger.Info("agent started",
		"server", cfg.ServerURL,
		"hostname", cfg.Hostname,
		"username", cfg.Username,
		"idle_threshold", cfg.IdleThreshold,
	)
	err = agent.NewRunner(client, agent.NewProbe(), cfg).Run(ctx)
	logging.Logger.Info("agent stopped")
	return err
}

func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "unknown"
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
			if ipNet.IP.To4() != nil {
				return ipNet.IP.String()
			}
		}
	}
	return "unknown"
}

// registerSelf announces the machine, retrying until it succeeds or ctx ends.
func registerSelf(ctx context.Context, client *agent.Client) {
	for {
		err := client.Register(ctx, runtime.GOOS, getLocalIP())
		if err == nil {
			return
		}
		logging.Logger.Warn("registration failed, retrying", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}
