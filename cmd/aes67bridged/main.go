package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aes67bridge/core/internal/httpapi"
	"github.com/aes67bridge/core/internal/mcast"
	"github.com/aes67bridge/core/internal/sap"
	"github.com/aes67bridge/core/internal/slotmgr"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	statePath := envOr("AES67BRIDGE_STATE", "aes67bridge-state.json")
	apiAddr := envOr("AES67BRIDGE_ADDR", ":8080")

	mgr := slotmgr.New(statePath, nil)

	iface, err := mcast.SelectInterface()
	if err != nil {
		slog.Error("failed to select multicast interface", "error", err)
		os.Exit(1)
	}
	sourceIP := slotmgr.ResolveAnnouncerSource(iface)

	slog.Info("aes67bridged starting",
		"state", statePath,
		"api", apiAddr,
		"iface", iface.Name,
		"source_ip", sourceIP.String(),
	)

	announcer, err := sap.New(iface, sourceIP, mgr.AnnouncerSnapshot, nil)
	if err != nil {
		slog.Error("failed to create SAP announcer", "error", err)
		os.Exit(1)
	}
	defer announcer.Close()

	running, message := mgr.StartAll()
	slog.Info("initial slot start pass complete", "running", running, "message", message)

	apiSrv := &http.Server{
		Addr:    apiAddr,
		Handler: httpapi.New(mgr, announcer, nil).Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		announcer.Run(ctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("HTTP API server listening", "addr", apiAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return apiSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-ctx.Done()
		mgr.StopAllAnnounced(announcer)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
