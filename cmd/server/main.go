// Package main is the entry point for the LacyLights DDP receiver server.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bbernstein/lacylights-ddp/internal/config"
	"github.com/bbernstein/lacylights-ddp/internal/database"
	"github.com/bbernstein/lacylights-ddp/internal/database/repositories"
	"github.com/bbernstein/lacylights-ddp/internal/metrics"
	"github.com/bbernstein/lacylights-ddp/internal/services/bridge"
	"github.com/bbernstein/lacylights-ddp/internal/services/network"
	"github.com/bbernstein/lacylights-ddp/internal/services/pubsub"
	"github.com/bbernstein/lacylights-ddp/internal/services/receiver"
	"github.com/bbernstein/lacylights-ddp/pkg/ddp"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	printBanner(cfg)

	db, err := database.Open(database.Config{
		URL:   cfg.DatabaseURL,
		Debug: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	settingRepo := repositories.NewSettingRepository(db)
	outputRepo := repositories.NewOutputRepository(db)
	ps := pubsub.New()

	opts := []ddp.Option{
		ddp.WithMaxBufferSize(cfg.DDPMaxBufferSize),
		ddp.WithImplicitOutputs(cfg.DDPImplicitOutputs),
	}
	var registry *prometheus.Registry
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, ddp.WithMetrics(metrics.NewMetrics(registry)))
	}

	transport, err := ddp.ListenUDP(cfg.DDPListenAddr)
	if err != nil {
		log.Fatalf("Failed to open DDP socket: %v", err)
	}
	transport.SetReadWindow(cfg.DDPReadWindow)
	log.Printf("📥 DDP listening on udp %s", transport.LocalAddr())
	logReachableAddresses(transport.LocalAddr())

	rxService := receiver.NewService(receiver.Config{
		PixelCount:   cfg.DDPPixelCount,
		PollInterval: cfg.DDPPollInterval,
	}, transport, ps, opts...)

	ctx := context.Background()
	if err := restoreState(ctx, cfg, rxService, settingRepo, outputRepo); err != nil {
		log.Fatalf("Failed to restore receiver state: %v", err)
	}

	bridgeService := bridge.NewService(bridge.Config{
		Enabled:       cfg.ArtNetEnabled,
		BroadcastAddr: cfg.ArtNetBroadcast,
		Port:          cfg.ArtNetPort,
		DeviceID:      ddp.IDDisplay,
	})
	if err := bridgeService.Initialize(); err != nil {
		log.Printf("Warning: Art-Net bridge initialization failed: %v", err)
	}
	rxService.OnFrame(func(f receiver.Frame) {
		bridgeService.HandleFrame(f.DeviceID, f.Data)
	})

	rxService.Start()

	a := &app{
		receiver:   rxService,
		pubsub:     ps,
		settings:   settingRepo,
		outputs:    outputRepo,
		bridge:     bridgeService,
		corsOrigin: cfg.CORSOrigin,
		debug:      cfg.IsDevelopment(),
		started:    time.Now(),
	}
	if registry != nil {
		a.gatherer = registry
	}

	// /events and /ws clear the write deadline for their own connections
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(a),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		log.Printf("LED grid: http://localhost:%s/\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cleanup services in reverse order
	rxService.Stop()
	_ = transport.Close()
	bridgeService.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// restoreState applies the saved status payload and output layout. Without a
// saved payload a status document is built from the configuration.
func restoreState(ctx context.Context, cfg *config.Config, rx *receiver.Service,
	settings *repositories.SettingRepository, outputs *repositories.OutputRepository) error {
	status, err := settings.LoadStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to load status: %w", err)
	}
	if status == nil {
		status, err = ddp.MarshalStatus(ddp.Status{
			Manufacturer: cfg.StatusManufacturer,
			Model:        cfg.StatusModel,
			Version:      Version,
		})
		if err != nil {
			return fmt.Errorf("failed to build status: %w", err)
		}
	} else if saved, err := ddp.UnmarshalStatus(status); err == nil && saved.Model != "" {
		log.Printf("💾 Loaded saved DDP status for %s %s (%d bytes)", saved.Manufacturer, saved.Model, len(status))
	} else {
		log.Printf("💾 Loaded saved DDP status (%d bytes)", len(status))
	}
	if err := rx.SetStatus(status); err != nil {
		return err
	}

	rx.ConfigureOutput(ddp.IDDisplay, rx.PixelCount()*3)

	saved, err := outputs.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load outputs: %w", err)
	}
	for _, o := range saved {
		rx.ConfigureOutput(byte(o.DeviceID), o.Size)
	}
	if len(saved) > 0 {
		log.Printf("💾 Restored %d saved outputs", len(saved))
	}
	return nil
}

// logReachableAddresses lists the interface addresses senders can target when
// the socket is bound to the wildcard address.
func logReachableAddresses(addr net.Addr) {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok || !udpAddr.IP.IsUnspecified() {
		return
	}
	ifaces, err := network.Interfaces()
	if err != nil {
		log.Printf("Warning: failed to list network interfaces: %v", err)
		return
	}
	for _, a := range network.ListenAddresses(ifaces, udpAddr.Port) {
		log.Printf("📥   reachable at %s", a)
	}
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  LacyLights DDP Receiver")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  HTTP port:   %s\n", cfg.Port)
	fmt.Printf("  DDP listen:  %s\n", cfg.DDPListenAddr)
	fmt.Printf("  Pixels:      %d\n", cfg.DDPPixelCount)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Art-Net:     %v\n", cfg.ArtNetEnabled)
	fmt.Printf("  Metrics:     %v\n", cfg.MetricsEnabled)
	fmt.Println("============================================")
}
