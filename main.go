// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sfmon_exporter/internal/collectors"
	"sfmon_exporter/internal/config"
	"sfmon_exporter/internal/logger"
	"sfmon_exporter/internal/metrics"
	"sfmon_exporter/internal/salesforce"
	"sfmon_exporter/internal/scheduler"
	"sfmon_exporter/internal/trust"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	version = "0.1.0"
)

// isFlagPassed checks if a flag was explicitly set on the command line.
func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func main() {
	var (
		listenAddress = flag.String("web.listen-address", ":9001", "Address to listen on for web interface and telemetry.")
		metricsPath   = flag.String("web.telemetry-path", "/metrics", "Path under which to expose metrics.")
		configPath    = flag.String("config", "", "Path to configuration file (optional).")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to apply environment overrides: %v\n", err)
		os.Exit(1)
	}

	// Configure loggers based on configuration
	if err := logger.ConfigureLogging(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure loggers: %v\n", err)
		os.Exit(1)
	}

	// Override with command line flags if provided
	if isFlagPassed("web.listen-address") {
		cfg.Server.ListenAddress = *listenAddress
	}
	if isFlagPassed("web.telemetry-path") {
		cfg.Server.MetricsPath = *metricsPath
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	overrides, err := cfg.LoadScheduleOverrides()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid schedule override file")
	}

	log.Info().
		Str("version", version).
		Str("listen_address", cfg.Server.ListenAddress).
		Str("metrics_path", cfg.Server.MetricsPath).
		Int("query_timeout_seconds", cfg.Salesforce.QueryTimeoutSeconds).
		Msg("Starting Salesforce monitoring exporter")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Authenticate against the org
	log.Info().Msg("Authenticating against Salesforce org...")
	session, err := salesforce.NewSession(ctx, cfg.Salesforce.AuthURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to establish Salesforce session")
	}
	log.Info().
		Str("instance_url", session.InstanceURL).
		Str("api_version", session.APIVersion).
		Msg("Salesforce session established")

	client := salesforce.NewClient(session,
		time.Duration(cfg.Salesforce.QueryTimeoutSeconds)*time.Second,
		time.Duration(cfg.Salesforce.RequestTimeoutSeconds)*time.Second)
	trustClient := trust.NewClient("",
		time.Duration(cfg.Salesforce.RequestTimeoutSeconds)*time.Second)

	// Declare the gauge set
	m := metrics.New()
	log.Debug().Msg("- Metrics initialized")

	// Build the collector set and schedule it
	collectorSet := collectors.New(collectors.Deps{
		API:     client,
		Trust:   trustClient,
		Metrics: m,
		Config:  cfg.Collectors,
	})

	sched := scheduler.New()
	for _, spec := range collectorSet.All() {
		sched.Add(scheduler.Job{
			ID:      spec.ID,
			Trigger: sched.ResolveTrigger(spec.ID, spec.Default, overrides.Schedules),
			Run:     spec.Run,
		})
	}
	log.Info().Int("jobs", len(sched.Jobs())).Msg("Collector jobs registered")

	// Set up HTTP server for Prometheus metrics
	mux := http.NewServeMux()
	mux.Handle(cfg.Server.MetricsPath, promhttp.HandlerFor(
		m.Registry().Prometheus(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
            <head><title>Salesforce Monitoring Exporter</title></head>
            <body>
            <h1>Salesforce Monitoring Exporter v` + version + ` </h1>
            <p><a href="` + cfg.Server.MetricsPath + `">Metrics</a></p>
            </body>
            </html>`))
	})

	log.Info().Str("address", cfg.Server.ListenAddress).Msg("Starting HTTP server")
	srv := &http.Server{Addr: cfg.Server.ListenAddress, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	// The scheduler blocks until the context is cancelled: startup pass
	// first, then the trigger loop.
	sched.Start(ctx)

	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	log.Info().Msg("Salesforce monitoring exporter stopped")
}
