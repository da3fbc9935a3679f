package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quote-broadcaster/src/config"
	"quote-broadcaster/src/data_source/yahoo"
	"quote-broadcaster/src/grpc_control"
	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/jobs"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/network"
	"quote-broadcaster/src/quotes"
	"quote-broadcaster/src/server"
	"quote-broadcaster/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger.SetLevel(logger.ParseLevel(conf.LogLevel))
	appLogger := logger.NewLogger(conf.Name)

	// 1. Catalog storage
	db, err := setupDatabase(conf, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	defer db.Close()

	// 2. Market data provider
	var netMgr interfaces.INetworkManager = network.NewHTTPNetworkManager(conf.MConfig, appLogger.Named("NetworkManager"))
	var provider interfaces.IMarketDataProvider = yahoo.NewYahooFinanceSource(netMgr)
	fetcher := quotes.NewFetchAdapter(provider, time.Duration(conf.Scheduler.FetchTimeoutSeconds)*time.Second, appLogger.Named("FetchAdapter"))

	// 3. Broadcast scheduler
	opts := quotes.SchedulerOptions{
		TickInterval: time.Duration(conf.Scheduler.TickIntervalMs) * time.Millisecond,
		ErrorBackoff: time.Duration(conf.Scheduler.ErrorBackoffSeconds) * time.Second,
		FetchWorkers: conf.Scheduler.FetchWorkers,
		RetryDelay:   time.Duration(conf.Scheduler.RetryDelaySeconds) * time.Second,
		IdleTTL:      time.Duration(conf.Scheduler.IdleTTLMinutes) * time.Minute,
	}
	pub := setupPublisher(conf.Publisher, appLogger)
	if pub != nil {
		opts.Publisher = pub
	}
	scheduler := quotes.NewBroadcastScheduler(fetcher, opts, appLogger.Named("BroadcastScheduler"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			appLogger.Error("Scheduler stopped: %v", err)
		}
	}()
	<-scheduler.Started()

	// 4. Market calendars and housekeeping jobs
	symbols := make([]string, len(conf.Catalog))
	for i, in := range conf.Catalog {
		symbols[i] = in.Symbol
	}
	market := utils.NewMarketScheduler(symbols, appLogger.Named("MarketScheduler"))

	housekeeping := jobs.NewHousekeeping(conf.Jobs, db, scheduler, market, appLogger.Named("Housekeeping"))
	if err := housekeeping.Start(); err != nil {
		appLogger.Critical("Failed to start jobs: %v", err)
	}

	// 5. HTTP / WebSocket server
	srv := server.NewFastAPIServer(conf.MConfig, scheduler, db, provider, market, appLogger.Named("FastAPIServer"))
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 6. gRPC control server
	control := grpc_control.NewControlService(scheduler, db, conf.Catalog,
		quotes.NormalizeCadence(conf.Scheduler.DefaultCadence, quotes.Cadence1d), appLogger.Named("ControlService"))
	grpcService, err := grpc_control.NewGRPCService(conf.MConfig, control, appLogger.Named("GRPCService"))
	if err != nil {
		appLogger.Critical("Failed to start gRPC: %v", err)
	}
	grpcService.Start()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Warning("HTTP shutdown: %v", err)
	}
	grpcService.Stop(shutdownCtx)
	housekeeping.Stop()

	// final price snapshot before the scheduler goes away
	if n, err := housekeeping.PersistPrices(shutdownCtx); err != nil {
		appLogger.Warning("Final price snapshot failed: %v", err)
	} else {
		appLogger.Info("Persisted %d last price(s)", n)
	}

	cancel()
	<-scheduler.Done()

	if pub != nil {
		if err := pub.Close(); err != nil {
			appLogger.Warning("Publisher close: %v", err)
		}
	}
	appLogger.Info("Bye")
}
