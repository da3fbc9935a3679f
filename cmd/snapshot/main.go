// Command snapshot prints one quote payload as JSON. With -grpc it asks a
// running service over the control API, otherwise it fetches directly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"quote-broadcaster/src/config"
	"quote-broadcaster/src/data_source/yahoo"
	"quote-broadcaster/src/grpc_control"
	"quote-broadcaster/src/indicators"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
	"quote-broadcaster/src/network"
	"quote-broadcaster/src/quotes"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	symbol := flag.String("symbol", "RELIANCE.NS", "provider symbol")
	duration := flag.String("duration", "", "cadence (1m 5m 15m 30m 1h 4h 1d 1w 1mo)")
	grpcAddr := flag.String("grpc", "", "control API address of a running service, e.g. 127.0.0.1:50051")
	withIndicators := flag.Bool("indicators", false, "print the indicator report instead of the payload")
	flag.Parse()

	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(conf.LogLevel))
	log := logger.NewLogger("snapshot")

	cadence := quotes.NormalizeCadence(*duration, quotes.NormalizeCadence(conf.Scheduler.DefaultCadence, quotes.Cadence1d))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var payload models.MQuotePayload
	if *grpcAddr != "" {
		payload, err = remoteSnapshot(ctx, *grpcAddr, *symbol, cadence)
		if err != nil {
			log.Critical("GetQuote via %s: %v", *grpcAddr, err)
		}
	} else {
		netMgr := network.NewHTTPNetworkManager(conf.MConfig, log.Named("NetworkManager"))
		fetcher := quotes.NewFetchAdapter(yahoo.NewYahooFinanceSource(netMgr),
			time.Duration(conf.Scheduler.FetchTimeoutSeconds)*time.Second, log.Named("FetchAdapter"))
		cache := quotes.NewQuoteCache(quotes.NewFreshnessPolicy(), fetcher)
		payload = cache.GetOrRefresh(ctx, *symbol, cadence, time.Now())
	}

	var out interface{} = payload
	if *withIndicators {
		out = indicators.Compute(payload)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Critical("encode: %v", err)
	}
}

// -----------------------------------------------------------------------------

func remoteSnapshot(ctx context.Context, addr, symbol string, cadence quotes.Cadence) (models.MQuotePayload, error) {
	var p models.MQuotePayload

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return p, err
	}
	defer conn.Close()

	resp, err := grpc_control.NewControlClient(conn).GetQuote(ctx, symbol, string(cadence))
	if err != nil {
		return p, err
	}
	err = grpc_control.FromStruct(resp, &p)
	return p, err
}
