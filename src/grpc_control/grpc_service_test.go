package grpc_control

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
	"quote-broadcaster/src/quotes"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

type fakeQuotes struct {
	err error
}

func (f *fakeQuotes) Snapshot(_ context.Context, symbol string, cadence quotes.Cadence) (models.MQuotePayload, error) {
	if f.err != nil {
		return models.MQuotePayload{}, f.err
	}
	return models.MQuotePayload{
		Symbol:   symbol,
		Duration: string(cadence),
		Price:    101.5,
		Historical: []models.MHistoricalPoint{
			{Time: 1_700_000_000, Open: 100, High: 102, Low: 99, Close: 101.5, Volume: 7},
		},
	}, nil
}

func (f *fakeQuotes) Stats(context.Context) (models.MSchedulerStats, error) {
	if f.err != nil {
		return models.MSchedulerStats{}, f.err
	}
	return models.MSchedulerStats{Connections: 3, Instruments: 2, Fetches: 9}, nil
}

// -----------------------------------------------------------------------------

func startService(t *testing.T, q QuoteSource) *grpc.ClientConn {
	t.Helper()
	quiet := logger.NewLoggerWithWriter(io.Discard, "GRPCTest")

	control := NewControlService(q, nil, models.DefaultCatalog()[:2], quotes.Cadence1d, quiet)
	svc, err := NewGRPCService(&models.MConfig{GrpcHost: "127.0.0.1", GrpcPort: 0}, control, quiet)
	if err != nil {
		t.Fatal(err)
	}
	svc.Start()

	conn, err := grpc.NewClient(svc.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		svc.Stop(ctx)
	})
	return conn
}

func callCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// -----------------------------------------------------------------------------

func TestControlListInstrumentsUsesCatalog(t *testing.T) {
	client := NewControlClient(startService(t, &fakeQuotes{}))

	resp, err := client.ListInstruments(callCtx(t))
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Instruments []models.MInstrument `json:"instruments"`
	}
	if err := FromStruct(resp, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Instruments) != 2 || body.Instruments[1].Symbol != "TCS.NS" {
		t.Errorf("instruments = %+v", body.Instruments)
	}
}

func TestControlGetQuote(t *testing.T) {
	client := NewControlClient(startService(t, &fakeQuotes{}))

	resp, err := client.GetQuote(callCtx(t), "INFY.NS", "")
	if err != nil {
		t.Fatal(err)
	}
	var p models.MQuotePayload
	if err := FromStruct(resp, &p); err != nil {
		t.Fatal(err)
	}
	if p.Symbol != "INFY.NS" || p.Duration != "1d" || p.Price != 101.5 || len(p.Historical) != 1 {
		t.Errorf("payload = %+v", p)
	}

	_, err = client.GetQuote(callCtx(t), " ", "1m")
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("blank symbol: %v", err)
	}
}

func TestControlErrorsMapToUnavailable(t *testing.T) {
	client := NewControlClient(startService(t, &fakeQuotes{err: errors.New("stopped")}))

	if _, err := client.GetStats(callCtx(t)); status.Code(err) != codes.Unavailable {
		t.Errorf("GetStats err = %v", err)
	}
	if _, err := client.GetQuote(callCtx(t), "TCS.NS", "5d"); status.Code(err) != codes.Unavailable {
		t.Errorf("GetQuote err = %v", err)
	}
}

func TestControlStatsAndHealth(t *testing.T) {
	conn := startService(t, &fakeQuotes{})

	resp, err := NewControlClient(conn).GetStats(callCtx(t))
	if err != nil {
		t.Fatal(err)
	}
	var stats models.MSchedulerStats
	if err := FromStruct(resp, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Connections != 3 || stats.Fetches != 9 {
		t.Errorf("stats = %+v", stats)
	}

	hc, err := grpc_health_v1.NewHealthClient(conn).Check(callCtx(t), &grpc_health_v1.HealthCheckRequest{Service: ControlServiceName})
	if err != nil {
		t.Fatal(err)
	}
	if hc.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("health = %v", hc.Status)
	}
}
