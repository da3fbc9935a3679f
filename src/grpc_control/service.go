package grpc_control

import (
	"context"
	"encoding/json"
	"strings"

	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
	"quote-broadcaster/src/quotes"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// QuoteSource is what the control plane reads from the broadcast scheduler.
type QuoteSource interface {
	Snapshot(ctx context.Context, symbol string, cadence quotes.Cadence) (models.MQuotePayload, error)
	Stats(ctx context.Context) (models.MSchedulerStats, error)
}

// -----------------------------------------------------------------------------

// ControlService implements ControlServer
type ControlService struct {
	Quotes         QuoteSource
	Store          interfaces.IInstrumentStore
	Catalog        []models.MInstrument
	DefaultCadence quotes.Cadence
	Logger         *logger.Logger
}

func NewControlService(q QuoteSource, store interfaces.IInstrumentStore, catalog []models.MInstrument, def quotes.Cadence, log *logger.Logger) *ControlService {
	return &ControlService{
		Quotes:         q,
		Store:          store,
		Catalog:        catalog,
		DefaultCadence: def,
		Logger:         log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListInstruments(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	instruments := s.Catalog
	if s.Store != nil {
		list, err := s.Store.ListInstruments()
		if err != nil {
			s.Logger.Warning("Catalog read failed, serving configured list: %v", err)
		} else if len(list) > 0 {
			instruments = list
		}
	}

	items := make([]interface{}, len(instruments))
	for i, in := range instruments {
		items[i] = map[string]interface{}{
			"symbol": in.Symbol,
			"name":   in.Name,
			"sector": in.Sector,
		}
	}
	return toStruct(map[string]interface{}{"instruments": items})
}

// -----------------------------------------------------------------------------

// GetQuote expects {"symbol": "...", "duration": "..."}; duration is optional.
func (s *ControlService) GetQuote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	symbol := strings.TrimSpace(fields["symbol"].GetStringValue())
	if symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol is required")
	}
	cadence := quotes.NormalizeCadence(fields["duration"].GetStringValue(), s.DefaultCadence)

	payload, err := s.Quotes.Snapshot(ctx, symbol, cadence)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "snapshot %s/%s: %v", symbol, cadence, err)
	}
	return toStruct(payload)
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats, err := s.Quotes.Stats(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "stats: %v", err)
	}
	return toStruct(stats)
}

// -----------------------------------------------------------------------------

// toStruct converts any JSON-encodable value via its JSON form.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return out, nil
}

// FromStruct decodes a Struct response into v through JSON.
func FromStruct(s *structpb.Struct, v interface{}) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
