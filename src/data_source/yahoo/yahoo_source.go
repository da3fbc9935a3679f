package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"time"

	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooFinanceSource implements interfaces.IMarketDataProvider on top of the
// public chart endpoint.
type YahooFinanceSource struct {
	BaseURL string
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(netMgr interfaces.INetworkManager) *YahooFinanceSource {
	return &YahooFinanceSource{
		BaseURL: defaultBaseURL,
		Network: netMgr,
		Logger:  logger.NewLogger("YahooFinanceSource"),
	}
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return "yahoo"
}

// -----------------------------------------------------------------------------

// History fetches bars for symbol over period at the given sampling interval.
func (s *YahooFinanceSource) History(ctx context.Context, symbol, period, interval string) ([]models.MBar, error) {
	params := map[string]string{
		"range":          period,
		"interval":       interval,
		"includePrePost": "false",
	}

	respBytes, err := s.Network.Get(ctx, s.BaseURL+url.PathEscape(symbol), params)
	if err != nil {
		return nil, fmt.Errorf("network error for %s: %w", symbol, err)
	}

	return s.parseChartResponse(symbol, respBytes)
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				ExchangeName       string  `json:"exchangeName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				DataGranularity    string  `json:"dataGranularity"`
				Range              string  `json:"range"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"`   // Use pointers to handle null
					Low    []*float64 `json:"low"`    // Use pointers to handle null
					Open   []*float64 `json:"open"`   // Use pointers to handle null
					Close  []*float64 `json:"close"`  // Use pointers to handle null
					Volume []*float64 `json:"volume"` // Use pointers to handle null
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

// parseChartResponse converts the chart payload into time ordered bars.
// Nulls become NaN; cleaning is left to the caller.
func (s *YahooFinanceSource) parseChartResponse(symbol string, data []byte) ([]models.MBar, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no result in response for %s", symbol)
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		// market holiday or fresh listing, not an error
		return []models.MBar{}, nil
	}

	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data in response for %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	n := len(result.Timestamp)
	if len(quote.Close) != n || len(quote.Open) != n || len(quote.High) != n ||
		len(quote.Low) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("data alignment error for %s: mismatched array lengths", symbol)
	}

	bars := make([]models.MBar, 0, n)
	for i, ts := range result.Timestamp {
		bars = append(bars, models.MBar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   valueOrNaN(quote.Open[i]),
			High:   valueOrNaN(quote.High[i]),
			Low:    valueOrNaN(quote.Low[i]),
			Close:  valueOrNaN(quote.Close[i]),
			Volume: valueOrNaN(quote.Volume[i]),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	s.Logger.Debug("Fetched %s (%s/%s): %d bars", symbol, result.Meta.Range, result.Meta.DataGranularity, len(bars))
	return bars, nil
}

// -----------------------------------------------------------------------------

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
