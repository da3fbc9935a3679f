package server

import (
	"context"
	"errors"
	"net/http"

	"quote-broadcaster/src/indicators"
	"quote-broadcaster/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

// getStocks lists the catalog. The configured catalog is served when the
// store is unavailable or empty.
func (s *FastAPIServer) getStocks(c *gin.Context) {
	var instruments []models.MInstrument
	if s.store != nil {
		list, err := s.store.ListInstruments()
		if err != nil {
			s.Logger.Warning("Catalog read failed, serving configured list: %v", err)
		}
		instruments = list
	}
	if len(instruments) == 0 {
		instruments = s.Config.Catalog
	}
	c.JSON(http.StatusOK, catalogRows(instruments))
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) snapshot(c *gin.Context) (models.MQuotePayload, bool) {
	symbol, ok := symbolParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, errorBody(errors.New("symbol is required")))
		return models.MQuotePayload{}, false
	}

	payload, err := s.quotes.Snapshot(c.Request.Context(), symbol, s.cadenceParam(c))
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		c.JSON(status, errorBody(err))
		return models.MQuotePayload{}, false
	}
	return payload, true
}

// getStock serves one payload through the shared cache.
func (s *FastAPIServer) getStock(c *gin.Context) {
	if payload, ok := s.snapshot(c); ok {
		c.JSON(http.StatusOK, payload)
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getIndicators(c *gin.Context) {
	if payload, ok := s.snapshot(c); ok {
		c.JSON(http.StatusOK, indicators.Compute(payload))
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMarketIndices(c *gin.Context) {
	indices, err := s.indices.Get(c.Request.Context())
	if err != nil {
		s.Logger.Error("Error fetching market indices: %v", err)
		c.JSON(http.StatusBadGateway, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, indices)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMarketStatus(c *gin.Context) {
	if s.market == nil {
		c.JSON(http.StatusOK, gin.H{"any_open": false, "markets": []models.MMarketStatus{}})
		return
	}
	status := s.market.Status()
	anyOpen := false
	for _, st := range status {
		anyOpen = anyOpen || st.Open
	}
	c.JSON(http.StatusOK, gin.H{"any_open": anyOpen, "markets": status})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	stats, err := s.quotes.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": stats.Connections,
		"scheduler":   stats,
	})
}
