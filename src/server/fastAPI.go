package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
	"quote-broadcaster/src/quotes"
	"quote-broadcaster/src/utils"

	"github.com/gin-gonic/gin"
)

// QuoteHub is the part of the broadcast scheduler the transport needs.
type QuoteHub interface {
	Subscribe(ctx context.Context, conn interfaces.ISubscriber, symbol string, cadence quotes.Cadence) error
	Unsubscribe(ctx context.Context, id string) error
	SetCadence(ctx context.Context, id string, cadence quotes.Cadence) error
	Snapshot(ctx context.Context, symbol string, cadence quotes.Cadence) (models.MQuotePayload, error)
	Stats(ctx context.Context) (models.MSchedulerStats, error)
}

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	srv    *http.Server

	quotes         QuoteHub
	store          interfaces.IInstrumentStore
	market         *utils.MarketScheduler
	indices        *indicesCache
	defaultCadence quotes.Cadence

	// live websocket clients, closed on Stop
	clients   map[string]*Client
	clientsMu sync.Mutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, hub QuoteHub, store interfaces.IInstrumentStore, provider interfaces.IMarketDataProvider, market *utils.MarketScheduler, log *logger.Logger) *FastAPIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &FastAPIServer{
		Config:         cfg,
		Logger:         log,
		engine:         engine,
		quotes:         hub,
		store:          store,
		market:         market,
		indices:        newIndicesCache(provider, cfg.Indices, log.Named("Indices")),
		defaultCadence: quotes.NormalizeCadence(cfg.Scheduler.DefaultCadence, quotes.Cadence1d),
		clients:        make(map[string]*Client),
	}

	engine.Use(s.cors())
	s.setupRoutes()

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *FastAPIServer) originAllowed(origin string) bool {
	for _, o := range s.Config.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/stocks", s.getStocks)
	api.GET("/stock/:symbol", s.getStock)
	api.GET("/stock/:symbol/indicators", s.getIndicators)
	api.GET("/market-indices", s.getMarketIndices)
	api.GET("/market-status", s.getMarketStatus)
	api.GET("/health", s.getHealth)

	s.engine.GET("/ws/:symbol", s.handleWebSocket)
}

// Handler exposes the router, mainly for httptest.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Stop is called.
func (s *FastAPIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.srv.Addr)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop refuses new requests and closes every websocket.
func (s *FastAPIServer) Stop(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)

	s.clientsMu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	for _, c := range clients {
		c.close()
	}
	s.Logger.Info("Server stopped, %d websocket(s) closed", len(clients))
	return err
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) track(c *Client) {
	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()
}

func (s *FastAPIServer) forget(c *Client) {
	s.clientsMu.Lock()
	delete(s.clients, c.id)
	s.clientsMu.Unlock()
}
