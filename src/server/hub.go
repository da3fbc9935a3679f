package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"quote-broadcaster/src/helpers"
	"quote-broadcaster/src/models"
	"quote-broadcaster/src/quotes"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const commandTimeout = 5 * time.Second

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
}

// -----------------------------------------------------------------------------

// handleWebSocket upgrades /ws/:symbol?duration=<cadence> and registers the
// connection with the broadcast scheduler, which pushes a first payload.
func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	cadence := quotes.NormalizeCadence(c.Query("duration"), s.defaultCadence)

	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn, symbol, s.Config.Scheduler.SendBufferSize)
	s.track(client)
	go client.writePump()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := s.quotes.Subscribe(ctx, client, symbol, cadence); err != nil {
		s.Logger.Error("Subscribe %s for %s failed: %v", client.id, symbol, err)
		s.forget(client)
		client.close()
		return
	}

	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a {"duration": "<cadence>"} command. Anything
// else is a ProtocolError: logged and ignored, the connection stays open.
func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MCadenceCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Debug("%v", helpers.NewProtocolError(client.id, err))
		return
	}
	if cmd.Duration == nil {
		s.Logger.Debug("%v", helpers.NewProtocolError(client.id, errors.New("missing duration")))
		return
	}

	cadence := quotes.NormalizeCadence(*cmd.Duration, s.defaultCadence)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := s.quotes.SetCadence(ctx, client.id, cadence); err != nil {
		s.Logger.Warning("Cadence change for %s failed: %v", client.id, err)
	}
}
