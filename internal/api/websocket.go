package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 4 << 20
)

// WSRequest is one render request on the stream.
type WSRequest struct {
	ID string `json:"id"`
	renderRequest
}

// WSResponse answers the request with the same ID. Exactly one of the
// render fields or Error is set.
type WSResponse struct {
	ID string `json:"id"`
	*renderResponse
	Error   string              `json:"error,omitempty"`
	Code    string              `json:"code,omitempty"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSResponse
	server *Server
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// handleWebSocket upgrades the connection and answers render requests in
// the order they arrive.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &WSClient{
		conn:   conn,
		send:   make(chan WSResponse, 16),
		server: s,
		logger: s.logger.With("request_id", c.GetString(requestIDKey)),
		ctx:    ctx,
		cancel: cancel,
	}

	client.logger.Info("websocket client connected")

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) readPump() {
	defer func() {
		c.cancel()
		close(c.send)
		c.logger.Info("websocket client disconnected")
	}()

	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		resp := c.handleMessage(raw)
		select {
		case c.send <- resp:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("websocket write failed", "error", err)
				c.cancel()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(raw []byte) WSResponse {
	var req WSRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse("", apperr.ValidationError("invalid message: "+err.Error()))
	}

	resp, _, err := c.server.render(c.ctx, req.renderRequest)
	if err != nil {
		if apperr.As(err) == nil {
			c.logger.Error("websocket render failed", "id", req.ID, "error", err)
		}
		return errorResponse(req.ID, err)
	}
	return WSResponse{ID: req.ID, renderResponse: resp}
}

func errorResponse(id string, err error) WSResponse {
	ae := apperr.As(err)
	if ae == nil {
		ae = apperr.Internal(err)
	}
	return WSResponse{ID: id, Error: ae.Message, Code: ae.Code, Details: ae.Details}
}
