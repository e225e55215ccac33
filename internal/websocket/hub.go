package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"distribuidora/internal/config"
	"distribuidora/internal/model"
	"distribuidora/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event types pushed to connected clients
const (
	EventStockChanged = "stock.changed"
	EventStockLow     = "stock.low"
)

const (
	sendBuffer      = 256
	broadcastBuffer = 64
	writeWait       = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer on the REST API; the socket only carries a token.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StockSnapshot is the product state carried by stock events.
type StockSnapshot struct {
	ProductID    uint   `json:"product_id"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	StockOnHand  int    `json:"stock_on_hand"`
	StockMinimum int    `json:"stock_minimum"`
	State        string `json:"state"`
}

type Event struct {
	Type    string        `json:"type"`
	Product StockSnapshot `json:"product"`
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uint
}

// Hub maintains the set of active clients and broadcasts stock events to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	log        *logrus.Entry
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        config.GetLogger().WithField("module", "websocket"),
	}
}

// Run dispatches hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.WithField("user_id", client.UserID).Info("client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.WithField("user_id", client.UserID).Info("client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// slow consumer
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// PublishStock broadcasts the new stock level of every product, plus a stock.low
// event for those at or below their minimum. Never blocks the caller.
func (h *Hub) PublishStock(products []model.Product) {
	if len(products) == 0 {
		return
	}

	events := make([]Event, 0, len(products))
	for _, p := range products {
		snap := StockSnapshot{
			ProductID:    p.ID,
			Name:         p.Name,
			Unit:         p.Unit,
			StockOnHand:  p.StockOnHand,
			StockMinimum: p.StockMinimum,
			State:        p.StockState(),
		}
		events = append(events, Event{Type: EventStockChanged, Product: snap})
		if p.IsLowStock() {
			events = append(events, Event{Type: EventStockLow, Product: snap})
		}
	}

	message, err := json.Marshal(events)
	if err != nil {
		config.LogError(config.GetLogger(), "websocket", "PublishStock", "marshal events", nil, err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.log.WithField("events", len(events)).Warn("broadcast queue full, dropping stock events")
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains the connection so close frames are noticed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithError(err).Warn("unexpected close")
			}
			break
		}
	}
}

// ServeWs authenticates the token query parameter and upgrades the connection.
// Any active user role may subscribe.
func ServeWs(hub *Hub, c *gin.Context, issuer *token.Issuer) {
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.log.Warn("connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := issuer.Parse(tokenString)
	if err != nil {
		hub.log.WithError(err).Warn("connection rejected: invalid token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if !model.IsValidRole(claims.Role) {
		hub.log.WithField("role", claims.Role).Warn("connection rejected: unknown role")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.WithError(err).Warn("upgrade failed")
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, sendBuffer), UserID: userID}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
