package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

const (
	EventTradesReplaced = "trades_replaced"
	EventTradeDeleted   = "trade_deleted"
)

// SyncEvent tells a connected client that server-side state for its
// owner changed and a refresh is due.
type SyncEvent struct {
	Type       string    `json:"type"`
	TelegramID string    `json:"telegramId"`
	TradeID    string    `json:"tradeId,omitempty"`
	Count      int       `json:"count"`
	Timestamp  time.Time `json:"timestamp"`
}

// SyncHub fans sync events out to WebSocket clients. Delivery is
// best-effort: events are only routed to clients subscribed to the
// event's owner, and slow clients are dropped.
type SyncHub struct {
	clients    map[*SyncClient]bool
	broadcast  chan SyncEvent
	register   chan *SyncClient
	unregister chan *SyncClient
}

type SyncClient struct {
	hub        *SyncHub
	conn       *websocket.Conn
	send       chan []byte
	telegramID string
}

func NewSyncHub() *SyncHub {
	return &SyncHub{
		clients:    make(map[*SyncClient]bool),
		broadcast:  make(chan SyncEvent),
		register:   make(chan *SyncClient),
		unregister: make(chan *SyncClient),
	}
}

// Run owns the client map; all registration and routing goes through
// this loop so no lock is needed.
func (h *SyncHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("Sync client connected for user %s. Total clients: %d", client.telegramID, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("Sync client disconnected. Total clients: %d", len(h.clients))
			}

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error marshaling sync event: %v", err)
				continue
			}

			for client := range h.clients {
				if client.telegramID != event.TelegramID {
					continue
				}
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Publish stamps the event and hands it to the run loop.
func (h *SyncHub) Publish(event SyncEvent) {
	event.Timestamp = time.Now()
	h.broadcast <- event
}

func (h *SyncHub) RegisterClient(conn *websocket.Conn, telegramID string) *SyncClient {
	client := &SyncClient{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, 256),
		telegramID: telegramID,
	}
	h.register <- client
	return client
}

func (c *SyncClient) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *SyncClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
