// internal/handlers/table_hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/game"
	"github.com/sirupsen/logrus"
)

const (
	clientSendBuffer = 64
	writeTimeout     = 3 * time.Second
)

// tableClient is one socket attached to a table. Events are written by a
// single goroutine so they reach the client in broadcast order.
type tableClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *tableClient) close() {
	c.once.Do(func() { close(c.done) })
}

// tableHub fans table events out to the connected sockets. It has its own
// lock; the table calls broadcast with the table lock held.
type tableHub struct {
	tableID uuid.UUID
	logger  *logrus.Logger

	mu      sync.Mutex
	clients map[*tableClient]struct{}
}

func newTableHub(tableID uuid.UUID, logger *logrus.Logger) *tableHub {
	return &tableHub{
		tableID: tableID,
		logger:  logger,
		clients: make(map[*tableClient]struct{}),
	}
}

// join registers conn and starts its writer.
func (h *tableHub) join(conn *websocket.Conn) *tableClient {
	c := &tableClient{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go h.writeLoop(c)
	return c
}

func (h *tableHub) leave(c *tableClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *tableHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast queues ev for every client. A client whose buffer is full is dropped.
func (h *tableHub) broadcast(ev game.TableEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorf("Failed to marshal table event (%s) for table %s: %v", ev.Type, h.tableID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warnf("Client on table %s is not keeping up; disconnecting.", h.tableID)
			delete(h.clients, c)
			c.close()
			go c.conn.Close(SlowConsumerError, "too slow")
		}
	}
}

// closeAll disconnects every client, e.g. when the table is pruned.
func (h *tableHub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*tableClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
		c.conn.Close(InvalidTableIDError, "table closed")
	}
}

func (h *tableHub) writeLoop(c *tableClient) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.logger.Warnf("Failed to write table event on table %s: %v", h.tableID, err)
				h.leave(c)
				return
			}
		}
	}
}
