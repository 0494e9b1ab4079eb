package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"tradevision/internal/domain/models"
	xlogger "tradevision/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	clientBacklog  = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type feedClient struct {
	conn   *websocket.Conn
	send   chan *models.SignalEvent
	symbol string // empty means all
	tf     string
}

// FeedHub fans accepted signals out to websocket subscribers. It
// implements the ingest pipeline's notifier hook.
type FeedHub struct {
	logger *xlogger.Logger

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

func NewFeedHub(logger *xlogger.Logger) *FeedHub {
	return &FeedHub{
		logger:  logger,
		clients: make(map[*feedClient]struct{}),
	}
}

func (h *FeedHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/ws", h.Serve)
}

// NotifySignal pushes a new signal to every matching subscriber. Slow
// clients get dropped rather than blocking the ingest path.
func (h *FeedHub) NotifySignal(s *models.Signal) {
	ev := models.NewSignalCreatedEvent(s)
	var slow []*feedClient
	h.mu.RLock()
	for client := range h.clients {
		if client.symbol != "" && client.symbol != s.Symbol {
			continue
		}
		if client.tf != "" && client.tf != s.Timeframe {
			continue
		}
		select {
		case client.send <- ev:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("feed client too slow, closing",
			xlogger.String("symbol", client.symbol))
		h.drop(client)
	}
}

func (h *FeedHub) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := &feedClient{
		conn:   conn,
		send:   make(chan *models.SignalEvent, clientBacklog),
		symbol: strings.ToUpper(c.QueryParam("symbol")),
		tf:     c.QueryParam("tf"),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	h.readLoop(client)
	return nil
}

func (h *FeedHub) writeLoop(client *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains the connection so pongs and close frames are handled;
// inbound payloads are ignored.
func (h *FeedHub) readLoop(client *feedClient) {
	defer h.drop(client)
	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *FeedHub) drop(client *feedClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	client.conn.Close()
}

// Shutdown closes every live connection.
func (h *FeedHub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
