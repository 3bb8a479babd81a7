package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// inboundEvent - кадр от клиента.
type inboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Client - websocket-подключение одного пользователя.
// Все исходящие события проходят через одну очередь, поэтому доставляются в порядке отправки.
type Client struct {
	userId    string
	presence  Presence
	conn      *websocket.Conn
	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
	log       *zap.SugaredLogger
}

// Serve переводит запрос в websocket, регистрирует подключение пользователя userId
// и обслуживает его до разрыва. Аутентификация выполняется вызывающим.
func Serve(w http.ResponseWriter, r *http.Request, presence Presence, userId string, sendBuffer int, log *zap.SugaredLogger) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := newClient(conn, presence, userId, sendBuffer, log)
	presence.Connect(userId, c)

	go c.writePump()
	c.readPump()
	return nil
}

func newClient(conn *websocket.Conn, presence Presence, userId string, sendBuffer int, log *zap.SugaredLogger) *Client {
	return &Client{
		userId:   userId,
		presence: presence,
		conn:     conn,
		send:     make(chan Event, sendBuffer),
		done:     make(chan struct{}),
		log:      log,
	}
}

// Deliver ставит событие в очередь без блокировки.
func (c *Client) Deliver(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Close завершает обслуживание подключения: writePump отправляет кадр закрытия
// и закрывает сокет, после чего readPump выходит. Повторный вызов безопасен.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.presence.Disconnect(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev inboundEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debugw("realtime connection closed", "user", c.userId, "error", err)
			}
			return
		}
		c.handleInbound(ev)
	}
}

func (c *Client) handleInbound(ev inboundEvent) {
	switch ev.Name {
	case EventJoinRoom:
		var room string
		if err := json.Unmarshal(ev.Data, &room); err != nil || room != c.userId {
			c.log.Warnw("ignoring join_room for foreign room", "user", c.userId, "room", room)
			return
		}
		c.presence.Connect(c.userId, c)
	default:
		c.log.Debugw("ignoring unknown realtime event", "user", c.userId, "event", ev.Name)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.Debugw("realtime write failed", "user", c.userId, "event", ev.Name, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
