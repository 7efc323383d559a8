package rpcserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket timeouts.
const (
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 60 * time.Second
)

var subscriptionSeq atomic.Uint64

// wsConn is one WebSocket client with its account subscriptions.
type wsConn struct {
	server *Server
	conn   *websocket.Conn

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[uint64]func() // subscription ID -> cancel
	wg   sync.WaitGroup
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("websocket upgrade: %v", err)
		return
	}

	c := &wsConn{
		server: s,
		conn:   conn,
		subs:   make(map[uint64]func()),
	}
	c.readLoop()
	c.closeAll()
	conn.Close()
}

func (c *wsConn) readLoop() {
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPingHandler(func(data string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(wsWriteTimeout))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.server.logf("websocket read: %v", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		c.write(c.handle(message))
	}
}

func (c *wsConn) handle(message []byte) *response {
	var req request
	if err := json.Unmarshal(message, &req); err != nil {
		return errorResponse(nil, &Error{Code: CodeParseError, Message: "Parse error"})
	}
	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, &Error{Code: CodeInvalidRequest, Message: "Invalid request"})
	}

	switch req.Method {
	case "accountSubscribe":
		id, rpcErr := c.subscribe(req.Params)
		if rpcErr != nil {
			return errorResponse(req.ID, rpcErr)
		}
		return &response{JSONRPC: "2.0", ID: req.ID, Result: id}
	case "accountUnsubscribe":
		var id uint64
		if rpcErr := parseParams(req.Params, 1, &id); rpcErr != nil {
			return errorResponse(req.ID, rpcErr)
		}
		return &response{JSONRPC: "2.0", ID: req.ID, Result: c.unsubscribe(id)}
	default:
		return errorResponse(req.ID, &Error{Code: CodeMethodNotFound, Message: "Method not found"})
	}
}

func (c *wsConn) subscribe(params json.RawMessage) (uint64, *Error) {
	var (
		address string
		cfg     accountConfig
	)
	if rpcErr := parseParams(params, 1, &address, &cfg); rpcErr != nil {
		return 0, rpcErr
	}
	pk, rpcErr := parsePubkey(address)
	if rpcErr != nil {
		return 0, rpcErr
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = EncodingBase58
	}
	if encoding != EncodingBase58 && encoding != EncodingBase64 {
		return 0, invalidParams("Invalid params: unsupported encoding %q", encoding)
	}

	updates, cancel := c.server.host.WatchAccount(pk)
	id := subscriptionSeq.Add(1)

	c.mu.Lock()
	c.subs[id] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for u := range updates {
			c.write(&notification{
				JSONRPC: "2.0",
				Method:  "accountNotification",
				Params: notificationParams{
					Subscription: id,
					Result: contextResult{
						Context: rpcContext{Slot: u.Slot},
						Value:   encodeAccount(u.Account, encoding),
					},
				},
			})
		}
	}()
	return id, nil
}

func (c *wsConn) unsubscribe(id uint64) bool {
	c.mu.Lock()
	cancel, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

func (c *wsConn) closeAll() {
	c.mu.Lock()
	for id, cancel := range c.subs {
		cancel()
		delete(c.subs, id)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *wsConn) write(v interface{}) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		c.server.logf("websocket write: %v", err)
	}
}
