package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/pavanpakhare/javanotes/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

func (s *AuthoringServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin already validated above against the configured allowlist.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	go client.writePump()
	go client.readPump()

	s.register <- client
}

// checkOrigin accepts browsers on this server's own address, the localhost
// variants of its port, and any origin from server.allowed_origins.
func (s *AuthoringServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	allowed := []string{
		fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		fmt.Sprintf("localhost:%d", s.config.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", s.config.Server.Port),
	}
	for _, entry := range s.config.Server.AllowedOrigins {
		if u, err := url.Parse(entry); err == nil && u.Host != "" {
			allowed = append(allowed, u.Host)
			continue
		}
		// Bare host:port entries are allowed as written.
		allowed = append(allowed, entry)
	}

	for _, host := range allowed {
		if originURL.Host == host {
			return true
		}
	}
	return false
}

// runHub owns the client set: registrations, disconnects, and fan-out of
// broadcast messages, evicting clients whose send buffers are full.
func (s *AuthoringServer) runHub(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-s.register:
			if client == nil || client.conn == nil {
				continue
			}
			s.clientsMutex.Lock()
			s.clients[client.conn] = client
			count := len(s.clients)
			s.clientsMutex.Unlock()
			metrics.WebsocketClients.Set(float64(count))
			s.logger.Debug(ctx, "live-reload client connected", "id", client.id, "clients", count)

		case conn := <-s.unregister:
			if conn == nil {
				continue
			}
			s.clientsMutex.Lock()
			if client, ok := s.clients[conn]; ok {
				delete(s.clients, conn)
				close(client.send)
				conn.Close(websocket.StatusNormalClosure, "")
				s.logger.Debug(ctx, "live-reload client disconnected", "id", client.id, "clients", len(s.clients))
			}
			count := len(s.clients)
			s.clientsMutex.Unlock()
			metrics.WebsocketClients.Set(float64(count))

		case message := <-s.broadcast:
			s.clientsMutex.RLock()
			var failed []*websocket.Conn
			for conn, client := range s.clients {
				select {
				case client.send <- message:
				default:
					failed = append(failed, conn)
				}
			}
			s.clientsMutex.RUnlock()

			if len(failed) > 0 {
				s.clientsMutex.Lock()
				for _, conn := range failed {
					if client, ok := s.clients[conn]; ok {
						delete(s.clients, conn)
						close(client.send)
						conn.Close(websocket.StatusPolicyViolation, "send buffer overflow")
					}
				}
				count := len(s.clients)
				s.clientsMutex.Unlock()
				metrics.WebsocketClients.Set(float64(count))
			}
		}
	}
}

// readPump drains the connection so pings are answered and closes are seen.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c.conn:
		default:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, cancel := context.WithTimeout(context.Background(), pongWait)
		_, _, err := c.conn.Read(readCtx)
		cancel()

		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				websocket.CloseStatus(err) != websocket.StatusGoingAway {
				c.server.logger.Debug(context.Background(), "websocket read ended",
					"id", c.id, "reason", err.Error())
			}
			return
		}
	}
}

// writePump delivers queued messages and keeps the connection alive with
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			writeCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				cancel()
				return
			}
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
