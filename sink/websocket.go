package sink

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"mspmon/telemetry"
)

const wsWriteTimeout = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	out  chan []byte
}

// WebSocket serves records as JSON messages to every client
// connected to /telemetry, and the latest record at /latest.
// Slow clients miss records instead of blocking the poller.
type WebSocket struct {
	srv *http.Server
	ln  net.Listener
	now func() time.Time

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	latest  []byte
}

// NewWebSocket starts serving on addr.
func NewWebSocket(addr string) (*WebSocket, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	ws := &WebSocket{
		ln:      ln,
		now:     time.Now,
		clients: make(map[*wsClient]struct{}),
	}
	r := mux.NewRouter()
	r.HandleFunc("/telemetry", ws.handleTelemetry).Methods("GET")
	r.HandleFunc("/latest", ws.handleLatest).Methods("GET")
	ws.srv = &http.Server{Handler: r}
	go func() {
		if err := ws.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("websocket server: %v", err)
		}
	}()
	log.Infof("serving telemetry on ws://%s/telemetry", ln.Addr())
	return ws, nil
}

// Addr returns the address the server listens on.
func (ws *WebSocket) Addr() net.Addr {
	return ws.ln.Addr()
}

func (ws *WebSocket) handleLatest(w http.ResponseWriter, r *http.Request) {
	ws.mu.Lock()
	latest := ws.latest
	ws.mu.Unlock()
	if latest == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	w.Write(latest)
}

func (ws *WebSocket) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("websocket upgrade: %v", err)
		return
	}
	c := &wsClient{conn: conn, out: make(chan []byte, 16)}
	ws.mu.Lock()
	ws.clients[c] = struct{}{}
	ws.mu.Unlock()
	log.Debugf("websocket client %s connected", conn.RemoteAddr())

	go ws.writeLoop(c)
	// Incoming messages are ignored, reading detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	ws.remove(c)
}

func (ws *WebSocket) writeLoop(c *wsClient) {
	for msg := range c.out {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debugf("websocket client %s: %v", c.conn.RemoteAddr(), err)
			ws.remove(c)
			return
		}
	}
}

func (ws *WebSocket) remove(c *wsClient) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.clients[c]; !ok {
		return
	}
	delete(ws.clients, c)
	close(c.out)
	c.conn.Close()
	log.Debugf("websocket client %s disconnected", c.conn.RemoteAddr())
}

func (ws *WebSocket) Emit(rec telemetry.Record) error {
	msg, err := encodeJSON(rec, ws.now())
	if err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.latest = msg
	for c := range ws.clients {
		select {
		case c.out <- msg:
		default:
		}
	}
	return nil
}

func (ws *WebSocket) Close() error {
	err := ws.srv.Close()
	ws.mu.Lock()
	clients := make([]*wsClient, 0, len(ws.clients))
	for c := range ws.clients {
		clients = append(clients, c)
	}
	ws.mu.Unlock()
	for _, c := range clients {
		ws.remove(c)
	}
	return err
}
