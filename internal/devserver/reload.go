package devserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ReloadPath is where browsers connect for live reload notifications.
const ReloadPath = "/__frontbuild/reload"

// EventType is the kind of notification pushed to connected browsers.
type EventType string

const (
	EventReload EventType = "reload"
	EventCSS    EventType = "css"
	EventError  EventType = "error"
	EventClear  EventType = "clear"
)

// Event is the JSON message written to each websocket client.
type Event struct {
	Type  EventType `json:"type"`
	Error string    `json:"error,omitempty"`
	File  string    `json:"file,omitempty"`
}

// Hub tracks live reload clients and fans events out to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the dev server only listens locally
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and holds the connection until the browser goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Reload upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("Reload client connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(conn)
}

func (h *Hub) Reload() {
	h.Broadcast(Event{Type: EventReload})
}

// CSS asks clients to refresh stylesheets. An empty file refreshes all of them.
func (h *Hub) CSS(file string) {
	h.Broadcast(Event{Type: EventCSS, File: file})
}

func (h *Hub) Error(msg string) {
	h.Broadcast(Event{Type: EventError, Error: msg})
}

func (h *Hub) Clear() {
	h.Broadcast(Event{Type: EventClear})
}

// Broadcast writes ev to every client, dropping the ones that fail.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(c)
		}
	}

	h.logger.Debug().Str("event", string(ev.Type)).Int("clients", len(clients)).Msg("Broadcast reload event")
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.Close()
	}
}

// clientScript is appended to served HTML pages when live reload is on.
const clientScript = `<script>
(function () {
  var delay = 1000;
  function overlay(text) {
    clear();
    var el = document.createElement("pre");
    el.id = "frontbuild-error";
    el.style.cssText = "position:fixed;inset:0;margin:0;padding:24px;background:rgba(0,0,0,.9);color:#f55;font:14px monospace;white-space:pre-wrap;z-index:2147483647";
    el.textContent = text;
    document.body.appendChild(el);
  }
  function clear() {
    var el = document.getElementById("frontbuild-error");
    if (el) el.remove();
  }
  function refreshCSS(file) {
    document.querySelectorAll('link[rel="stylesheet"]').forEach(function (link) {
      var url = new URL(link.href);
      if (file && url.pathname.split("/").pop() !== file) return;
      url.searchParams.set("_reload", Date.now());
      link.href = url.toString();
    });
  }
  function connect() {
    var proto = location.protocol === "https:" ? "wss:" : "ws:";
    var ws = new WebSocket(proto + "//" + location.host + "` + ReloadPath + `");
    ws.onopen = function () { delay = 1000; };
    ws.onmessage = function (e) {
      var msg;
      try { msg = JSON.parse(e.data); } catch (err) { return; }
      if (msg.type === "reload") location.reload();
      else if (msg.type === "css") refreshCSS(msg.file);
      else if (msg.type === "error") overlay(msg.error);
      else if (msg.type === "clear") clear();
    };
    ws.onclose = function () {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 30000);
    };
  }
  connect();
})();
</script>
`
