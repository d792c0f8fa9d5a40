// Package bridge exposes the engine's events and editor calls to an
// out-of-process collaborator (a level editor or a host page) over a
// WebSocket. Events go out to every connection; commands come in as
// {"type", "payload"} objects and run on the frame loop.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Garsondee/tilestage/internal/engine"
	"github.com/Garsondee/tilestage/internal/event"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

const sendBuffer = 64

var ErrUnknownCommand = errors.New("unknown command")

// Engine is the part of the game the bridge drives.
type Engine interface {
	Events() *event.Emitter
	Enqueue(fn func(*engine.Game))
}

// Message is the envelope for both directions.
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"` // echoed on the command's result
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Result answers a command.
type Result struct {
	Command string `json:"command"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Hub fans engine events out to connected clients and feeds their commands
// back into the engine.
type Hub struct {
	eng      Engine
	log      *slog.Logger
	upgrader websocket.Upgrader
	off      func()

	mutex   sync.Mutex
	clients map[*client]struct{}
}

// NewHub subscribes to every engine event. Close unsubscribes and drops all
// clients.
func NewHub(eng Engine, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		eng: eng,
		log: log,
		upgrader: websocket.Upgrader{
			// The bridge serves local tools; any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	h.off = eng.Events().OnAny(h.broadcast)
	return h
}

// Clients returns the number of open connections.
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("bridge upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := &client{hub: h, ws: ws, send: make(chan []byte, sendBuffer)}
	h.mutex.Lock()
	h.clients[c] = struct{}{}
	h.mutex.Unlock()
	h.log.Info("bridge client connected", "remote", ws.RemoteAddr().String())

	go c.writePump()
	go c.readPump()
}

// Close disconnects every client and stops listening for events.
func (h *Hub) Close() {
	h.off()
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(ev event.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("encode event", "type", ev.Type, "err", err)
		return
	}
	msg, err := json.Marshal(Message{Type: ev.Type.String(), Payload: payload})
	if err != nil {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		c.queue(msg)
	}
}

type client struct {
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte
}

// queue drops the message when the client is not keeping up. Callers hold
// the hub mutex.
func (c *client) queue(msg []byte) {
	select {
	case c.send <- msg:
	default:
		c.hub.log.Warn("bridge client too slow, message dropped", "remote", c.ws.RemoteAddr().String())
	}
}

func (c *client) reply(id string, res Result) {
	data, err := json.Marshal(res)
	if err != nil {
		data, _ = json.Marshal(Result{Command: res.Command, Error: err.Error()})
	}
	msg, _ := json.Marshal(Message{Type: "result", ID: id, Payload: data})
	c.hub.mutex.Lock()
	defer c.hub.mutex.Unlock()
	if _, ok := c.hub.clients[c]; ok {
		c.queue(msg)
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.ws.Close()
	}()
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("bridge read", "err", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply("", Result{Command: "?", Error: fmt.Sprintf("decode message: %v", err)})
			continue
		}
		cmd, err := parseCommand(msg)
		if err != nil {
			c.reply(msg.ID, Result{Command: msg.Type, Error: err.Error()})
			continue
		}
		id := msg.ID
		c.hub.eng.Enqueue(func(g *engine.Game) {
			data, err := cmd(g)
			res := Result{Command: msg.Type, Data: data}
			if err != nil {
				res.Error = err.Error()
			}
			c.reply(id, res)
		})
	}
}

func (c *client) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// command runs on the frame loop.
type command func(g *engine.Game) (any, error)

func parseCommand(msg Message) (command, error) {
	decode := func(v any) error {
		if len(msg.Payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(msg.Payload, v); err != nil {
			return fmt.Errorf("%s payload: %w", msg.Type, err)
		}
		return nil
	}

	switch msg.Type {
	case "goToMap":
		var p struct {
			ID string `json:"id"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		return func(g *engine.Game) (any, error) { return g.GoToMap(p.ID).String(), nil }, nil

	case "addMap":
		var m world.Map
		if err := decode(&m); err != nil {
			return nil, err
		}
		return func(g *engine.Game) (any, error) { return nil, g.AddMap(&m) }, nil

	case "getMap":
		return func(g *engine.Game) (any, error) {
			b, err := g.MapJSON()
			return json.RawMessage(b), err
		}, nil

	case "paintTile":
		var p struct {
			Tile grid.Tile `json:"tile"`
			ID   string    `json:"id"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		return func(g *engine.Game) (any, error) { return nil, g.PaintTile(p.Tile, p.ID) }, nil

	case "resizeMap":
		var p struct {
			Edge  string `json:"edge"`
			Delta int    `json:"delta"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		edge, err := world.ParseEdge(p.Edge)
		if err != nil {
			return nil, err
		}
		return func(g *engine.Game) (any, error) { return nil, g.ResizeMap(edge, p.Delta) }, nil

	case "setTiles":
		var tiles []world.TileDef
		if err := decode(&tiles); err != nil {
			return nil, err
		}
		return func(g *engine.Game) (any, error) { g.SetTiles(tiles); return nil, nil }, nil

	case "saveMap":
		return func(g *engine.Game) (any, error) { return nil, g.SaveMap() }, nil

	case "setDebug":
		var d world.DebugConfig
		if err := decode(&d); err != nil {
			return nil, err
		}
		return func(g *engine.Game) (any, error) { g.SetDebug(d); return nil, nil }, nil

	case "moveActor":
		var p struct {
			ID   string    `json:"id"`
			Tile grid.Tile `json:"tile"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		return func(g *engine.Game) (any, error) {
			a, ok := g.GetActor(p.ID)
			if !ok {
				return nil, fmt.Errorf("actor %q not on map", p.ID)
			}
			if !g.CurrentMap().Contains(p.Tile) {
				return nil, fmt.Errorf("move %q to %v: %w", p.ID, p.Tile, engine.ErrOutOfBounds)
			}
			return a.MoveTo(p.Tile, nil), nil
		}, nil

	case "getActorsOnTile":
		var p struct {
			Tile grid.Tile `json:"tile"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		return func(g *engine.Game) (any, error) {
			var ids []string
			for _, a := range g.GetActorsOnTile(p.Tile) {
				ids = append(ids, a.ID())
			}
			return ids, nil
		}, nil
	}
	return nil, fmt.Errorf("%q: %w", msg.Type, ErrUnknownCommand)
}
