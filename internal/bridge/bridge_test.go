package bridge

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/tilestage/internal/engine"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

type harness struct {
	t    *testing.T
	tg   *engine.TestGame
	hub  *Hub
	conn *websocket.Conn
	in   chan Message
}

func newHarness(t *testing.T, opts ...engine.TestOption) *harness {
	t.Helper()
	tg := engine.NewTestGame(opts...)
	hub := NewHub(tg.Game, tg.Log)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	h := &harness{t: t, tg: tg, hub: hub, conn: conn, in: make(chan Message, 64)}
	go func() {
		defer close(h.in)
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			h.in <- msg
		}
	}()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)
	return h
}

func (h *harness) send(typ, id string, payload any) {
	h.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(h.t, err)
	require.NoError(h.t, h.conn.WriteJSON(Message{Type: typ, ID: id, Payload: raw}))
}

// await ticks the game until a message of type typ arrives.
func (h *harness) await(typ string) Message {
	h.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		h.tg.Tick(0.1)
		select {
		case msg, ok := <-h.in:
			require.True(h.t, ok, "connection closed")
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			h.t.Fatalf("no %q message", typ)
		case <-time.After(time.Millisecond):
		}
	}
}

func worldActor(id string, x, y int) world.ActorConfig {
	return world.ActorConfig{ID: id, Tile: grid.Tile{X: x, Y: y}, Speed: 80}
}

func result(t *testing.T, msg Message) Result {
	t.Helper()
	var r Result
	require.NoError(t, json.Unmarshal(msg.Payload, &r))
	return r
}

func TestHub_PaintTileCommand(t *testing.T) {
	h := newHarness(t, engine.WithGrid("...", "..."))
	h.send("paintTile", "c1", map[string]any{"tile": grid.Tile{X: 1, Y: 0}, "id": "wall"})

	msg := h.await("result")
	assert.Equal(t, "c1", msg.ID)
	res := result(t, msg)
	assert.Equal(t, "paintTile", res.Command)
	assert.Empty(t, res.Error)
	assert.True(t, h.tg.Mesh().IsBlocked(grid.Tile{X: 1, Y: 0}))
}

func TestHub_CommandErrorsComeBack(t *testing.T) {
	h := newHarness(t, engine.WithGrid("..."))

	h.send("paintTile", "c1", map[string]any{"tile": grid.Tile{X: 9, Y: 9}, "id": "wall"})
	res := result(t, h.await("result"))
	assert.Contains(t, res.Error, "outside the map")

	h.send("teleport", "c2", nil)
	res = result(t, h.await("result"))
	assert.Equal(t, "teleport", res.Command)
	assert.Contains(t, res.Error, ErrUnknownCommand.Error())

	h.send("resizeMap", "c3", map[string]any{"edge": "diagonal", "delta": 1})
	res = result(t, h.await("result"))
	assert.Contains(t, res.Error, "unknown edge")
}

func TestHub_BroadcastsEvents(t *testing.T) {
	h := newHarness(t, engine.WithActor(worldActor("npc", 0, 0)), engine.WithPlayerAt(3, 3))
	h.send("moveActor", "m", map[string]any{"id": "npc", "tile": grid.Tile{X: 2, Y: 0}})

	res := result(t, h.await("result"))
	assert.Equal(t, true, res.Data)

	msg := h.await("actorReachedTarget")
	var ev struct {
		Type   string    `json:"type"`
		Tile   grid.Tile `json:"tile"`
		Actors []string  `json:"actors"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &ev))
	assert.Equal(t, "actorReachedTarget", ev.Type)
	assert.Equal(t, grid.Tile{X: 2, Y: 0}, ev.Tile)
	assert.Equal(t, []string{"npc"}, ev.Actors)
}

func TestHub_GetMapAndActors(t *testing.T) {
	h := newHarness(t, engine.WithGrid("..", "#."), engine.WithPlayerAt(1, 1))

	h.send("getActorsOnTile", "a", map[string]any{"tile": grid.Tile{X: 1, Y: 1}})
	res := result(t, h.await("result"))
	assert.Equal(t, []any{"player"}, res.Data)

	h.send("getMap", "b", nil)
	res = result(t, h.await("result"))
	m, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "test", m["id"])
}

func TestHub_CloseDisconnects(t *testing.T) {
	h := newHarness(t)
	h.hub.Close()
	assert.Equal(t, 0, h.hub.Clients())
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-h.in:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)
}

func TestHub_MoveActorOffMapRejected(t *testing.T) {
	h := newHarness(t, engine.WithActor(worldActor("npc", 0, 0)), engine.WithPlayerAt(3, 3))
	h.send("moveActor", "m", map[string]any{"id": "npc", "tile": grid.Tile{X: 40, Y: 0}})
	res := result(t, h.await("result"))
	assert.Contains(t, res.Error, "outside the map")

	h.send("moveActor", "n", map[string]any{"id": "ghost", "tile": grid.Tile{X: 1, Y: 0}})
	res = result(t, h.await("result"))
	assert.Contains(t, res.Error, "not on map")
}
