package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/state"
)

// mockClient creates a client with a send channel but no connection.
func mockClient(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan []byte, sendBufferSize)}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	c1, c2 := mockClient(hub), mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}
}

func TestAttachBroadcastsEveryWrite(t *testing.T) {
	hub := NewHub(nil)
	s := state.New(model.DefaultDocument(), nil)
	hub.Attach(s)

	c := mockClient(hub)
	hub.Register(c)
	defer hub.Unregister(c)

	s.Update(func(doc *model.Document) { doc.Settings.WeightUnit = model.UnitKilogram })
	s.UpdateSession(func(sess *model.Session) { sess.SharedWalk = &model.Walk{ID: "x"} })

	first, second := receive(t, c), receive(t, c)
	if first.Type != TypeStateChanged || first.Seq != 1 || first.Shared {
		t.Errorf("unexpected first message %+v", first)
	}
	if second.Seq != 2 || !second.Shared {
		t.Errorf("unexpected second message %+v", second)
	}
}

func TestBroadcastFullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	c := mockClient(hub)
	hub.Register(c)
	defer hub.Unregister(c)

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBufferSize*2; i++ {
			hub.Broadcast(Message{Type: TypeStateChanged, Seq: uint64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	if len(c.send) != sendBufferSize {
		t.Errorf("expected a full buffer, got %d", len(c.send))
	}
}

func TestHandlerDeliversMessages(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(Handler(hub, nil, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for hub.ClientCount() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	hub.Broadcast(Message{Type: TypeStateChanged, Seq: 7})
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Seq != 7 {
		t.Errorf("expected seq 7, got %d", msg.Seq)
	}

	conn.Close(ws.StatusNormalClosure, "")
}
