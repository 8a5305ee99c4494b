package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"zentari/internal/domain"
	"zentari/internal/entitlement"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type fakeSource struct {
	power atomic.Int64
}

func (f *fakeSource) GetStatus(ctx context.Context, userID string) (*entitlement.Status, error) {
	if userID == "ghost" {
		return nil, domain.ErrNotFound
	}
	return &entitlement.Status{UserID: userID, Balances: entitlement.Balances{Power: f.power.Load()}}, nil
}

func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set("user_id", c.Query("user"))
	}, HandleWS(ctx, hub, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func readStatus(t *testing.T, conn *websocket.Conn) StatusPayload {
	t.Helper()
	env := readEnvelope(t, conn)
	if env.Type != MsgStatus {
		t.Fatalf("message type = %q; want %q", env.Type, MsgStatus)
	}
	var p StatusPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return p
}

func TestStatusFeed(t *testing.T) {
	src := &fakeSource{}
	hub := NewHub(src)
	url := startServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?user=42", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if env := readEnvelope(t, conn); env.Type != MsgReady {
		t.Fatalf("first message = %q", env.Type)
	}
	if p := readStatus(t, conn); p.Status.UserID != "42" || p.Status.Balances.Power != 0 {
		t.Fatalf("initial status = %+v", p.Status)
	}

	src.power.Store(7)
	hub.AccountChanged("42", "tap")
	p := readStatus(t, conn)
	if p.Operation != "tap" || p.Status.Balances.Power != 7 {
		t.Fatalf("pushed status = %+v (%s)", p.Status, p.Operation)
	}

	// changes for other users are not delivered here
	hub.AccountChanged("43", "tap")
	if err := conn.WriteJSON(Envelope{Type: MsgPing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if env := readEnvelope(t, conn); env.Type != MsgPong {
		t.Fatalf("reply = %q; want pong", env.Type)
	}

	if err := conn.WriteJSON(Envelope{Type: "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if env := readEnvelope(t, conn); env.Type != MsgError {
		t.Fatalf("reply = %q; want error", env.Type)
	}
}

func TestUnknownAccountGetsError(t *testing.T) {
	hub := NewHub(&fakeSource{})
	url := startServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?user=ghost", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readEnvelope(t, conn)
	if env := readEnvelope(t, conn); env.Type != MsgError {
		t.Fatalf("message = %q; want error", env.Type)
	}
}

func TestAccountChangedWithoutClientsIsNoop(t *testing.T) {
	hub := NewHub(&fakeSource{})
	for range 2000 {
		hub.AccountChanged("nobody", "tap")
	}
	if len(hub.changes) != 0 || hub.Connections() != 0 {
		t.Fatalf("queued %d changes for a disconnected user", len(hub.changes))
	}
}
