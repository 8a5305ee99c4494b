package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"zentari/internal/clock"
	"zentari/internal/config"
	"zentari/internal/entitlement"
	httpserver "zentari/internal/http"
	"zentari/internal/http/handlers"
	"zentari/internal/migrations"
	"zentari/internal/repository"
	"zentari/internal/service"
	"zentari/internal/telegram"
	"zentari/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

const botToken = "123456:e2e-bot-token"

type e2e struct {
	t   *testing.T
	url string
}

func newE2E(t *testing.T) *e2e {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := migrations.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	gin.SetMode(gin.TestMode)
	service.InitJWT("e2e-secret", time.Hour)

	store := repository.NewAccountRepository(pool)
	audit := service.NewAuditService(repository.NewAuditRepository(pool))
	hub := ws.NewHub(nil)
	engine := service.NewEngine(store, entitlement.Defaults(), clock.Real{},
		service.WithAudit(audit), service.WithNotifier(hub))
	hub.SetSource(engine)
	go func() { _ = hub.Run(ctx) }()

	cfg := &config.Config{
		APIRateLimit: 1000, APIRateWindow: time.Minute,
		AuthRateLimit: 1000, AuthRateWindow: time.Minute,
		ActionRateLimit: 1000, ActionRateWindow: time.Minute,
	}
	r := httpserver.NewRouter(ctx, httpserver.Deps{
		Handler: &handlers.Handler{
			Engine:      engine,
			Tasks:       service.NewTaskService(repository.NewTaskRepository(pool), engine),
			Audit:       audit,
			BotToken:    botToken,
			BotUsername: "ZentariBot",
		},
		Health: handlers.NewHealthHandler("e2e", "store", map[string]handlers.PingFunc{"store": store.Ping}),
		Hub:    hub,
		Config: cfg,
	})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return &e2e{t: t, url: ts.URL}
}

func (e *e2e) post(path, token string, body any) (int, map[string]any) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(http.MethodPost, e.url+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// signedInitData builds init data the way the Telegram client does.
func signedInitData(tgID int64, username string) string {
	vals := url.Values{}
	vals.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	vals.Set("query_id", "e2e")
	vals.Set("user", fmt.Sprintf(`{"id":%d,"username":%q}`, tgID, username))
	vals.Set("hash", telegram.Sign(vals, botToken))
	return vals.Encode()
}

func TestE2E_StatusFeedFollowsTaps(t *testing.T) {
	e := newE2E(t)

	tgID := time.Now().UnixNano() % 1_000_000_000_000
	username := fmt.Sprintf("e2e_%d", tgID)

	code, auth := e.post("/api/v1/auth", "", gin.H{"init_data": signedInitData(tgID, username)})
	if code != http.StatusOK {
		t.Fatalf("auth = %d %v", code, auth)
	}
	token := auth["token"].(string)

	if code, body := e.post("/api/v1/register", token, gin.H{"username": username}); code != http.StatusCreated {
		t.Fatalf("register = %d %v", code, body)
	}

	wsURL := strings.Replace(e.url, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() ws.Envelope {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var env ws.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		return env
	}
	if env := read(); env.Type != ws.MsgReady {
		t.Fatalf("first message = %q", env.Type)
	}
	if env := read(); env.Type != ws.MsgStatus {
		t.Fatalf("second message = %q", env.Type)
	}

	if code, body := e.post("/api/v1/tap", token, gin.H{"count": 3}); code != http.StatusOK {
		t.Fatalf("tap = %d %v", code, body)
	}

	env := read()
	if env.Type != ws.MsgStatus {
		t.Fatalf("push type = %q", env.Type)
	}
	var p ws.StatusPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode push: %v", err)
	}
	if p.Operation != "tap" || p.Status.Balances.Power != 3 {
		t.Fatalf("push = %s %+v", p.Operation, p.Status.Balances)
	}
}

func TestE2E_RejectsForgedInitData(t *testing.T) {
	e := newE2E(t)

	vals, _ := url.ParseQuery(signedInitData(77, "mallory"))
	vals.Set("user", `{"id":1,"username":"victim"}`)

	if code, body := e.post("/api/v1/auth", "", gin.H{"init_data": vals.Encode()}); code != http.StatusUnauthorized {
		t.Fatalf("forged auth = %d %v", code, body)
	}
}
