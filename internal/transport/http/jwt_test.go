package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

func testJWT() *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte("testsecret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Minute,
	}
}

func makeJWT(secret, aud, iss, sub string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(ttl).Unix(),
	}
	if aud != "" {
		claims["aud"] = aud
	}
	if iss != "" {
		claims["iss"] = iss
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func TestAPIRequiresToken(t *testing.T) {
	r := startTestServer(t, nil, testJWT())

	resp, err := r.ts.Client().Get(r.ts.URL + "/api/subscribers")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAPIAcceptsValidToken(t *testing.T) {
	cfg := testJWT()
	r := startTestServer(t, nil, cfg)

	token, err := auth.GenerateToken(cfg, "ops", "")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, r.ts.URL+"/api/subscribers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := r.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAPIRejectsWrongSecret(t *testing.T) {
	r := startTestServer(t, nil, testJWT())

	token, err := makeJWT("othersecret", "test", "test", "ops", time.Minute)
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, r.ts.URL+"/api/subscribers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := r.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWebSocketJWTQueryToken(t *testing.T) {
	cfg := testJWT()
	r := startTestServer(t, nil, cfg)

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	if _, _, err := websocket.Dial(ctx, r.wsURL(), nil); err == nil {
		t.Fatal("expected dial without token to fail")
	}

	token, err := makeJWT("testsecret", "test", "test", "ops", time.Minute)
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}

	conn, _, err := websocket.Dial(ctx, r.wsURL()+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial with token: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	waitFor(t, func() bool { return len(r.reg.List()) == 1 })
}

func TestWebSocketJWTExpired(t *testing.T) {
	r := startTestServer(t, nil, testJWT())

	token, err := makeJWT("testsecret", "test", "test", "ops", -time.Minute)
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	_, resp, err := websocket.Dial(ctx, r.wsURL()+"?token="+token, nil)
	if err == nil {
		t.Fatal("expected expired token to be rejected")
	}
	if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWebSocketJWTBearerHeader(t *testing.T) {
	cfg := testJWT()
	r := startTestServer(t, nil, cfg)

	token, err := auth.GenerateToken(cfg, "ops", "")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn, _, err := websocket.Dial(ctx, r.wsURL(), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	if err != nil {
		t.Fatalf("dial with header: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if err := wsjson.Write(ctx, conn, proto.Message{Sender: core.SentinelScreenshot}); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { return r.inbox.Len() == 1 })
}

func TestAPIIgnoresQueryToken(t *testing.T) {
	cfg := testJWT()
	r := startTestServer(t, nil, cfg)

	token, err := auth.GenerateToken(cfg, "ops", "")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	resp, err := r.ts.Client().Get(r.ts.URL + "/api/subscribers?token=" + token)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
