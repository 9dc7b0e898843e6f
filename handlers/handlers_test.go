package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"teetime/middleware"
	"teetime/models"
	"teetime/realtime"
	"teetime/services"
	"teetime/testutil"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type testServer struct {
	app    *fiber.App
	db     *gorm.DB
	signer *utils.TokenSigner
}

func newTestServer(t *testing.T, routes RouteConfig) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	signer := utils.NewTokenSigner("handler-test-secret-with-enough-bytes", time.Hour)
	notifier := services.NewNotificationService(db, &testutil.Mailer{}, "http://app.test")
	chat := services.NewChatService(db, notifier, nil)
	hub := realtime.NewHub(chat)
	chat.SetBroadcaster(hub)

	Init(Deps{
		DB:            db,
		Auth:          services.NewAuthService(db, signer, notifier),
		Users:         services.NewUserService(db, testutil.NewStore()),
		Matches:       services.NewMatchService(db, notifier),
		Ratings:       services.NewRatingService(db, notifier),
		Groups:        services.NewGroupService(db, notifier, testutil.NewStore()),
		Chat:          chat,
		Notifications: notifier,
		Courses:       services.NewCourseService(db),
		Contact:       services.NewContactService(db, notifier, "team@teetime.test"),
		Hub:           hub,
		MailState:     func() string { return "closed" },
	})

	app := fiber.New()
	routes.Signer = signer
	RegisterRoutes(app, routes)
	return &testServer{app: app, db: db, signer: signer}
}

func (s *testServer) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := s.signer.Generate(u.ID, u.Name)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, RouteConfig{})
	for _, path := range []string{"/health", "/api/health"} {
		status, body := s.do(t, http.MethodGet, path, "", nil)
		if status != fiber.StatusOK {
			t.Fatalf("%s: status %d", path, status)
		}
		if body["database"] != "ok" || body["mail_queue"] != "closed" || body["websocket_connections"] != float64(0) {
			t.Errorf("%s: unexpected body %v", path, body)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, RouteConfig{})
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(raw), "teetime_ws_connections") {
		t.Errorf("status %d, body missing the websocket gauge", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, RouteConfig{})
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/matches"},
		{http.MethodPost, "/api/matches/1/join"},
		{http.MethodGet, "/api/groups"},
		{http.MethodGet, "/api/notifications/unread-count"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			status, body := s.do(t, p.method, p.path, "", nil)
			if status != fiber.StatusUnauthorized || body["success"] != false {
				t.Errorf("expected 401, got %d %v", status, body)
			}
		})
	}

	status, _ := s.do(t, http.MethodGet, "/api/courses", "", nil)
	if status != fiber.StatusOK {
		t.Errorf("course directory should be public, got %d", status)
	}
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	s := newTestServer(t, RouteConfig{})
	creds := map[string]string{"name": "Quinn", "email": "quinn@example.com", "password": "fairway123"}

	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", creds)
	if status != fiber.StatusCreated || body["token"] == "" {
		t.Fatalf("register: %d %v", status, body)
	}
	if user, ok := body["user"].(map[string]interface{}); !ok || user["password"] != nil {
		t.Errorf("user must be returned without the password hash: %v", body["user"])
	}

	status, body = s.do(t, http.MethodPost, "/api/auth/register", "", creds)
	if status != fiber.StatusConflict {
		t.Errorf("duplicate register: %d %v", status, body)
	}

	status, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "quinn@example.com", "password": "wrong-pass"})
	if status != fiber.StatusUnauthorized {
		t.Errorf("bad login: %d", status)
	}

	status, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "quinn@example.com", "password": "fairway123"})
	if status != fiber.StatusOK {
		t.Fatalf("login: %d %v", status, body)
	}
	token, _ := body["token"].(string)
	status, body = s.do(t, http.MethodGet, "/api/profile", token, nil)
	if status != fiber.StatusOK {
		t.Errorf("profile with issued token: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	if status != fiber.StatusOK {
		t.Errorf("forgot password should not reveal accounts: %d %v", status, body)
	}
}

func TestMatchEndpoints(t *testing.T) {
	s := newTestServer(t, RouteConfig{})
	host := testutil.CreateUser(t, s.db, "host")
	guest := testutil.CreateUser(t, s.db, "guest")
	hostToken, guestToken := s.tokenFor(t, host), s.tokenFor(t, guest)

	status, body := s.do(t, http.MethodPost, "/api/matches", hostToken, map[string]interface{}{
		"title":       "Twilight nine",
		"course_name": "Sharp Park",
		"date":        time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"max_players": 3,
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create: %d %v", status, body)
	}
	matchID := uint(body["match"].(map[string]interface{})["id"].(float64))
	base := fmt.Sprintf("/api/matches/%d", matchID)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
		err    string
	}{
		{"bad id", http.MethodGet, "/api/matches/abc", guestToken, nil, fiber.StatusBadRequest, "Invalid match ID"},
		{"missing match", http.MethodGet, "/api/matches/9999", guestToken, nil, fiber.StatusNotFound, "Match not found"},
		{"join own match", http.MethodPost, base + "/join", hostToken, nil, fiber.StatusBadRequest, "You cannot join your own match"},
		{"requests are creator only", http.MethodGet, base + "/requests", guestToken, nil, fiber.StatusForbidden, ""},
		{"bad status", http.MethodPut, base + "/status", hostToken, map[string]string{"status": "postponed"}, fiber.StatusBadRequest, "Status must be completed or cancelled"},
		{"chat is for players", http.MethodGet, base + "/chat", guestToken, nil, fiber.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, tt.token, tt.body)
			if status != tt.status {
				t.Fatalf("status %d, want %d (%v)", status, tt.status, body)
			}
			if tt.err != "" && body["error"] != tt.err {
				t.Errorf("error %v, want %q", body["error"], tt.err)
			}
		})
	}

	status, body = s.do(t, http.MethodPost, base+"/join", guestToken, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("join: %d %v", status, body)
	}
	requestID := uint(body["request"].(map[string]interface{})["id"].(float64))

	status, body = s.do(t, http.MethodPost, base+"/join", guestToken, nil)
	if status != fiber.StatusConflict {
		t.Errorf("second join: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPut, fmt.Sprintf("%s/requests/%d", base, requestID), hostToken, map[string]string{"action": "accept"})
	if status != fiber.StatusOK {
		t.Fatalf("accept: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, base+"/chat", guestToken, map[string]string{"content": "See you on the first tee"})
	if status != fiber.StatusCreated {
		t.Errorf("post chat: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodGet, base+"/players", guestToken, nil)
	if players, _ := body["players"].([]interface{}); status != fiber.StatusOK || len(players) != 2 {
		t.Errorf("players: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodGet, "/api/notifications/unread-count", hostToken, nil)
	if status != fiber.StatusOK || body["unread_count"] == nil {
		t.Errorf("unread count: %d %v", status, body)
	}
}

func TestInvalidBody(t *testing.T) {
	s := newTestServer(t, RouteConfig{})
	user := testutil.CreateUser(t, s.db, "sam")

	req := httptest.NewRequest(http.MethodPost, "/api/matches", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.tokenFor(t, user))
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCoursesMapValidation(t *testing.T) {
	s := newTestServer(t, RouteConfig{})

	status, body := s.do(t, http.MethodGet, "/api/courses/map?south=1&west=2&north=x&east=4", "", nil)
	if status != fiber.StatusBadRequest || body["error"] != "Query parameter north must be a number" {
		t.Errorf("bad coordinate: %d %v", status, body)
	}
	status, _ = s.do(t, http.MethodGet, "/api/courses/map?south=10&west=2&north=1&east=4", "", nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("inverted box: %d", status)
	}
	status, _ = s.do(t, http.MethodGet, "/api/courses/map?south=1&west=2&north=10&east=4", "", nil)
	if status != fiber.StatusOK {
		t.Errorf("valid box: %d", status)
	}
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, RouteConfig{AuthLimiter: middleware.NewRateLimiter("auth-test", 2, time.Minute)})
	login := map[string]string{"email": "who@example.com", "password": "whatever1"}

	for i := 0; i < 2; i++ {
		if status, _ := s.do(t, http.MethodPost, "/api/auth/login", "", login); status != fiber.StatusUnauthorized {
			t.Fatalf("attempt %d: %d", i+1, status)
		}
	}
	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", login)
	if status != fiber.StatusTooManyRequests || body["success"] != false {
		t.Errorf("expected 429, got %d %v", status, body)
	}

	if status, _ := s.do(t, http.MethodGet, "/api/courses", "", nil); status != fiber.StatusOK {
		t.Errorf("other routes should not share the auth budget, got %d", status)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, RouteConfig{})
	user := testutil.CreateUser(t, s.db, "sam")

	status, _ := s.do(t, http.MethodGet, "/ws", "", nil)
	if status != fiber.StatusUnauthorized {
		t.Errorf("no token: %d", status)
	}
	status, _ = s.do(t, http.MethodGet, "/ws?token="+s.tokenFor(t, user), "", nil)
	if status != fiber.StatusUpgradeRequired {
		t.Errorf("plain GET with token: %d", status)
	}
}
