package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatroom/internal/app"
	"github.com/dkeye/chatroom/internal/app/orch"
	"github.com/dkeye/chatroom/internal/config"
	"github.com/dkeye/chatroom/internal/core"
	"github.com/dkeye/chatroom/internal/domain"
	"github.com/dkeye/chatroom/internal/store"
)

const testAdminSecret = "s3cret"

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

type fixture struct {
	t      *testing.T
	clk    *clock.Mock
	orch   *orch.Orchestrator
	router *gin.Engine
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clk := clock.NewMock()
	stores := store.NewFileStores(afero.NewMemMapFs(), "/data")
	mod, err := app.NewModerator(domain.DefaultPolicy())
	require.NoError(t, err)

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager([]string{"lobby", "games"}, 50, clk),
		Policy:   app.KickPolicy{},
		Admission: &app.Pipeline{
			MaxMembers:    10,
			Bans:          app.NewBanList(clk, stores.Bans),
			Actions:       app.NewActionLimiter(clk),
			Topics:        app.NewActionLimiter(clk),
			TopicCooldown: 30 * time.Second,
			Moderator:     mod,
		},
		Presence:        app.NewGraceTracker(clk, 10*time.Minute),
		Topics:          app.NewTopicPool(stores.Topics),
		Clock:           clk,
		InactivityLimit: 10 * time.Minute,
	}
	cfg := &config.Config{
		Mode:        "test",
		StaticPath:  t.TempDir(),
		Secret:      "cookie-secret",
		AdminSecret: testAdminSecret,
		PingPeriod:  time.Minute,
		PollTimeout: 25 * time.Second,
		HTTPRate:    100,
		HTTPBurst:   100,
	}
	for _, m := range mutate {
		m(cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := SetupRouter(ctx, cfg, o, app.NewPolicyService(mod, stores.Policy))
	return &fixture{t: t, clk: clk, orch: o, router: r}
}

func (f *fixture) do(method, path, body string, admin bool) *httptest.ResponseRecorder {
	f.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if admin {
		req.Header.Set(adminSecretHeader, testAdminSecret)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) join(sid core.SessionID, name, client string) {
	f.t.Helper()
	f.orch.Registry.BindSignal(sid, nopConn{}, "192.0.2.1", func() {})
	out, err := f.orch.Join(sid, orch.JoinRequest{Room: "lobby", Name: name, ClientID: client})
	require.NoError(f.t, err)
	require.True(f.t, out.Accepted)
}

func decodeCatchUp(t *testing.T, w *httptest.ResponseRecorder) catchUpResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp catchUpResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCatchUp_Errors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/snapshot?room=vip", "", false).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/poll?room=Not%20A%20Slug&since=0", "", false).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/poll?room=lobby&since=-1", "", false).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/poll?room=lobby&since=abc", "", false).Code)
}

func TestCatchUp_SnapshotAndImmediatePoll(t *testing.T) {
	f := newFixture(t)
	f.join("s1", "ann", "c-ann")
	f.clk.Add(2 * time.Second)
	_, err := f.orch.SendMessage("s1", "first")
	require.NoError(t, err)

	snap := decodeCatchUp(t, f.do(http.MethodGet, "/api/snapshot?room=LOBBY", "", false))
	assert.Equal(t, domain.RoomSlug("lobby"), snap.Room)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, uint64(2), snap.LastID)

	poll := decodeCatchUp(t, f.do(http.MethodGet, "/api/poll?room=lobby&since=1", "", false))
	require.Len(t, poll.Entries, 1)
	assert.Equal(t, "first", poll.Entries[0].Text)
}

func TestCatchUp_PollParksUntilAppend(t *testing.T) {
	f := newFixture(t)
	f.join("s1", "ann", "c-ann")
	room, _ := f.orch.Rooms.Get("lobby")
	cursor := room.LastID()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/poll?room=lobby&since=1", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		done <- w
	}()
	require.Eventually(t, func() bool { return room.WaiterCount() == 1 }, time.Second, 5*time.Millisecond)

	f.clk.Add(2 * time.Second)
	_, err := f.orch.SendMessage("s1", "wake up")
	require.NoError(t, err)

	select {
	case w := <-done:
		resp := decodeCatchUp(t, w)
		require.Len(t, resp.Entries, 1)
		assert.Equal(t, cursor+1, resp.Entries[0].ID)
		assert.Equal(t, "wake up", resp.Entries[0].Text)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not return after append")
	}
	assert.Zero(t, room.WaiterCount())
}

func TestCatchUp_RootPaths(t *testing.T) {
	f := newFixture(t)
	f.join("s1", "ann", "c-ann")
	f.clk.Add(2 * time.Second)
	_, err := f.orch.SendMessage("s1", "hello")
	require.NoError(t, err)

	snap := decodeCatchUp(t, f.do(http.MethodGet, "/snapshot?room=lobby", "", false))
	assert.Len(t, snap.Entries, 2)

	poll := decodeCatchUp(t, f.do(http.MethodGet, "/poll?room=lobby&since=1", "", false))
	require.Len(t, poll.Entries, 1)
	assert.Equal(t, "hello", poll.Entries[0].Text)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/poll?room=vip&since=0", "", false).Code)
}

func TestCatchUp_CursorPastEndParksWithoutBreakingRoom(t *testing.T) {
	f := newFixture(t)
	f.join("s1", "ann", "c-ann")
	room, _ := f.orch.Rooms.Get("lobby")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/poll?room=lobby&since=18446744073709551615", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		done <- w
	}()
	require.Eventually(t, func() bool { return room.WaiterCount() == 1 }, time.Second, 5*time.Millisecond)

	snap := decodeCatchUp(t, f.do(http.MethodGet, "/snapshot?room=lobby", "", false))
	assert.Len(t, snap.Entries, 1)

	f.clk.Add(25 * time.Second)
	select {
	case w := <-done:
		assert.Empty(t, decodeCatchUp(t, w).Entries)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not time out")
	}
}

func TestCatchUp_PollTimeoutIsEmpty(t *testing.T) {
	f := newFixture(t)
	room, err := f.orch.Rooms.Resolve("games")
	require.NoError(t, err)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/poll?room=games&since=0", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		done <- w
	}()
	require.Eventually(t, func() bool { return room.WaiterCount() == 1 }, time.Second, 5*time.Millisecond)
	f.clk.Add(25 * time.Second)

	select {
	case w := <-done:
		resp := decodeCatchUp(t, w)
		assert.Empty(t, resp.Entries)
		assert.NotNil(t, resp.Entries)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not time out")
	}
}

func TestCatchUp_RateLimited(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.HTTPRate = 0.001
		c.HTTPBurst = 2
	})
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/snapshot?room=lobby", "", false).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/api/snapshot?room=lobby", "", false).Code)
}

func TestClientTokenCookie(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/rooms", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), sessionName+"=")
}

func TestAdmin_Auth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/admin/bans", "", false).Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/bans", nil)
	req.Header.Set(adminSecretHeader, "wrong")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/bans", "", true).Code)
}

func TestAdmin_EmptySecretDisables(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AdminSecret = "" })
	req := httptest.NewRequest(http.MethodGet, "/admin/bans", nil)
	req.Header.Set(adminSecretHeader, "")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_BanLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/admin/bans", `{"type":"clientId","value":"c-troll","durationMs":60000,"reason":"spam"}`, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ban domain.BanEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ban))
	require.NotEmpty(t, ban.ID)
	require.NotNil(t, ban.ExpiresAt)

	f.orch.Registry.BindSignal("s1", nopConn{}, "192.0.2.1", func() {})
	out, err := f.orch.Join("s1", orch.JoinRequest{Room: "lobby", Name: "troll", ClientID: "c-troll"})
	require.NoError(t, err)
	assert.Equal(t, domain.Banned, out.Rejection.Code)

	var list []domain.BanEntry
	require.NoError(t, json.Unmarshal(f.do(http.MethodGet, "/admin/bans", "", true).Body.Bytes(), &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/admin/bans/"+ban.ID, "", true).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/admin/bans/"+ban.ID, "", true).Code)

	out, err = f.orch.Join("s1", orch.JoinRequest{Room: "lobby", Name: "troll", ClientID: "c-troll"})
	require.NoError(t, err)
	assert.True(t, out.Accepted)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/admin/bans", `{"type":"mac","value":"x"}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/admin/bans", `{"type":"ip"}`, true).Code)
}

func TestAdmin_PolicyHotSwap(t *testing.T) {
	f := newFixture(t)
	f.join("s1", "ann", "c-ann")

	w := f.do(http.MethodPut, "/admin/policy", `{"maxLength":500,"minIntervalMs":1000,"maxUrls":2,"blockPii":true,"bannedPatterns":["(unclosed"]}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/admin/policy", `{"maxLength":500,"minIntervalMs":1000,"maxUrls":2,"blockPii":true,"bannedWords":["forbidden"]}`, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out, err := f.orch.SendMessage("s1", "this is FORBIDDEN")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, domain.ReasonBannedTerm, out.Rejection.Reason)

	var got domain.ModerationPolicy
	require.NoError(t, json.Unmarshal(f.do(http.MethodGet, "/admin/policy", "", true).Body.Bytes(), &got))
	assert.Equal(t, []string{"forbidden"}, got.BannedWords)
}

func TestAdmin_Topics(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPut, "/admin/topics", `{"topics":["  one  ","", "two"]}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"topics":["one","two"]}`, w.Body.String())
	assert.JSONEq(t, `{"topics":["one","two"]}`, f.do(http.MethodGet, "/admin/topics", "", true).Body.String())
}

func TestAdmin_OnlineAndKick(t *testing.T) {
	f := newFixture(t)
	f.join("s1", "ann", "c-ann")

	w := f.do(http.MethodGet, "/admin/online", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var online struct {
		Connections int                         `json:"connections"`
		Rooms       map[string][]core.MemberDTO `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &online))
	assert.Equal(t, 1, online.Connections)
	require.Len(t, online.Rooms["lobby"], 1)
	assert.Equal(t, "ann", online.Rooms["lobby"][0].Name)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/admin/rooms/lobby/kick", `{"sessionId":"s1"}`, true).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/admin/rooms/lobby/kick", `{"sessionId":"s1"}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/admin/rooms/lobby/kick", `{}`, true).Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.join("s1", "ann", "c-ann")
	w := f.do(http.MethodGet, "/healthz", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","connections":1,"rooms":1}`, w.Body.String())
}
