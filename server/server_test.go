package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/analogyarena/cache"
	"github.com/wfunc/analogyarena/content"
	"github.com/wfunc/analogyarena/game"
	"github.com/wfunc/analogyarena/identity"
	"github.com/wfunc/analogyarena/leaderboard"
	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/monitor"
	"github.com/wfunc/analogyarena/network"
	"github.com/wfunc/analogyarena/persistence"
	"github.com/wfunc/analogyarena/response"
	"github.com/wfunc/analogyarena/services"
	"github.com/wfunc/analogyarena/session"
	"github.com/wfunc/analogyarena/stats"
)

type testEnv struct {
	server *GameServer
	tokens *identity.TokenStore
	db     *persistence.Memory
}

func newTestEnv(t *testing.T, devLogin bool) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	bank, err := content.NewBank("")
	require.NoError(t, err)

	db := persistence.NewMemory()
	c := cache.NewRedis(rdb, time.Minute)
	mon := monitor.NewMonitor("server_test")
	sessions := session.NewManager()
	tokens := identity.NewTokenStore(rdb, time.Hour)
	statsSvc := services.NewStatsService(db, c, stats.Default)

	srv := NewGameServer(Options{
		Games: services.NewGameService(services.GameServiceConfig{
			DB:      db,
			Cache:   c,
			Bank:    bank,
			Stats:   statsSvc,
			Monitor: mon,
			Pusher:  broadcastStub{sessions},
		}),
		Stats:       statsSvc,
		Leaderboard: services.NewLeaderboardService(leaderboard.NewSampledBuilder(db, 0), c, mon, 0),
		Auth:        tokens,
		DB:          db,
		Cache:       c,
		Sessions:    sessions,
		Monitor:     mon,
		DevLogin:    devLogin,
		IdleTimeout: time.Minute,
	})
	return &testEnv{server: srv, tokens: tokens, db: db}
}

// broadcastStub pushes to every session of a user.
type broadcastStub struct{ m *session.Manager }

func (b broadcastStub) SendToUser(userID string, msgID uint16, payload interface{}) (int, error) {
	data, err := network.Encode(payload)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range b.m.GetByUserID(userID) {
		if s.Send(msgID, data) == nil {
			n++
		}
	}
	return n, nil
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)

	var resp response.APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (e *testEnv) signIn(t *testing.T, userID string) string {
	t.Helper()
	uc, err := e.tokens.SignIn(context.Background(), userID, userID)
	require.NoError(t, err)
	return uc.Token
}

func TestREST_HealthAndTopics(t *testing.T) {
	e := newTestEnv(t, false)

	rec, resp := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = e.do(t, http.MethodGet, "/topics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	topics, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, topics, 5)

	rec, _ = e.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, e.db.Close())
	rec, resp = e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
}

func TestREST_DevLogin(t *testing.T) {
	e := newTestEnv(t, false)
	rec, _ := e.do(t, http.MethodPost, "/auth/session", "", SignInRequest{UserID: "u1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	e = newTestEnv(t, true)
	rec, _ = e.do(t, http.MethodPost, "/auth/session", "", SignInRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := e.do(t, http.MethodPost, "/auth/session", "", SignInRequest{UserID: "u1", Username: "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	data := resp.Data.(map[string]interface{})
	token := data["token"].(string)
	assert.NotEmpty(t, token)

	profiles, err := e.db.GetProfiles(context.Background(), []string{"u1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", profiles["u1"].Username)

	rec, _ = e.do(t, http.MethodDelete, "/auth/session", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = e.do(t, http.MethodDelete, "/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestREST_StatsResultsAndLeaderboard(t *testing.T) {
	e := newTestEnv(t, false)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, e.db.InsertResult(ctx, models.GameResult{ID: "r1", UserID: "u1", GameType: models.GameRiddle, Score: 70, CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, e.db.InsertResult(ctx, models.GameResult{ID: "r2", UserID: "u2", GameType: models.GameWordle, Score: 10, CreatedAt: now}))
	token := e.signIn(t, "u2")

	rec, resp := e.do(t, http.MethodGet, "/users/u1/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 70.0, resp.Data.(map[string]interface{})["total_points"])

	rec, resp = e.do(t, http.MethodGet, "/leaderboard?period=weekly", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := resp.Data.([]interface{})
	require.Len(t, entries, 2)
	second := entries[1].(map[string]interface{})
	assert.Equal(t, leaderboard.ViewerName, second["display_name"])
	assert.Equal(t, true, second["is_current_user"])

	rec, _ = e.do(t, http.MethodGet, "/leaderboard?period=yearly", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = e.do(t, http.MethodGet, "/users/u2/rank", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, resp.Data.(map[string]interface{})["rank"])

	rec, _ = e.do(t, http.MethodGet, "/users/u2/results", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = e.do(t, http.MethodGet, "/users/u1/results", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, resp = e.do(t, http.MethodGet, "/users/u2/results?game_type=wordle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data.([]interface{}), 1)

	rec, _ = e.do(t, http.MethodDelete, "/results/r1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = e.do(t, http.MethodDelete, "/results/r2", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestREST_Content(t *testing.T) {
	e := newTestEnv(t, false)
	rec, _ := e.do(t, http.MethodGet, "/content/poem", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = e.do(t, http.MethodGet, "/content/riddle?topic=Science", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(persistence.ErrRecordNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(game.ErrInvalidGuess))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(content.ErrNoContent))
	assert.Equal(t, http.StatusForbidden, statusFor(services.ErrForbidden))
	assert.Equal(t, http.StatusInternalServerError, statusFor(net.ErrClosed))
}

// websocket helpers

func dial(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sendMsg(t *testing.T, c *websocket.Conn, msgID uint16, v interface{}) {
	t.Helper()
	data, err := network.Encode(v)
	require.NoError(t, err)
	packet, err := network.EncodePacket(msgID, data)
	require.NoError(t, err)
	require.NoError(t, c.WriteMessage(websocket.BinaryMessage, packet))
}

func readMsg(t *testing.T, c *websocket.Conn) *network.Packet {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	p, err := network.DecodePacket(data)
	require.NoError(t, err)
	return p
}

func expectMsg(t *testing.T, c *websocket.Conn, msgID uint16, v interface{}) {
	t.Helper()
	p := readMsg(t, c)
	require.Equal(t, msgID, p.MsgID, "payload: %s", p.Data)
	if v != nil {
		require.NoError(t, network.Decode(p.Data, v))
	}
}

func TestWebSocket_AuthRequired(t *testing.T) {
	e := newTestEnv(t, false)
	ts := httptest.NewServer(e.server.Router())
	defer ts.Close()
	c := dial(t, ts, "")

	sendMsg(t, c, network.MsgTypeHeartbeat, nil)
	expectMsg(t, c, network.MsgTypeHeartbeat, nil)

	sendMsg(t, c, network.MsgTypeStartGame, network.StartGameRequest{GameType: models.GameRiddle})
	var errPush network.ErrorPush
	expectMsg(t, c, network.MsgTypeError, &errPush)
	assert.Equal(t, network.ErrCodeUnauthenticated, errPush.Code)

	sendMsg(t, c, network.MsgTypeAuth, network.AuthRequest{Token: "bogus"})
	expectMsg(t, c, network.MsgTypeError, &errPush)
	assert.Equal(t, network.ErrCodeUnauthenticated, errPush.Code)

	sendMsg(t, c, network.MsgTypeAuth, network.AuthRequest{Token: e.signIn(t, "u1")})
	var auth network.AuthResult
	expectMsg(t, c, network.MsgTypeAuthResult, &auth)
	assert.Equal(t, "u1", auth.UserID)
	assert.Equal(t, "u1", auth.Username)
}

func TestWebSocket_QuizFlow(t *testing.T) {
	e := newTestEnv(t, false)
	ts := httptest.NewServer(e.server.Router())
	defer ts.Close()
	c := dial(t, ts, e.signIn(t, "u1"))

	sendMsg(t, c, network.MsgTypeStartGame, network.StartGameRequest{GameType: models.GameContextChallenge, Difficulty: models.Easy})
	var q network.QuestionPush
	expectMsg(t, c, network.MsgTypeQuestion, &q)
	require.NotNil(t, q.Question)
	assert.Equal(t, 1, q.Number)
	assert.Equal(t, game.ContextQuestionCount, q.Total)
	assert.Equal(t, game.HintCap, q.HintsRemaining)

	sendMsg(t, c, network.MsgTypeHint, network.HintRequest{QuestionID: q.Question.ID})
	var hint network.HintResult
	expectMsg(t, c, network.MsgTypeHintResult, &hint)
	assert.Equal(t, q.Question.HintCount > 0, hint.Granted)

	sendMsg(t, c, network.MsgTypeAnswer, network.AnswerRequest{QuestionID: q.Question.ID, Answer: "x"})
	var errPush network.ErrorPush
	expectMsg(t, c, network.MsgTypeError, &errPush)
	assert.Equal(t, network.ErrCodeInvalidInput, errPush.Code)

	// 依次作答直到结束
	var end network.GameEnd
	for i := 0; i < game.ContextQuestionCount; i++ {
		require.NotEmpty(t, q.Question.Options)
		sendMsg(t, c, network.MsgTypeChoose, network.ChooseRequest{QuestionID: q.Question.ID, OptionID: q.Question.Options[0].ID})
		var out game.AnswerOutcome
		expectMsg(t, c, network.MsgTypeAnswerResult, &out)
		if out.Phase == game.PhaseFinished {
			break
		}
		expectMsg(t, c, network.MsgTypeQuestion, &q)
	}
	expectMsg(t, c, network.MsgTypeStatsUpdate, nil)
	expectMsg(t, c, network.MsgTypeGameEnd, &end)
	assert.True(t, end.Saved)
	assert.Equal(t, models.GameContextChallenge, end.Result.GameType)
	assert.NotEmpty(t, end.Result.ID)

	saved, err := e.db.ListResults(context.Background(), persistence.ResultQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, end.Result.Score, saved[0].Score)

	sendMsg(t, c, network.MsgTypeHint, network.HintRequest{QuestionID: q.Question.ID})
	expectMsg(t, c, network.MsgTypeError, &errPush)
	assert.Equal(t, network.ErrCodeNoGame, errPush.Code)
}

func TestWebSocket_WordLost(t *testing.T) {
	e := newTestEnv(t, false)
	ts := httptest.NewServer(e.server.Router())
	defer ts.Close()
	c := dial(t, ts, e.signIn(t, "u1"))

	sendMsg(t, c, network.MsgTypeStartGame, network.StartGameRequest{GameType: models.GameWordle})
	var q network.QuestionPush
	expectMsg(t, c, network.MsgTypeQuestion, &q)
	require.NotNil(t, q.Puzzle)
	assert.Empty(t, q.Puzzle.Answer)
	assert.Equal(t, game.MaxAttempts, q.Remaining)

	var out game.GuessOutcome
	for i := 0; i < game.MaxAttempts; i++ {
		sendMsg(t, c, network.MsgTypeGuess, network.GuessRequest{Guess: "zzzzzz"})
		expectMsg(t, c, network.MsgTypeGuessResult, &out)
	}
	assert.Equal(t, game.WordLost, out.Status)
	assert.NotEmpty(t, out.Answer)

	var end network.GameEnd
	expectMsg(t, c, network.MsgTypeStatsUpdate, nil)
	expectMsg(t, c, network.MsgTypeGameEnd, &end)
	assert.True(t, end.Saved)
	assert.Equal(t, 0, end.Result.Score)
	assert.Contains(t, end.ShareText, "Failed")
}

func TestWebSocket_LeaveGame(t *testing.T) {
	e := newTestEnv(t, false)
	ts := httptest.NewServer(e.server.Router())
	defer ts.Close()
	c := dial(t, ts, e.signIn(t, "u1"))

	sendMsg(t, c, network.MsgTypeStartGame, network.StartGameRequest{GameType: models.GameWordle})
	expectMsg(t, c, network.MsgTypeQuestion, nil)
	sendMsg(t, c, network.MsgTypeLeaveGame, nil)
	sendMsg(t, c, network.MsgTypeGuess, network.GuessRequest{Guess: "phone"})

	var errPush network.ErrorPush
	expectMsg(t, c, network.MsgTypeError, &errPush)
	assert.Equal(t, network.ErrCodeNoGame, errPush.Code)

	saved, err := e.db.ListResults(context.Background(), persistence.ResultQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, saved)
}

// MockConnection is a test double for network.Connection.
type MockConnection struct {
	Closed bool
}

func (m *MockConnection) Send(uint16, []byte) error { return nil }

func (m *MockConnection) Close() error {
	m.Closed = true
	return nil
}

func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(time.Duration)           {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, net.ErrClosed }

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.Nil(t, originChecker(nil))
	assert.True(t, originChecker([]string{"*"})(req("https://anywhere.example")))

	check := originChecker([]string{"https://play.example.com/", "http://localhost:3000"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://play.example.com", true},
		{"HTTPS://PLAY.EXAMPLE.COM", true},
		{"http://localhost:3000", true},
		{"", true},
		{"https://evil.example", false},
		{"http://play.example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, check(req(tt.origin)), tt.origin)
	}
}

func TestWebSocket_RejectsCrossOriginByDefault(t *testing.T) {
	e := newTestEnv(t, false)
	ts := httptest.NewServer(e.server.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	c, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{ts.URL}})
	require.NoError(t, err)
	c.Close()
}

func TestSweepIdle(t *testing.T) {
	e := newTestEnv(t, false)
	conn := &MockConnection{}
	e.server.opts.Sessions.Add(session.NewSession("s1", conn))

	e.server.SweepIdle()
	assert.False(t, conn.Closed)

	e.server.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	e.server.SweepIdle()
	assert.True(t, conn.Closed)
}
