package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wfunc/analogyarena/identity"
	"github.com/wfunc/analogyarena/logger"
	"github.com/wfunc/analogyarena/monitor"
	"github.com/wfunc/analogyarena/persistence"
	"github.com/wfunc/analogyarena/services"
	"github.com/wfunc/analogyarena/session"
	"github.com/wfunc/analogyarena/timer"
)

// Authenticator 登录、登出和 token 解析
type Authenticator interface {
	identity.Provider
	SignIn(ctx context.Context, userID, username string) (*identity.UserContext, error)
	SignOut(ctx context.Context, token string) error
}

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr        string
	Games       *services.GameService
	Stats       *services.StatsService
	Leaderboard *services.LeaderboardService
	Auth        Authenticator
	DB          persistence.Database
	Cache       Pinger
	Sessions    *session.Manager
	Monitor     *monitor.Monitor
	Timer       *timer.TimerManager

	DevLogin       bool
	AllowedOrigins []string
	Heartbeat      time.Duration
	IdleTimeout    time.Duration
	WarmupInterval time.Duration
}

type GameServer struct {
	opts       Options
	upgrader   websocket.Upgrader
	router     *mux.Router
	httpServer *http.Server
	validate   *validator.Validate
	now        func() time.Time
	timerIDs   []int64
}

func NewGameServer(opts Options) *GameServer {
	if opts.Sessions == nil {
		opts.Sessions = session.NewManager()
	}
	s := &GameServer{
		opts:     opts,
		validate: validator.New(),
		now:      time.Now,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(opts.AllowedOrigins),
		},
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// originChecker 按白名单校验 Origin；白名单为空时返回 nil，由 websocket 做同源检查
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return set[strings.ToLower(strings.TrimRight(origin, "/"))]
	}
}

// Router exposes the HTTP handler, mainly for tests.
func (s *GameServer) Router() http.Handler { return s.router }

func (s *GameServer) routes() *mux.Router {
	r := mux.NewRouter()
	optional := identity.OptionalAuth(s.opts.Auth)
	required := identity.RequireAuth(s.opts.Auth)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.opts.Monitor.Handler()).Methods(http.MethodGet)
	r.Handle("/debug/vars", s.opts.Monitor.VarsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/topics", s.handleTopics).Methods(http.MethodGet)
	r.HandleFunc("/content/{mode}", s.handleContent).Methods(http.MethodGet)
	r.HandleFunc("/users/{userId}/stats", s.handleUserStats).Methods(http.MethodGet)
	r.HandleFunc("/users/{userId}/rank", s.handleUserRank).Methods(http.MethodGet)
	r.HandleFunc("/auth/session", s.handleSignIn).Methods(http.MethodPost)
	r.Handle("/auth/session", required(http.HandlerFunc(s.handleSignOut))).Methods(http.MethodDelete)

	pub := r.NewRoute().Subrouter()
	pub.Use(optional)
	pub.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	pub.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	priv := r.NewRoute().Subrouter()
	priv.Use(required)
	priv.HandleFunc("/users/{userId}/results", s.handleUserResults).Methods(http.MethodGet)
	priv.HandleFunc("/results/{id}", s.handleDeleteResult).Methods(http.MethodDelete)
	return r
}

// Start 启动定时任务并阻塞在 HTTP 服务上
func (s *GameServer) Start() error {
	s.scheduleJobs()
	logger.Log.Infof("Game server listening on %s", s.opts.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GameServer) scheduleJobs() {
	if s.opts.Timer == nil {
		return
	}
	if s.opts.IdleTimeout > 0 {
		interval := s.opts.IdleTimeout / 2
		s.timerIDs = append(s.timerIDs, s.opts.Timer.AddTimer(interval, interval, s.SweepIdle))
	}
	if s.opts.WarmupInterval > 0 {
		s.timerIDs = append(s.timerIDs, s.opts.Timer.AddTimer(0, s.opts.WarmupInterval, s.warmLeaderboards))
	}
}

// SweepIdle 关闭超时没有任何消息的连接，读循环随后负责清理
func (s *GameServer) SweepIdle() {
	for _, sess := range s.opts.Sessions.Idle(s.now(), s.opts.IdleTimeout) {
		logger.Log.Infow("closing idle session", "session", sess.GetID(), "user_id", sess.UserID(), "username", sess.Username())
		sess.Close()
	}
}

func (s *GameServer) warmLeaderboards() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.opts.Leaderboard.Warm(ctx); err != nil {
		logger.Log.Warnw("leaderboard warmup failed", "error", err)
	}
}

// Shutdown stops the jobs, closes every websocket and drains HTTP.
func (s *GameServer) Shutdown(ctx context.Context) error {
	if s.opts.Timer != nil {
		for _, id := range s.timerIDs {
			s.opts.Timer.RemoveTimer(id)
		}
	}
	for _, sess := range s.opts.Sessions.All() {
		sess.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
