package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/wfunc/analogyarena/broadcast"
	"github.com/wfunc/analogyarena/cache"
	"github.com/wfunc/analogyarena/config"
	"github.com/wfunc/analogyarena/content"
	"github.com/wfunc/analogyarena/game"
	"github.com/wfunc/analogyarena/identity"
	"github.com/wfunc/analogyarena/leaderboard"
	"github.com/wfunc/analogyarena/logger"
	"github.com/wfunc/analogyarena/monitor"
	"github.com/wfunc/analogyarena/persistence"
	gamerpc "github.com/wfunc/analogyarena/rpc"
	"github.com/wfunc/analogyarena/server"
	"github.com/wfunc/analogyarena/services"
	"github.com/wfunc/analogyarena/session"
	"github.com/wfunc/analogyarena/stats"
	"github.com/wfunc/analogyarena/timer"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.InitWithConfig(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize Database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Infow("Database connection successful.", "driver", cfg.Database.Driver)

	rdb, err := openRedis(cfg.Redis, cfg.Database.ConnectTimeout)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	bank, err := content.NewBank(cfg.Content.BankFile)
	if err != nil {
		logger.Log.Fatalf("Failed to load question bank: %v", err)
	}
	policy, err := game.PolicyByName(cfg.Game.ScoringPolicy)
	if err != nil {
		logger.Log.Fatalf("Invalid scoring policy: %v", err)
	}
	if policy.Name() != game.PolicyFlat {
		logger.Log.Warnw("using deprecated scoring policy", "policy", policy.Name())
	}

	var resultCache services.Cache = cache.Nop{}
	if cfg.Leaderboard.CacheTTL > 0 {
		resultCache = cache.NewRedis(rdb, cfg.Leaderboard.CacheTTL)
	}

	var generator content.Generator
	if cfg.Content.GeneratorURL != "" {
		generator = content.NewClient(cfg.Content.GeneratorURL,
			content.WithAPIKey(cfg.Content.APIKey),
			content.WithTimeout(cfg.Content.Timeout))
	}

	mon := monitor.NewMonitor("analogyarena")
	sessions := session.NewManager()
	scheduler := timer.NewTimerManager()
	defer scheduler.Stop()

	statsSvc := services.NewStatsService(db, resultCache, stats.Aggregator{WinThreshold: cfg.Stats.WinThreshold})
	lbSvc := services.NewLeaderboardService(
		leaderboard.NewSampledBuilder(db, cfg.Leaderboard.SampleSize),
		resultCache, mon, cfg.Leaderboard.TopN)
	gameSvc := services.NewGameService(services.GameServiceConfig{
		DB:        db,
		Cache:     resultCache,
		Bank:      bank,
		Generator: generator,
		Policy:    policy,
		Stats:     statsSvc,
		Monitor:   mon,
		Pusher:    broadcast.NewSessionBroadcaster(sessions),
	})

	// Initialize RPC servers
	rpcServer, err := gamerpc.NewServer(cfg.Server.RPCAddress, gamerpc.NewGameService(statsSvc, lbSvc))
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	healthServer, err := gamerpc.NewHealthServer(cfg.Server.HealthAddress, db)
	if err != nil {
		logger.Log.Fatalf("Failed to create health server: %v", err)
	}
	go healthServer.Start(30 * time.Second)
	defer healthServer.Stop()

	// Initialize Game Server
	gameServer := server.NewGameServer(server.Options{
		Addr:           cfg.Server.HTTPAddress,
		Games:          gameSvc,
		Stats:          statsSvc,
		Leaderboard:    lbSvc,
		Auth:           identity.NewTokenStore(rdb, cfg.Auth.TokenTTL),
		DB:             db,
		Cache:          cache.NewRedis(rdb, cache.DefaultTTL),
		Sessions:       sessions,
		Monitor:        mon,
		Timer:          scheduler,
		DevLogin:       cfg.Auth.DevLogin,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Heartbeat:      cfg.Server.Heartbeat,
		IdleTimeout:    cfg.Server.IdleTimeout,
		WarmupInterval: cfg.Leaderboard.WarmupInterval,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- gameServer.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Log.Infof("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Shutdown failed: %v", err)
	}
}

// retry 指数退避重试，总时长不超过 limit；limit 为 0 时只试一次
func retry(what string, limit time.Duration, op func() error) error {
	if limit <= 0 {
		return op()
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = limit
	return backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		logger.Log.Warnw(what+" connection failed, retrying", "error", err, "next", next)
	})
}

func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	pg := cfg.Postgres
	var db persistence.Database
	err := retry("database", cfg.ConnectTimeout, func() error {
		var err error
		switch cfg.Driver {
		case "memory":
			db = persistence.NewMemory()
		case "pq":
			db, err = persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		default:
			db, err = persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		}
		return err
	})
	return db, err
}

func openRedis(cfg config.RedisConfig, limit time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	err := retry("redis", limit, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
