package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/analogyarena/leaderboard"
	"github.com/wfunc/analogyarena/logger"
	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/services"
)

// callTimeout 单次 RPC 调用的超时
const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the GameService.
func NewServer(addr string, gs *GameService) (*Server, error) {
	rs := rpc.NewServer()
	if err := rs.Register(gs); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rs,
	}, nil
}

func (s *Server) Addr() string { return s.address }

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService is the struct that exposes RPC methods to other backends.
type GameService struct {
	stats       *services.StatsService
	leaderboard *services.LeaderboardService
}

func NewGameService(stats *services.StatsService, lb *services.LeaderboardService) *GameService {
	return &GameService{stats: stats, leaderboard: lb}
}

// net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
type GetPlayerStatsArgs struct {
	UserID string
}

type GetPlayerStatsReply struct {
	Stats models.PlayerStats
}

func (gs *GameService) GetPlayerStats(args *GetPlayerStatsArgs, reply *GetPlayerStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	st, err := gs.stats.PlayerStats(ctx, args.UserID)
	if err != nil {
		return err
	}
	reply.Stats = st
	return nil
}

type GetLeaderboardArgs struct {
	Period   string
	TopN     int
	ViewerID string
}

type GetLeaderboardReply struct {
	Entries []models.LeaderboardEntry
}

func (gs *GameService) GetLeaderboard(args *GetLeaderboardArgs, reply *GetLeaderboardReply) error {
	period, err := leaderboard.ParsePeriod(args.Period)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	entries, err := gs.leaderboard.Leaderboard(ctx, args.ViewerID, period, args.TopN)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}
