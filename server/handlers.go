package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wfunc/analogyarena/content"
	"github.com/wfunc/analogyarena/game"
	"github.com/wfunc/analogyarena/identity"
	"github.com/wfunc/analogyarena/leaderboard"
	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/persistence"
	"github.com/wfunc/analogyarena/response"
	"github.com/wfunc/analogyarena/services"
)

// statusFor 把领域错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, persistence.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidUser), errors.Is(err, identity.ErrInvalidUser),
		errors.Is(err, game.ErrInvalidGuess):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrNoContent), errors.Is(err, game.ErrNoContent):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	response.Error(w, statusFor(err), err.Error())
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "cache": "ok"}
	healthy := true
	if err := s.opts.DB.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Ping(ctx); err != nil {
			// 缓存不可用时服务仍然可用
			checks["cache"] = err.Error()
		}
	}
	data := map[string]interface{}{
		"checks":   checks,
		"uptime":   s.opts.Monitor.Uptime().Seconds(),
		"sessions": s.opts.Sessions.Count(),
	}
	if !healthy {
		response.JSON(w, http.StatusServiceUnavailable, response.APIResponse{Success: false, Data: data, Error: "unhealthy"})
		return
	}
	response.Success(w, data)
}

func (s *GameServer) handleTopics(w http.ResponseWriter, r *http.Request) {
	response.Success(w, s.opts.Games.Bank().Topics())
}

func (s *GameServer) handleContent(w http.ResponseWriter, r *http.Request) {
	mode, err := content.ParseMode(mux.Vars(r)["mode"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.opts.Games.Generate(r.Context(), mode, r.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, g)
}

func (s *GameServer) handleUserStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.opts.Stats.PlayerStats(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, st)
}

func parsePeriod(w http.ResponseWriter, r *http.Request) (leaderboard.Period, bool) {
	p, err := leaderboard.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return p, true
}

// queryInt 缺省或非法时返回 def
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func (s *GameServer) handleUserRank(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	rank, err := s.opts.Leaderboard.UserRank(r.Context(), period, mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, rank)
}

func (s *GameServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	entries, err := s.opts.Leaderboard.Leaderboard(r.Context(), identity.UserID(r.Context()), period, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, entries)
}

func (s *GameServer) handleUserResults(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID != identity.UserID(r.Context()) {
		writeError(w, services.ErrForbidden)
		return
	}
	gameType := models.GameType(r.URL.Query().Get("game_type"))
	if gameType != "" && !gameType.Valid() {
		response.Error(w, http.StatusBadRequest, "unknown game type")
		return
	}
	results, err := s.opts.Stats.History(r.Context(), userID, gameType, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, results)
}

func (s *GameServer) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Stats.DeleteResult(r.Context(), identity.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	response.Message(w, "result deleted")
}

// SignInRequest 开发环境登录
type SignInRequest struct {
	UserID    string `json:"user_id" validate:"required,max=64"`
	Username  string `json:"username" validate:"max=64"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

func (s *GameServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if !s.opts.DevLogin {
		response.Error(w, http.StatusNotFound, "sign-in is handled by the identity provider")
		return
	}
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if err := s.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	uc, err := s.opts.Auth.SignIn(r.Context(), req.UserID, req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Username != "" || req.AvatarURL != "" {
		profile := models.Profile{ID: req.UserID, Username: req.Username, AvatarURL: req.AvatarURL}
		if err := s.opts.DB.SaveProfile(r.Context(), profile); err != nil {
			writeError(w, err)
			return
		}
	}
	response.JSON(w, http.StatusCreated, response.APIResponse{Success: true, Data: uc})
}

func (s *GameServer) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Auth.SignOut(r.Context(), identity.BearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	response.Message(w, "signed out")
}
