// leaderboard/leaderboard.go
package leaderboard

import (
	"sort"
	"strings"
	"time"

	"github.com/wfunc/analogyarena/models"
)

const (
	// DefaultTopN 默认展示前 50 名
	DefaultTopN = 50
	// ViewerName 当前用户在榜单上的显示名
	ViewerName = "You"
)

// playerTotal 单个玩家在样本内的汇总
type playerTotal struct {
	userID     string
	score      int
	games      int
	lastType   models.GameType
	lastPlayed time.Time
}

// aggregate groups results by user. Players keep the order in which they first
// appear, and the stable sort leaves that order intact among equal totals.
func aggregate(results []models.GameResult) []*playerTotal {
	index := make(map[string]*playerTotal)
	var totals []*playerTotal
	for _, r := range results {
		t, ok := index[r.UserID]
		if !ok {
			t = &playerTotal{userID: r.UserID}
			index[r.UserID] = t
			totals = append(totals, t)
		}
		t.score += r.Score
		t.games++
		if r.CreatedAt.After(t.lastPlayed) || t.lastType == "" {
			t.lastPlayed = r.CreatedAt
			t.lastType = r.GameType
		}
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].score > totals[j].score
	})
	return totals
}

// truncate 最多保留 topN 个，topN <= 0 时为空
func truncate(totals []*playerTotal, topN int) []*playerTotal {
	if topN <= 0 {
		return nil
	}
	if len(totals) > topN {
		return totals[:topN]
	}
	return totals
}

// TopUserIDs returns the ids BuildLeaderboard would rank, so callers only
// fetch profiles they need.
func TopUserIDs(results []models.GameResult, topN int) []string {
	totals := truncate(aggregate(results), topN)
	ids := make([]string, 0, len(totals))
	for _, t := range totals {
		ids = append(ids, t.userID)
	}
	return ids
}

// BuildLeaderboard 汇总样本内每个玩家的总分，取前 topN 名
//
// 同分时按玩家在 results 中首次出现的顺序排列。存储层按 created_at 倒序返回，
// 因此同分玩家里最近活跃的排在前面。
func BuildLeaderboard(results []models.GameResult, profiles map[string]models.Profile, viewerID string, topN int) []models.LeaderboardEntry {
	totals := truncate(aggregate(results), topN)

	entries := make([]models.LeaderboardEntry, 0, len(totals))
	for i, t := range totals {
		profile, ok := profiles[t.userID]
		name := FallbackName(t.userID)
		if ok && profile.Username != "" {
			name = profile.Username
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:         i + 1,
			UserID:       t.userID,
			DisplayName:  name,
			AvatarURL:    profile.AvatarURL,
			Initials:     Initials(name),
			TotalScore:   t.score,
			GamesCounted: t.games,
			LastGameType: t.lastType,
			LastPlayedAt: t.lastPlayed,
		})
	}
	return ApplyViewer(entries, viewerID)
}

// ApplyViewer marks the viewer's row on a copy of entries.
func ApplyViewer(entries []models.LeaderboardEntry, viewerID string) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, len(entries))
	copy(out, entries)
	if viewerID == "" {
		return out
	}
	for i := range out {
		if out[i].UserID == viewerID {
			out[i].DisplayName = ViewerName
			out[i].IsCurrentUser = true
		}
	}
	return out
}

// FallbackName 没有资料时用 "Player " + id 前 4 位
func FallbackName(userID string) string {
	r := []rune(userID)
	if len(r) > 4 {
		r = r[:4]
	}
	return "Player " + string(r)
}

// Initials 取名字前两个字符并大写
func Initials(name string) string {
	r := []rune(strings.TrimSpace(name))
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// Position 返回 userID 在样本中的真实名次；不在样本中时 Rank 为 0
func Position(results []models.GameResult, userID string) models.UserRank {
	totals := aggregate(results)
	rank := models.UserRank{UserID: userID, TotalUsers: len(totals), Percentile: 100}
	for i, t := range totals {
		if t.userID == userID {
			rank.Rank = i + 1
			rank.Score = t.score
			rank.Percentile = float64(rank.Rank) / float64(rank.TotalUsers) * 100
			break
		}
	}
	return rank
}
