package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/persistence"
)

// DefaultSampleSize 最多取最近 1000 条结果参与汇总
const DefaultSampleSize = 1000

// Source is the part of the store a builder reads from.
type Source interface {
	ListResults(ctx context.Context, q persistence.ResultQuery) ([]models.GameResult, error)
	GetProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error)
}

// Builder produces viewer-independent leaderboards. Callers personalise the
// rows with ApplyViewer.
type Builder interface {
	Build(ctx context.Context, period Period, topN int) ([]models.LeaderboardEntry, error)
	Position(ctx context.Context, period Period, userID string) (models.UserRank, error)
}

// SampledBuilder aggregates the newest SampleSize results in memory.
//
// Totals are exact only inside that window: a player whose games all fall
// outside the newest SampleSize rows does not appear, and long-time players
// are credited only for their recent games. A server-side aggregate query
// can replace this type behind Builder without touching callers.
type SampledBuilder struct {
	source     Source
	sampleSize int
	now        func() time.Time
}

func NewSampledBuilder(source Source, sampleSize int) *SampledBuilder {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &SampledBuilder{source: source, sampleSize: sampleSize, now: time.Now}
}

// WithClock is used by tests.
func (b *SampledBuilder) WithClock(now func() time.Time) *SampledBuilder {
	b.now = now
	return b
}

func (b *SampledBuilder) SampleSize() int { return b.sampleSize }

func (b *SampledBuilder) sample(ctx context.Context, period Period) ([]models.GameResult, error) {
	results, err := b.source.ListResults(ctx, persistence.ResultQuery{Limit: b.sampleSize})
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard sample: %w", err)
	}
	return period.Filter(results, b.now()), nil
}

func (b *SampledBuilder) Build(ctx context.Context, period Period, topN int) ([]models.LeaderboardEntry, error) {
	results, err := b.sample(ctx, period)
	if err != nil {
		return nil, err
	}

	ids := TopUserIDs(results, topN)
	profiles := map[string]models.Profile{}
	if len(ids) > 0 {
		profiles, err = b.source.GetProfiles(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("fetch leaderboard profiles: %w", err)
		}
	}
	return BuildLeaderboard(results, profiles, "", topN), nil
}

func (b *SampledBuilder) Position(ctx context.Context, period Period, userID string) (models.UserRank, error) {
	results, err := b.sample(ctx, period)
	if err != nil {
		return models.UserRank{}, err
	}
	return Position(results, userID), nil
}
