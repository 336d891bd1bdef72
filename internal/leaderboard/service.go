package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/errors"
	"github.com/victornm/millionaire/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond

	DefaultLimit = 10
	MaxLimit     = 100
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

// Service ranks users by the total of the prizes credited to them.
type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameGameFinished, func(ctx context.Context, e event.Event) error {
		return s.UpdateLeaderboard(ctx, e.(domain.EventGameFinished))
	})

	return s
}

type GetLeaderboardRequest struct {
	// Limit is the number of top entries to return, DefaultLimit if not positive.
	Limit int
}

// GetLeaderboard returns the top users, highest total first.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("limit must not exceed %d", MaxLimit))
	}

	res, err := s.redis.ZRevRangeWithScores(ctx, s.getLeaderboardKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			UserID: z.Member.(string),
			Total:  z.Score,
		})
	}

	return &domain.Leaderboard{
		Entries: entries,
	}, nil
}

// UpdateLeaderboard adds the prize of a paid game to the user's total.
func (s *Service) UpdateLeaderboard(ctx context.Context, e domain.EventGameFinished) error {
	if !e.Paid || !e.Game.Prize.IsPositive() {
		return nil
	}

	sum := e.Game
	if err := s.redis.ZIncrBy(ctx, s.getLeaderboardKey(), sum.Prize.InexactFloat64(), sum.UserID).Err(); err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	return s.schedulePublishLeaderboard(ctx, sum.FinishedAt)
}

// schedulePublishLeaderboard publishes the leaderboard at most once per publish interval,
// across all instances sharing the Redis.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, at time.Time) error {
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(), at.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx)
}

func (s *Service) publishLeaderboard(ctx context.Context) error {
	l, err := s.GetLeaderboard(ctx, GetLeaderboardRequest{})
	if err != nil {
		return fmt.Errorf("get leaderboard failed: %w", err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return nil
}

func (s *Service) getLeaderboardKey() string {
	return fmt.Sprintf("%s:leaderboard", s.prefix)
}

func (s *Service) getLeaderboardTimeKey() string {
	return fmt.Sprintf("%s:leaderboard:time", s.prefix)
}
