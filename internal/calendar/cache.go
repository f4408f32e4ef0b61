package calendar

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gradticket-bot/pkg/logger"
)

const rawLinesKey = "ceremony:raw_lines"

// CachedCeremonySource wraps another source with a Redis TTL cache, so the
// registrar's page is hit at most once per TTL window even though the core
// refreshes the calendar every cycle. A cache read or write failure falls
// through to the inner source.
type CachedCeremonySource struct {
	inner  CeremonySource
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewCachedCeremonySource(inner CeremonySource, client *redis.Client, ttl time.Duration) *CachedCeremonySource {
	return &CachedCeremonySource{
		inner:  inner,
		client: client,
		ttl:    ttl,
		log:    logger.WithComponent("ceremony-cache"),
	}
}

func (s *CachedCeremonySource) FetchRawCalendarText(ctx context.Context) ([]string, error) {
	cached, err := s.client.Get(ctx, rawLinesKey).Result()
	if err == nil {
		var lines []string
		if err := json.Unmarshal([]byte(cached), &lines); err == nil {
			return lines, nil
		}
		s.log.Warn("discarding malformed cache entry", zap.String("key", rawLinesKey))
	} else if err != redis.Nil {
		s.log.Warn("cache read failed, falling through to source", zap.Error(err))
	}

	lines, err := s.inner.FetchRawCalendarText(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(lines)
	if err == nil {
		if err := s.client.Set(ctx, rawLinesKey, payload, s.ttl).Err(); err != nil {
			s.log.Warn("cache write failed", zap.Error(err))
		}
	}

	return lines, nil
}
