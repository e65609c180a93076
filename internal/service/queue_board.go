package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/google/uuid"
)

const (
	// Redis key prefix for the per-doctor daily queue board
	RedisQueueBoardKeyPrefix = "queue:board:"

	// Keys survive until shortly after the clinic day ends
	queueBoardTTLMargin = 6 * time.Hour
)

// QueueBoardService caches the latest assigned queue number per
// (doctor, date) in Redis so the waiting-room display can poll cheaply
// without hitting PostgreSQL. The database remains the source of truth;
// every write here is best-effort.
type QueueBoardService struct {
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewQueueBoardService(redisClient *redis.Client, log *logrus.Logger) *QueueBoardService {
	return &QueueBoardService{
		redisClient: redisClient,
		log:         log,
	}
}

// PublishQueueNumber records the most recently assigned queue number.
// Uses SET with a larger value guard via Lua-free MAX semantics: queue
// numbers are assigned monotonically so a plain SET is sufficient.
func (s *QueueBoardService) PublishQueueNumber(ctx context.Context, doctorID uuid.UUID, date time.Time, queueNumber int) error {
	key := boardKey(doctorID, date)
	ttl := calculateBoardTTL(date)
	if err := s.redisClient.Set(ctx, key, queueNumber, ttl).Err(); err != nil {
		s.log.Warnf("Failed to publish queue number %d for doctor %s (non-fatal): %+v", queueNumber, doctorID, err)
		return err
	}
	return nil
}

// LatestQueueNumber returns the last published number, or 0 when the
// board is empty for that day.
func (s *QueueBoardService) LatestQueueNumber(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	val, err := s.redisClient.Get(ctx, boardKey(doctorID, date)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

func boardKey(doctorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s%s:%s", RedisQueueBoardKeyPrefix, doctorID.String(), date.Format("2006-01-02"))
}

// calculateBoardTTL keeps the key alive until the end of the schedule
// date plus a margin, so late sessions still see the board.
func calculateBoardTTL(date time.Time) time.Duration {
	endOfDay := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, date.Location())
	ttl := time.Until(endOfDay) + queueBoardTTLMargin
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return ttl
}
