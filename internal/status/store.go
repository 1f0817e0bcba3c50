package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/eleven-am/burst-camera/internal/session"
	"github.com/eleven-am/burst-camera/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 24 * time.Hour
	metricsTTL = 7 * 24 * time.Hour
)

type Store struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger
}

func NewStore(redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		redis: redisClient,
		ttl:   ttl,
		now:   time.Now,
		log:   logger.With("component", "status_store"),
	}
}

func (s *Store) Save(ctx context.Context, st session.Status) error {
	data, err := json.Marshal(Snapshot{Status: st, UpdatedAt: s.now()})
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, statusKey, data, s.ttl).Err()
}

func (s *Store) Get(ctx context.Context) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, statusKey).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) SaveResult(ctx context.Context, r session.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, ResultRedisKey(r.ID), data, s.ttl).Err()
}

func (s *Store) GetResult(ctx context.Context, burstID string) (*session.Result, error) {
	data, err := s.redis.Get(ctx, ResultRedisKey(burstID)).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var r session.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Publish(ctx context.Context, n session.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.redis.Publish(ctx, EventsTopic, data).Err()
}

func (s *Store) RecordResult(ctx context.Context, r session.Result) error {
	at := r.FinishedAt.UTC()
	key := MetricsRedisKey(r.CameraID, at.Format("2006-01-02"), at.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, "bursts", 1)
	pipe.HIncrBy(ctx, key, string(r.Outcome), 1)
	pipe.HIncrBy(ctx, key, "frames_written", int64(len(r.Files)))
	pipe.HIncrBy(ctx, key, "frames_failed", int64(len(r.Failed)))
	pipe.HIncrBy(ctx, key, "total_burst_ms", r.FinishedAt.Sub(r.StartedAt).Milliseconds())
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) RecordFault(ctx context.Context, cameraID string, at time.Time) error {
	at = at.UTC()
	key := MetricsRedisKey(cameraID, at.Format("2006-01-02"), at.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, "faults", 1)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetMetrics returns one entry per hour with activity, newest first.
func (s *Store) GetMetrics(ctx context.Context, cameraID string, hours int) ([]*Metrics, error) {
	now := s.now().UTC()
	var metrics []*Metrics

	for i := 0; i < hours; i++ {
		t := now.Add(-time.Duration(i) * time.Hour)
		key := MetricsRedisKey(cameraID, t.Format("2006-01-02"), t.Hour())

		data, err := s.redis.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}

		m := &Metrics{
			CameraID: cameraID,
			Date:     t.Format("2006-01-02"),
			Hour:     t.Hour(),
		}
		m.Bursts = parseCount(data, "bursts")
		m.Complete = parseCount(data, string(session.OutcomeComplete))
		m.Partial = parseCount(data, string(session.OutcomePartial))
		m.Aborted = parseCount(data, string(session.OutcomeAborted))
		m.FramesWritten = parseCount(data, "frames_written")
		m.FramesFailed = parseCount(data, "frames_failed")
		m.Faults = parseCount(data, "faults")
		if m.Bursts > 0 {
			m.AvgBurstMs = parseCount(data, "total_burst_ms") / m.Bursts
		}

		metrics = append(metrics, m)
	}

	return metrics, nil
}

func parseCount(data map[string]string, field string) int64 {
	v, _ := strconv.ParseInt(data[field], 10, 64)
	return v
}

// Observe mirrors camera notifications into redis. Failures are logged; the
// camera pipeline never waits on redis.
func (s *Store) Observe(ctx context.Context, n session.Notification) {
	if err := s.Save(ctx, n.Status); err != nil {
		s.log.Warn("failed to save status", "error", err, "state", n.Status.State)
	}

	switch n.Kind {
	case session.NotifyResult:
		if n.Result == nil {
			break
		}
		if err := s.SaveResult(ctx, *n.Result); err != nil {
			s.log.Warn("failed to save burst result", "error", err, "burst_id", n.Result.ID)
		}
		if err := s.RecordResult(ctx, *n.Result); err != nil {
			s.log.Warn("failed to record burst metrics", "error", err, "burst_id", n.Result.ID)
		}
	case session.NotifyFault:
		if err := s.RecordFault(ctx, n.Status.CameraID, n.At); err != nil {
			s.log.Warn("failed to record fault", "error", err, "camera_id", n.Status.CameraID)
		}
	}

	if err := s.Publish(ctx, n); err != nil {
		s.log.Warn("failed to publish notification", "error", err, "kind", n.Kind)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
