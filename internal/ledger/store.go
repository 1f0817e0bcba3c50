package ledger

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/eleven-am/burst-camera/internal/session"
	"github.com/eleven-am/burst-camera/internal/shared"
	"gorm.io/gorm"
)

const maxListLimit = 100

type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:  db,
		log: logger.With("component", "capture_ledger"),
	}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Burst{}, &Frame{})
}

// Record stores a finished burst and one row per planned frame. Recording
// the same burst twice is a conflict.
func (s *Store) Record(ctx context.Context, r session.Result) (*Burst, error) {
	b := &Burst{
		ID:            r.ID,
		CameraID:      r.CameraID,
		Folder:        r.Folder,
		Outcome:       string(r.Outcome),
		Planned:       r.Planned,
		Completed:     len(r.Files) + len(r.Failed),
		FailedIndices: shared.IntSlice(r.FailedIndices()),
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Frames:        frames(r),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Burst{}).Where("id = ?", b.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrConflict
		}
		return tx.Create(b).Error
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// frames pairs written files with their sequence positions. Files are ordered
// by index, so they fill the positions that did not fail in ascending order.
func frames(r session.Result) []Frame {
	failed := make(map[int]string, len(r.Failed))
	for _, f := range r.Failed {
		failed[f.Index] = f.Error
	}

	out := make([]Frame, 0, len(r.Files)+len(r.Failed))
	next := 0
	for i := 0; i < r.Planned; i++ {
		f := Frame{
			ID:       shared.NewID("frame_"),
			BurstID:  r.ID,
			Sequence: i,
		}
		if msg, ok := failed[i]; ok {
			f.Error = msg
		} else if next < len(r.Files) {
			f.Path = r.Files[next]
			next++
			if info, err := os.Stat(f.Path); err == nil {
				f.Bytes = info.Size()
			}
		} else {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (s *Store) Get(ctx context.Context, id string) (*Burst, error) {
	var b Burst
	err := s.db.WithContext(ctx).
		Preload("Frames", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where("id = ?", id).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns bursts newest first, without frames.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Burst, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var bursts []*Burst
	err := s.db.WithContext(ctx).
		Order("finished_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&bursts).Error
	return bursts, err
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Burst{}).Count(&count).Error
	return count, err
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Observe records every burst result the camera publishes.
func (s *Store) Observe(ctx context.Context, n session.Notification) {
	if n.Kind != session.NotifyResult || n.Result == nil {
		return
	}
	if _, err := s.Record(ctx, *n.Result); err != nil {
		s.log.Error("failed to record burst", "error", err, "burst_id", n.Result.ID)
		return
	}
	s.log.Debug("burst recorded", "burst_id", n.Result.ID, "outcome", n.Result.Outcome)
}
