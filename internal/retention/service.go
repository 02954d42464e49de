// Package retention runs the background trim pass over the activity
// store. The router already trims after each write; this sweep is the
// backstop that keeps the cap enforced while the event stream is idle,
// e.g. after a retention count change.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/nothingworksright/unblinkingbot/internal/metrics"
)

// DefaultInterval is the default sweep interval.
const DefaultInterval = 15 * time.Minute

// Trimmer is the slice of the store the sweep needs.
type Trimmer interface {
	Trim(ctx context.Context, prefix string, keep int) (int, error)
}

// Service is a periodic retention sweep over one key prefix.
type Service struct {
	store    Trimmer
	prefix   string
	keep     int
	interval time.Duration
	logger   *slog.Logger
}

// NewService creates a sweep over prefix keeping keep records.
func NewService(store Trimmer, prefix string, keep int, interval time.Duration, logger *slog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:    store,
		prefix:   prefix,
		keep:     keep,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the sweep loop. It blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("retention sweep started", "prefix", s.prefix, "keep", s.keep, "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweep stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	deleted, err := s.store.Trim(ctx, s.prefix, s.keep)
	if err != nil {
		s.logger.Error("retention sweep failed", "prefix", s.prefix, "err", err)
		return
	}
	if deleted > 0 {
		metrics.TrimDeletedTotal.Add(float64(deleted))
		s.logger.Info("retention sweep trimmed", "prefix", s.prefix, "deleted", deleted)
	}
}
