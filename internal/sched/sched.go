// Package sched runs the periodic rack sweep: counting racked orders whose
// pick-by time has passed and surfacing the count as a gauge.
package sched

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/murmurhq/murmur/internal/metrics"
	"github.com/murmurhq/murmur/internal/rack"
)

// OverdueCounter is the part of the rack board the sweeper needs.
type OverdueCounter interface {
	Overdue(now time.Time) (int, error)
}

// Sweeper periodically recounts overdue rack entries.
type Sweeper struct {
	board   OverdueCounter
	metrics *metrics.Set
	log     *zap.Logger
	now     func() time.Time
	cron    *cron.Cron
}

func NewSweeper(board OverdueCounter, m *metrics.Set, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		board:   board,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Start schedules the sweep at the given interval and runs one sweep
// immediately so the gauge is populated before the first tick.
func (s *Sweeper) Start(every time.Duration) error {
	if every < time.Second {
		return fmt.Errorf("sched: sweep interval %v too short", every)
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", every), s.Sweep); err != nil {
		return fmt.Errorf("sched: %w", err)
	}
	s.Sweep()
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep recounts overdue entries once.
func (s *Sweeper) Sweep() {
	count, err := s.board.Overdue(s.now())
	if err != nil {
		s.log.Error("rack sweep failed", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.OverdueOrders.Set(float64(count))
	}
	if count > 0 {
		s.log.Warn("orders overdue for pickup", zap.Int("count", count))
	} else {
		s.log.Debug("rack sweep clean")
	}
}

var _ OverdueCounter = (*rack.Board)(nil)
