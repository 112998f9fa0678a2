package poller

import (
	"time"

	"github.com/bmizerany/perks/quantile"
	log "github.com/sirupsen/logrus"
)

// Stats tracks cycle durations.
type Stats struct {
	q       *quantile.Stream
	cycles  int
	skipped int
	max     time.Duration
}

func newStats() *Stats {
	return &Stats{q: quantile.NewTargeted(0.50, 0.95, 0.99)}
}

func (s *Stats) add(d time.Duration, available bool) {
	s.q.Insert(d.Seconds())
	s.cycles++
	if !available {
		s.skipped++
	}
	if d > s.max {
		s.max = d
	}
}

// Cycles returns the number of completed cycles.
func (s *Stats) Cycles() int { return s.cycles }

// Skipped returns the number of cycles without a record.
func (s *Stats) Skipped() int { return s.skipped }

// Max returns the longest cycle.
func (s *Stats) Max() time.Duration { return s.max }

// Quantile returns the estimated q quantile of the cycle
// duration, or 0 if no cycle has completed yet.
func (s *Stats) Quantile(q float64) time.Duration {
	if s.cycles == 0 {
		return 0
	}
	return time.Duration(s.q.Query(q) * float64(time.Second))
}

func (s *Stats) log() {
	if s.cycles == 0 {
		return
	}
	log.Infof("%d cycles (%d without record), cycle time p50 %s p95 %s p99 %s max %s",
		s.cycles, s.skipped,
		s.Quantile(0.50), s.Quantile(0.95), s.Quantile(0.99), s.max)
}
