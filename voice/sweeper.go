package voice

import (
	"context"
	"errors"
	"time"

	"github.com/Haibread/voicekeep/metrics"
	"github.com/jonboulle/clockwork"
)

const DefaultSweepInterval = time.Minute

// Sweeper retires empty channels whose membership events were missed.
type Sweeper struct {
	manager  *Manager
	provider Provider
	interval time.Duration
	clock    clockwork.Clock
}

func NewSweeper(manager *Manager, provider Provider, interval time.Duration, clock clockwork.Clock) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sweeper{
		manager:  manager,
		provider: provider,
		interval: interval,
		clock:    clock,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Infof("Starting channel sweeper, interval %v", s.interval)
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Channel sweeper stopped")
			return
		case <-ticker.Chan():
			s.Sweep(ctx)
		}
	}
}

// Sweep checks every managed channel once and returns how many were retired.
// A failing channel never aborts the pass.
func (s *Sweeper) Sweep(ctx context.Context) int {
	start := s.clock.Now()
	defer func() {
		metrics.SweepDuration.Observe(s.clock.Since(start).Seconds())
	}()

	retired := 0
	for _, ch := range s.manager.Channels() {
		if ctx.Err() != nil {
			return retired
		}

		count, err := s.provider.GetMemberCount(ctx, ch.GuildID, ch.ChannelID)
		if errors.Is(err, ErrChannelGone) {
			s.manager.Forget(ctx, ch.ChannelID)
			continue
		}
		if err != nil {
			metrics.SweepChannelErrorsTotal.Inc()
			log.Warnf("Sweep could not count members of channel %v: %v", ch.ChannelID, err)
			continue
		}
		if count > 0 {
			continue
		}

		if err := s.manager.NotifyMembershipChanged(ctx, ch.ChannelID, 0); err != nil {
			log.Warnf("Sweep could not retire channel %v: %v", ch.ChannelID, err)
			continue
		}
		retired++
	}

	if retired > 0 {
		log.Infof("Sweep retired %d empty channels", retired)
	}
	return retired
}
