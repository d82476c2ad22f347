package appointment

import (
	"context"
	"time"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/bookslot/bookslot/internal/utils"
	log "github.com/sirupsen/logrus"
)

// ReservationJanitor reopens slots whose reservation outlived the TTL, which
// happens when the process stops between reserving a slot and settling it.
type ReservationJanitor struct {
	repo     Repository
	ttl      time.Duration
	interval time.Duration
	clock    utils.Clock
}

func NewReservationJanitor(repo Repository, cfg config.Booking, clock utils.Clock) *ReservationJanitor {
	interval := cfg.JanitorInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReservationJanitor{repo: repo, ttl: cfg.ReservationTTL, interval: interval, clock: clock}
}

func (j *ReservationJanitor) Sweep(ctx context.Context) (int, error) {
	released, err := j.repo.ReleaseStale(ctx, j.clock.Now().Add(-j.ttl))
	if err != nil {
		return 0, err
	}
	if released > 0 {
		log.Warnf("Released %d stale slot reservations", released)
	}
	return released, nil
}

// Run sweeps every interval until ctx is done. A zero TTL disables it.
func (j *ReservationJanitor) Run(ctx context.Context) {
	if j.ttl <= 0 {
		log.Info("Reservation janitor disabled")
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				log.Errorf("reservation janitor failed: %v", err)
			}
		}
	}
}
