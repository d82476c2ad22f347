package calendar

import (
	"errors"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/bookslot/bookslot/pkg/subscriber"
)

var ErrQuotaExceeded = errors.New("calendar connection limit reached")

// LimitPolicy resolves how many calendars a subscriber may connect.
// A limit of zero or less means unlimited. The limit itself is enforced by
// Repository.CreateCalendarWithin together with the insert.
type LimitPolicy struct {
	defaultLimit int
	levelLimits  map[subscriber.Level]int
}

func NewLimitPolicy(cfg config.Limits) *LimitPolicy {
	levels := make(map[subscriber.Level]int, len(cfg.Levels))
	for level, limit := range cfg.Levels {
		levels[subscriber.Level(level)] = limit
	}
	return &LimitPolicy{defaultLimit: cfg.CalendarConnections, levelLimits: levels}
}

func (p *LimitPolicy) LimitFor(level subscriber.Level) int {
	if limit, ok := p.levelLimits[level]; ok {
		return limit
	}
	return p.defaultLimit
}
