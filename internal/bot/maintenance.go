package bot

import (
	"context"
	"log/slog"
	"time"
)

const (
	maintenanceTick = 5 * time.Second
	decayEvery      = 180 * time.Second
	cooldownEvery   = 240 * time.Second
	killResetEvery  = 120 * time.Second
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// maintenance — единственный фоновый цикл, который "остывает" состояние.
// Три независимых срока, у каждого своя точка отсчёта.
type maintenance struct {
	state *State
	clock Clock
	log   *slog.Logger
	tick  time.Duration

	lastDecay    time.Time
	lastCooldown time.Time
	lastKill     time.Time
}

func newMaintenance(st *State, clock Clock, log *slog.Logger) *maintenance {
	m := &maintenance{state: st, clock: clock, log: log, tick: maintenanceTick}
	m.reset(clock.Now())
	return m
}

func (m *maintenance) reset(now time.Time) {
	m.lastDecay, m.lastCooldown, m.lastKill = now, now, now
}

func (m *maintenance) run(ctx context.Context) error {
	m.reset(m.clock.Now())
	t := time.NewTicker(m.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.step(m.clock.Now())
		}
	}
}

// step проверяет все три срока на момент now.
func (m *maintenance) step(now time.Time) {
	if now.Sub(m.lastDecay) >= decayEvery {
		n := m.state.DecayTransmissions()
		transmissionGauge.Set(float64(n))
		m.log.Info("reducing transmission count", "transmissions", n)
		m.lastDecay = now
	}
	if now.Sub(m.lastCooldown) >= cooldownEvery {
		m.state.ClearCooldown()
		m.log.Info("cooldown disabled")
		m.lastCooldown = now
	}
	if now.Sub(m.lastKill) >= killResetEvery {
		m.state.ResetKill()
		m.log.Info("killbot disarmed")
		m.lastKill = now
	}
}
