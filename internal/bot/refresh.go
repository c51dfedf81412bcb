package bot

import (
	"context"
	"fmt"
	"time"
)

const refreshEvery = 3 * time.Hour

// CachedData — последние сводки погоды и приливов. Публикуется целиком
// через atomic.Pointer, читатели не видят полуобновлённую пару.
type CachedData struct {
	Weather   string    `json:"weather"`
	Tides     string    `json:"tides"`
	UpdatedAt time.Time `json:"updated_at"`
}

// refreshLoop — живёт, пока не отменят ctx. Первый проход сразу.
func (bot *MeshBot) refreshLoop(ctx context.Context) error {
	bot.refresh(ctx)
	t := time.NewTicker(bot.refreshEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			bot.refresh(ctx)
		}
	}
}

func (bot *MeshBot) refresh(ctx context.Context) {
	next := CachedData{}
	if prev := bot.cache.Load(); prev != nil {
		next = *prev
	}
	if s, ok := bot.fetch(ctx, bot.weather); ok {
		next.Weather = s
	}
	if s, ok := bot.fetch(ctx, bot.tides); ok {
		next.Tides = s
	}
	next.UpdatedAt = bot.clock.Now()
	bot.cache.Store(&next)
}

// ошибка или паника источника оставляет прежнее значение
func (bot *MeshBot) fetch(ctx context.Context, f Fetcher) (s string, ok bool) {
	if f == nil {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			bot.log.Error("fetch panicked", "source", f.Name(), "panic", fmt.Sprint(r))
			s, ok = "", false
		}
	}()
	s, err := f.Fetch(ctx)
	if err != nil {
		bot.log.Warn("fetch failed", "source", f.Name(), "err", err)
		fetchErrors.WithLabelValues(f.Name()).Inc()
		return "", false
	}
	bot.log.Info("data refreshed", "source", f.Name())
	return s, true
}
