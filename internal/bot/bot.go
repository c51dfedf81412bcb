package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/meshbot/internal/directory"
	"github.com/EgorLis/meshbot/internal/mailbox"
	"github.com/EgorLis/meshbot/internal/meshclient"
)

// Sender — исходящая сторона транспорта.
type Sender interface {
	SendText(text string, wantAck bool, dest uint32) error
}

// Directory — сессия справочника узлов (#whois, подписи в #bbs).
type Directory interface {
	SearchByID(hexID string) (directory.Node, error)
	SearchByShortName(name string) (directory.Node, error)
	Close() error
}

type Mailbox interface {
	Count(addr string) (int, error)
	Get(addr string) ([]mailbox.Message, error)
	Delete(addr string) error
	Post(recipient, content string) error
}

type Codec interface {
	Encode(text string) string
	Decode(text string) (string, error)
}

// Fetcher — источник сводки для кэша (погода, приливы).
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (string, error)
}

type MeshBot struct {
	log   *slog.Logger
	state *State
	clock Clock

	mesh          Sender
	openDirectory func() (Directory, error)
	mailbox       Mailbox
	codec         Codec
	weather       Fetcher
	tides         Fetcher
	events        EventSink

	cache        atomic.Pointer[CachedData]
	refreshEvery time.Duration

	// сообщения обрабатываются строго по одному
	dispatchMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

func New(log *slog.Logger) *MeshBot {
	if log == nil {
		log = slog.Default()
	}
	return &MeshBot{
		log:          log.With("component", "bot"),
		state:        NewState(),
		clock:        systemClock{},
		refreshEvery: refreshEvery,
	}
}

func (bot *MeshBot) SetMesh(s Sender) { bot.mesh = s }

// SetDirectory задаёт, как открывать сессию справочника. Сессия
// открывается на каждый запрос и закрывается после него.
func (bot *MeshBot) SetDirectory(open func() (Directory, error)) { bot.openDirectory = open }

func (bot *MeshBot) SetMailbox(m Mailbox) { bot.mailbox = m }

func (bot *MeshBot) SetCodec(c Codec) { bot.codec = c }

func (bot *MeshBot) SetFetchers(weather, tides Fetcher) {
	bot.weather, bot.tides = weather, tides
}

func (bot *MeshBot) SetEvents(sink EventSink) { bot.events = sink }

func (bot *MeshBot) SetClock(c Clock) { bot.clock = c }

// State отдаёт снимок состояния (для /state).
func (bot *MeshBot) State() Snapshot { return bot.state.Snapshot() }

// Cached — последние данные погоды/приливов, nil до первого обновления.
func (bot *MeshBot) Cached() *CachedData { return bot.cache.Load() }

// Start запускает фоновые циклы: планировщик обслуживания и обновление данных.
func (bot *MeshBot) Start(ctx context.Context) error {
	if bot == nil {
		return errors.New("bot is not initialized")
	}
	if bot.mesh == nil {
		return errors.New("mesh transport is not set")
	}
	bot.mu.Lock()
	defer bot.mu.Unlock()
	if bot.cancel != nil {
		return errors.New("already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	maint := newMaintenance(bot.state, bot.clock, bot.log.With("loop", "maintenance"))
	g.Go(func() error { return supervise(gctx, bot.log, "maintenance", maint.run) })
	g.Go(func() error { return supervise(gctx, bot.log, "refresh", bot.refreshLoop) })

	bot.cancel, bot.group = cancel, g
	bot.log.Info("bot started")
	return nil
}

// Stop останавливает фоновые циклы; повторный вызов ничего не делает.
func (bot *MeshBot) Stop() {
	bot.mu.Lock()
	cancel, g := bot.cancel, bot.group
	bot.cancel, bot.group = nil, nil
	bot.mu.Unlock()

	if cancel != nil {
		cancel()
		_ = g.Wait()
		bot.log.Info("bot stopped")
	}
}

// supervise перезапускает цикл после паники, пока ctx жив.
func supervise(ctx context.Context, log *slog.Logger, name string, run func(context.Context) error) error {
	for {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s panicked: %v", name, r)
				}
			}()
			return run(ctx)
		}()
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}
		log.Error("background loop failed, restarting", "loop", name, "err", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

// HandlePacket — колбэк транспорта на каждый текстовый пакет:
// гейт → команда → учёт, затем монитор duty cycle.
func (bot *MeshBot) HandlePacket(p meshclient.Packet) {
	if !p.IsText() {
		return
	}
	bot.dispatchMu.Lock()
	defer bot.dispatchMu.Unlock()

	from := meshclient.NodeID(p.From)
	text := strings.ToLower(p.Text)
	snap := bot.state.Snapshot()
	bot.log.Info("message received", "from", from, "to", meshclient.NodeID(p.To), "text", p.Text)
	bot.log.Debug("transmission count", "transmissions", snap.Transmissions)
	bot.emit(Event{Kind: EventReceived, From: from, To: meshclient.NodeID(p.To), Text: p.Text})

	if Eligible(p, snap) {
		packetsReceived.WithLabelValues("dispatched").Inc()
		bot.dispatch(p, text)
	} else {
		packetsReceived.WithLabelValues("gated").Inc()
		bot.log.Debug("message gated", "from", from)
		bot.emit(Event{Kind: EventGated, From: from})
	}

	bot.checkDutyCycle()
	transmissionGauge.Set(float64(bot.state.Snapshot().Transmissions))
}

// say — единственная точка отправки ответов.
func (bot *MeshBot) say(text string, wantAck bool, dest uint32) {
	to := meshclient.NodeID(dest)
	if err := bot.mesh.SendText(text, wantAck, dest); err != nil {
		sendErrors.Inc()
		bot.log.Error("send failed", "to", to, "err", err)
		return
	}
	repliesSent.Inc()
	bot.log.Debug("reply sent", "to", to, "text", text)
	bot.emit(Event{Kind: EventReply, To: to, Text: text})
}
