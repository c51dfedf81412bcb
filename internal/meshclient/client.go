package meshclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const defaultTCPPort = "4403"

var ErrNotConnected = errors.New("meshclient: not connected")

// Config — как подключаться к радио: по сети (Host) или через serial (Port).
// Если заданы оба, используется Host.
type Config struct {
	Host string
	Port string
}

type Client struct {
	cfg  Config
	log  *slog.Logger
	dial func() (io.ReadWriteCloser, error)

	mu     sync.Mutex // охраняет conn и hbStop
	conn   io.ReadWriteCloser
	hbStop chan struct{}

	wmu          sync.Mutex // сериализует запись в поток
	closed       atomic.Bool
	disconnected atomic.Bool
	myNode       atomic.Uint32
	lastActivity atomic.Int64 // unix nanos последнего принятого кадра
	nextID       atomic.Uint32
	configID     uint32
	minBackoff   time.Duration

	// "События"
	OnConnecting   func()
	OnConnected    func()
	OnPacket       func(Packet)
	OnDisconnected func()
	OnError        func(error)
}

func New(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		cfg:        cfg,
		log:        log.With("component", "meshclient"),
		configID:   randomUint32(),
		minBackoff: minBackoff,
	}
	c.nextID.Store(randomUint32())
	c.dial = c.defaultDial
	return c
}

func (c *Client) defaultDial() (io.ReadWriteCloser, error) {
	if c.cfg.Host != "" {
		addr := c.cfg.Host
		if _, _, err := net.SplitHostPort(addr); err != nil {
			addr = net.JoinHostPort(addr, defaultTCPPort)
		}
		return net.DialTimeout("tcp", addr, dialTimeout)
	}
	if c.cfg.Port != "" {
		return openSerial(c.cfg.Port)
	}
	return nil, fmt.Errorf("meshclient: neither host nor serial port configured")
}

func (c *Client) isSerial() bool { return c.cfg.Host == "" && c.cfg.Port != "" }

// Connect — открывает поток к радио, запрашивает конфиг и запускает readLoop.
// Отмена контекста мягко завершает readLoop.
func (c *Client) Connect(ctx context.Context) error {
	if c.OnConnecting != nil {
		c.OnConnecting()
	}
	conn, err := c.dialAndSetup()
	if err != nil {
		return err
	}
	c.setConn(conn)
	c.closed.Store(false)
	c.disconnected.Store(false)

	if c.OnConnected != nil {
		c.OnConnected()
	}

	go c.readLoop(ctx)
	return nil
}

func (c *Client) Disconnect() {
	c.closed.Store(true)
	c.closeConn()
	c.fireDisconnected()
}

func (c *Client) fireDisconnected() {
	if c.disconnected.CompareAndSwap(false, true) && c.OnDisconnected != nil {
		c.OnDisconnected()
	}
}

func (c *Client) IsConnected() bool {
	return c.getConn() != nil && !c.closed.Load()
}

// MyNode — номер собственного узла из my_info (0, пока не пришёл).
func (c *Client) MyNode() uint32 { return c.myNode.Load() }

func (c *Client) getConn() io.ReadWriteCloser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) setConn(conn io.ReadWriteCloser) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) emitError(err error) {
	if c.OnError != nil && !c.closed.Load() {
		c.OnError(err)
	}
}
