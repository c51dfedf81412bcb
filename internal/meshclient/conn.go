package meshclient

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"net"
	"time"
)

const (
	dialTimeout     = 10 * time.Second
	writeTimeout    = 5 * time.Second
	heartbeatEvery  = time.Minute
	heartbeatIdle   = 5 * time.Minute
	serialWakeBytes = 32
)

// ========================= low-level =========================

func randomUint32() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// dial + пробуждение радио + запрос конфига + запуск heartbeat
func (c *Client) dialAndSetup() (io.ReadWriteCloser, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.touchActivity()

	if c.isSerial() {
		// последовательность START2 будит радио и сбрасывает его парсер
		wake := make([]byte, serialWakeBytes)
		for i := range wake {
			wake[i] = start2
		}
		if err := c.writeRaw(conn, wake); err != nil {
			_ = conn.Close()
			return nil, err
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := c.writeFrame(conn, toRadioWantConfig(c.configID)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.startHeartbeat()
	return conn, nil
}

func (c *Client) writeFrame(conn io.Writer, payload []byte) error {
	b, err := frame(payload)
	if err != nil {
		return err
	}
	return c.writeRaw(conn, b)
}

// запись строго через один мьютекс + write-deadline для сети
func (c *Client) writeRaw(conn io.Writer, b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if nc, ok := conn.(net.Conn); ok {
		_ = nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	_, err := conn.Write(b)
	return err
}

// безопасно закрыть текущее соединение
func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopHeartbeatLocked()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) startHeartbeat() {
	c.mu.Lock()
	c.stopHeartbeatLocked()
	stop := make(chan struct{})
	c.hbStop = stop
	c.mu.Unlock()

	go func() {
		tick := time.NewTicker(heartbeatEvery)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				if c.sinceLastActivity() < heartbeatIdle {
					continue
				}
				conn := c.getConn()
				if conn == nil {
					continue
				}
				if err := c.writeFrame(conn, toRadioHeartbeat()); err != nil {
					// считаем поток мёртвым — закрываем, readLoop переподключится
					c.log.Warn("heartbeat failed", "err", err)
					_ = conn.Close()
				}
			}
		}
	}()
}

func (c *Client) stopHeartbeatLocked() {
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
}

func (c *Client) touchActivity() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) sinceLastActivity() time.Duration {
	n := c.lastActivity.Load()
	if n == 0 {
		return time.Hour
	}
	return time.Since(time.Unix(0, n))
}
