package meshclient

import (
	"context"
	"fmt"
	"io"
	"time"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

func (c *Client) readLoop(ctx context.Context) {
	done := make(chan struct{})
	defer func() {
		close(done)
		c.closed.Store(true)
		c.closeConn()
		c.fireDisconnected()
	}()

	// по отмене контекста закрыть поток, чтобы Read проснулся
	go func() {
		select {
		case <-ctx.Done():
			c.closeConn()
		case <-done:
		}
	}()

	backoff := c.minBackoff

	for {
		if conn := c.getConn(); conn != nil {
			err := c.readFrames(conn)
			if c.closed.Load() || ctx.Err() != nil {
				return
			}
			c.emitError(fmt.Errorf("read: %w", err))
		}

		c.closeConn()
		c.fireDisconnected()

		// реконнект с backoff
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if c.closed.Load() {
				return
			}
			conn, err := c.dialAndSetup()
			if err != nil {
				c.emitError(fmt.Errorf("reconnect failed (wait %v): %w", backoff, err))
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			c.setConn(conn)
			c.disconnected.Store(false)
			if c.OnConnected != nil {
				c.OnConnected()
			}
			backoff = c.minBackoff
			break
		}
	}
}

// readFrames читает кадры, пока поток не оборвётся.
// OnPacket вызывается синхронно: следующий кадр не читается,
// пока обработчик не вернул управление.
func (c *Client) readFrames(conn io.Reader) error {
	fr := newFrameReader(conn)
	for {
		payload, err := fr.Next()
		if err != nil {
			return err
		}
		c.touchActivity()

		msg, err := decodeFromRadio(payload)
		if err != nil {
			c.emitError(fmt.Errorf("decode FromRadio: %w", err))
			continue
		}
		if msg.myNode != 0 {
			c.myNode.Store(msg.myNode)
			c.log.Info("radio identified", "node", NodeID(msg.myNode))
		}
		if msg.configComplete != 0 {
			c.log.Debug("radio config complete", "id", msg.configComplete)
		}
		if msg.rebooted {
			c.log.Warn("radio rebooted")
		}
		if p := msg.packet; p != nil && p.IsText() && c.OnPacket != nil {
			c.OnPacket(*p)
		}
	}
}
