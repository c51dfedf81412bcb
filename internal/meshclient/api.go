package meshclient

import "unicode/utf8"

// максимальный текстовый payload одного пакета
const maxTextLen = 228

// ========================= high-level API =========================

// SendText отправляет текст узлу dest (или Broadcast) на основном канале.
func (c *Client) SendText(text string, wantAck bool, dest uint32) error {
	conn := c.getConn()
	if conn == nil || c.closed.Load() {
		return ErrNotConnected
	}
	if len(text) > maxTextLen {
		c.log.Debug("text truncated", "len", len(text))
		text = truncate(text, maxTextLen)
	}
	p := Packet{
		To:       dest,
		ID:       c.nextID.Add(1),
		PortNum:  portTextMessage,
		Text:     text,
		HopLimit: defaultHopLimit,
		WantAck:  wantAck,
	}
	if err := c.writeFrame(conn, toRadioPacket(p)); err != nil {
		return err
	}
	c.log.Debug("text sent", "to", NodeID(dest), "id", p.ID, "text", text)
	return nil
}

// обрезка по границе руны
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
