package meshclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ========================= кадры потокового API =========================
//
// 0x94 0xC3 <len hi> <len lo> <protobuf ToRadio|FromRadio>

const (
	start1   = 0x94
	start2   = 0xc3
	maxFrame = 512

	// Broadcast — адрес "всем" (^all).
	Broadcast uint32 = 0xffffffff

	portTextMessage = 1 // PortNum.TEXT_MESSAGE_APP
	defaultHopLimit = 3
)

var errFrameTooLong = errors.New("frame too long")

func frame(payload []byte) ([]byte, error) {
	if len(payload) > maxFrame {
		return nil, errFrameTooLong
	}
	out := make([]byte, 0, 4+len(payload))
	out = append(out, start1, start2, byte(len(payload)>>8), byte(len(payload)))
	return append(out, payload...), nil
}

type frameReader struct {
	r *bufio.Reader
	// всё, что пришло вне кадров (debug-вывод прошивки по serial)
	noise func(byte)
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReaderSize(r, 2*maxFrame)}
}

// Next возвращает payload следующего кадра, пропуская мусор между кадрами.
func (fr *frameReader) Next() ([]byte, error) {
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != start1 {
			if fr.noise != nil {
				fr.noise(b)
			}
			continue
		}
		b, err = fr.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != start2 {
			// мог быть началом нового кадра
			if b == start1 {
				_ = fr.r.UnreadByte()
			}
			continue
		}
		var hdr [2]byte
		if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
			return nil, err
		}
		n := int(hdr[0])<<8 | int(hdr[1])
		if n > maxFrame {
			// испорченный заголовок — ресинхронизация
			continue
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(fr.r, payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
}

// ========================= protobuf (без сгенерированного кода) =========================

type field struct {
	num protowire.Number
	typ protowire.Type
	v   uint64
	b   []byte
}

func eachField(b []byte, fn func(f field)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var x uint32
			x, n = protowire.ConsumeFixed32(b)
			f.v = uint64(x)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		fn(f)
	}
	return nil
}

// Packet — принятый (или отправляемый) MeshPacket с текстовым payload.
type Packet struct {
	From     uint32
	To       uint32
	ID       uint32
	Channel  uint32
	PortNum  uint32
	Text     string
	RxTime   uint32
	RxSNR    float32
	RxRSSI   int32
	HopLimit uint32
	HopStart uint32
	WantAck  bool
}

// IsText — пакет несёт текстовое сообщение.
func (p Packet) IsText() bool { return p.PortNum == portTextMessage }

// Hops — сколько хопов пакет прошёл; ok=false, если прошивка не прислала hop_start.
func (p Packet) Hops() (hops int, ok bool) {
	if p.HopStart == 0 {
		return 0, false
	}
	return int(p.HopStart) - int(p.HopLimit), true
}

// NodeID форматирует номер узла как "!hex".
func NodeID(num uint32) string { return fmt.Sprintf("!%x", num) }

type fromRadio struct {
	packet         *Packet
	myNode         uint32
	configComplete uint32
	rebooted       bool
}

// поля FromRadio: packet=2, my_info=3, config_complete_id=7, rebooted=8
func decodeFromRadio(b []byte) (fromRadio, error) {
	var fr fromRadio
	var perr error
	err := eachField(b, func(f field) {
		switch {
		case f.num == 2 && f.typ == protowire.BytesType:
			p, err := decodeMeshPacket(f.b)
			if err != nil {
				perr = err
				return
			}
			fr.packet = &p
		case f.num == 3 && f.typ == protowire.BytesType:
			_ = eachField(f.b, func(mi field) {
				if mi.num == 1 && mi.typ == protowire.VarintType {
					fr.myNode = uint32(mi.v)
				}
			})
		case f.num == 7 && f.typ == protowire.VarintType:
			fr.configComplete = uint32(f.v)
		case f.num == 8 && f.typ == protowire.VarintType:
			fr.rebooted = f.v != 0
		}
	})
	if err == nil {
		err = perr
	}
	return fr, err
}

func decodeMeshPacket(b []byte) (Packet, error) {
	var p Packet
	var derr error
	err := eachField(b, func(f field) {
		switch f.num {
		case 1:
			p.From = uint32(f.v)
		case 2:
			p.To = uint32(f.v)
		case 3:
			p.Channel = uint32(f.v)
		case 4:
			derr = eachField(f.b, func(d field) {
				switch d.num {
				case 1:
					p.PortNum = uint32(d.v)
				case 2:
					p.Text = string(d.b)
				}
			})
		case 6:
			p.ID = uint32(f.v)
		case 7:
			p.RxTime = uint32(f.v)
		case 8:
			p.RxSNR = math.Float32frombits(uint32(f.v))
		case 9:
			p.HopLimit = uint32(f.v)
		case 10:
			p.WantAck = f.v != 0
		case 12:
			p.RxRSSI = int32(f.v)
		case 15:
			p.HopStart = uint32(f.v)
		}
	})
	if err == nil {
		err = derr
	}
	return p, err
}

func appendFixed32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// marshal кодирует MeshPacket; нулевые поля опускаются (proto3).
func (p Packet) marshal() []byte {
	var data []byte
	data = appendVarint(data, 1, uint64(p.PortNum))
	if p.Text != "" {
		data = appendBytes(data, 2, []byte(p.Text))
	}

	var b []byte
	b = appendFixed32(b, 1, p.From)
	b = appendFixed32(b, 2, p.To)
	b = appendVarint(b, 3, uint64(p.Channel))
	b = appendBytes(b, 4, data)
	b = appendFixed32(b, 6, p.ID)
	b = appendFixed32(b, 7, p.RxTime)
	b = appendFixed32(b, 8, math.Float32bits(p.RxSNR))
	b = appendVarint(b, 9, uint64(p.HopLimit))
	if p.WantAck {
		b = appendVarint(b, 10, 1)
	}
	b = appendVarint(b, 12, uint64(int64(p.RxRSSI)))
	b = appendVarint(b, 15, uint64(p.HopStart))
	return b
}

// ToRadio: packet=1, want_config_id=3, heartbeat=7

func toRadioPacket(p Packet) []byte {
	return appendBytes(nil, 1, p.marshal())
}

func toRadioWantConfig(id uint32) []byte {
	b := protowire.AppendTag(nil, 3, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(id))
}

func toRadioHeartbeat() []byte {
	return appendBytes(nil, 7, nil)
}
