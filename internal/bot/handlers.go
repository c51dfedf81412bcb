package bot

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/EgorLis/meshbot/internal/meshclient"
)

// ---------- политики ----------

// "#fw off" выключает, "#fw" или "#fw <что угодно>" включает. Ответа нет.
func (bot *MeshBot) cmdFirewall(req request) bool {
	on := !argIsOff(req.args)
	bot.state.SetFirewall(on)
	bot.log.Info("firewall mode changed", "firewall", on, "by", req.sender)
	return false
}

func (bot *MeshBot) cmdDMOnly(req request) bool {
	on := !argIsOff(req.args)
	bot.state.SetDMOnly(on)
	bot.log.Info("dm mode changed", "dm_mode", on, "by", req.sender)
	return false
}

func argIsOff(args []string) bool {
	return len(args) > 0 && strings.EqualFold(args[0], "off")
}

// ---------- случайности ----------

func (bot *MeshBot) cmdFlipCoin(req request) bool {
	side := "Heads"
	if randIntn(2) == 1 {
		side = "Tails"
	}
	bot.say(side, true, req.pkt.From)
	return true
}

func (bot *MeshBot) cmdRandom(req request) bool {
	bot.say(strconv.Itoa(randIntn(10)+1), true, req.pkt.From)
	return true
}

// randIntn — равномерное [0,n) из crypto/rand.
func randIntn(n int64) int {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return int(v.Int64())
}

// ---------- twin ----------

// полезная нагрузка одного текстового пакета; длиннее радио обрежет
const maxReplyLen = 228

// "#twin d <text>" — декодировать, "#twin <text>" — закодировать.
func (bot *MeshBot) cmdTwin(req request) bool {
	if len(req.args) == 0 || bot.codec == nil {
		return false
	}
	if req.args[0] == "d" {
		content := strings.Join(req.args[1:], " ")
		plain, err := bot.codec.Decode(content)
		if err != nil {
			bot.log.Warn("twin decode failed", "err", err)
			plain = "Cannot decode."
		}
		bot.say(plain, true, req.pkt.From)
		return true
	}
	enc := bot.codec.Encode(strings.Join(req.args, " "))
	if len(enc) > maxReplyLen {
		// обрезанный шифртекст уже не раскодировать
		enc = "Too long to encode."
	}
	bot.say(enc, true, req.pkt.From)
	return true
}

// ---------- данные из кэша ----------

func (bot *MeshBot) cmdWeather(req request) bool {
	text := "Weather data not available yet."
	if c := bot.cache.Load(); c != nil && c.Weather != "" {
		text = c.Weather
	}
	bot.say(text, true, req.pkt.From)
	return true
}

func (bot *MeshBot) cmdTides(req request) bool {
	text := "Tide data not available yet."
	if c := bot.cache.Load(); c != nil && c.Tides != "" {
		text = c.Tides
	}
	bot.say(text, true, req.pkt.From)
	return true
}

// ---------- диагностика ----------

func (bot *MeshBot) cmdTest(req request) bool {
	bot.say("🟢 ACK", true, req.pkt.From)
	return true
}

func (bot *MeshBot) cmdTestDetail(req request) bool {
	bot.say(testDetail(req.pkt), true, req.pkt.From)
	return true
}

// "🟢 ACK.Received from 2 hop(s) away at -97dB, SNR: 6.25dB (56%)"
func testDetail(p meshclient.Packet) string {
	var sb strings.Builder
	sb.WriteString("🟢 ACK.")
	if hops, ok := p.Hops(); ok {
		if hops == 0 {
			sb.WriteString("Received Directly at ")
		} else {
			fmt.Fprintf(&sb, "Received from %d hop(s) away at ", hops)
		}
	}
	snr := float64(p.RxSNR)
	fmt.Fprintf(&sb, "%ddB, SNR: %sdB (%d%%)",
		p.RxRSSI, strconv.FormatFloat(snr, 'f', -1, 32), int(snr+10*5))
	return sb.String()
}

func (bot *MeshBot) cmdHelp(req request) bool {
	bot.say(helpText, false, req.pkt.From)
	return true
}
