package bot

import (
	"fmt"
	"strings"

	"github.com/EgorLis/meshbot/internal/meshclient"
)

// request — одно входящее сообщение, дошедшее до диспетчера.
type request struct {
	pkt    meshclient.Packet
	text   string   // в нижнем регистре
	args   []string // слова после ключевого слова
	sender string   // "!hex" отправителя
}

// handler возвращает true, если отправил хотя бы один ответ.
type handler func(bot *MeshBot, req request) bool

type command struct {
	keyword string
	handle  handler
	// ответ учитывается в счётчике передач
	counted bool
}

// Порядок важен: срабатывает первое ключевое слово, входящее в текст
// подстрокой ("#flipcoin extra text" тоже совпадает).
var routes = []command{
	{keyword: "#fw", handle: (*MeshBot).cmdFirewall},
	{keyword: "#dm", handle: (*MeshBot).cmdDMOnly},
	{keyword: "#flipcoin", handle: (*MeshBot).cmdFlipCoin, counted: true},
	{keyword: "#random", handle: (*MeshBot).cmdRandom, counted: true},
	{keyword: "#twin", handle: (*MeshBot).cmdTwin, counted: true},
	{keyword: "#weather", handle: (*MeshBot).cmdWeather, counted: true},
	{keyword: "#tides", handle: (*MeshBot).cmdTides, counted: true},
	{keyword: "#test", handle: (*MeshBot).cmdTest, counted: true},
	{keyword: "#tst-detail", handle: (*MeshBot).cmdTestDetail, counted: true},
	{keyword: "#whois #", handle: (*MeshBot).cmdWhois, counted: true},
	{keyword: "#bbs", handle: (*MeshBot).cmdBBS, counted: true},
	{keyword: "#kill_all_robots", handle: (*MeshBot).cmdKillAllRobots, counted: true},
	{keyword: "#help", handle: (*MeshBot).cmdHelp, counted: true},
}

const helpText = "Available commands:\n #help\n #test\n #tst-detail\n #weather\n #tides\n #flipcoin\n #random\n" +
	" #twin [d] <text>\n #whois #<id|name>\n #bbs any|get|post <user> <text>\n"

func match(text string) (command, int, bool) {
	for _, c := range routes {
		if i := strings.Index(text, c.keyword); i >= 0 {
			return c, i, true
		}
	}
	return command{}, 0, false
}

// dispatch выполняет не более одной команды. Паника обработчика
// перехватывается здесь и не уходит в readLoop транспорта.
func (bot *MeshBot) dispatch(p meshclient.Packet, text string) (name string) {
	cmd, at, ok := match(text)
	if !ok {
		return ""
	}
	name = cmd.keyword
	req := request{
		pkt:    p,
		text:   text,
		args:   strings.Fields(text[at+len(cmd.keyword):]),
		sender: meshclient.NodeID(p.From),
	}

	defer func() {
		if r := recover(); r != nil {
			bot.log.Error("command panicked", "command", name, "panic", fmt.Sprint(r))
			commandPanics.Inc()
		}
	}()

	bot.log.Info("command received", "command", name, "from", req.sender)
	commandsTotal.WithLabelValues(name).Inc()
	bot.emit(Event{Kind: EventCommand, From: req.sender, Command: name, Text: p.Text})

	replied := cmd.handle(bot, req)
	if replied && cmd.counted {
		bot.state.AddTransmissions(1)
	}
	return name
}
