package bot

import "github.com/EgorLis/meshbot/internal/meshclient"

const shutdownNotice = "💣 Deactivating all reachable bots... SECRET_SHUTDOWN_STRING"

// Двухшаговое подтверждение:
//
//	IDLE(0) --#kill_all_robots--> ARMED(1): "Confirm" только запросившему
//	ARMED   --#kill_all_robots--> IDLE: широковещательное уведомление
//
// Взведённое состояние протухает: планировщик сбрасывает его через 120s.
func (bot *MeshBot) cmdKillAllRobots(req request) bool {
	if bot.state.ArmKill() == 1 {
		bot.log.Warn("kill all robots armed", "by", req.sender)
		bot.say("Confirm", false, req.pkt.From)
		return true
	}
	bot.log.Warn("kill all robots executed", "by", req.sender)
	bot.say(shutdownNotice, false, meshclient.Broadcast)
	// второй кадр шага: подтверждение учитывает диспетчер, уведомление — здесь
	bot.state.AddTransmissions(1)
	return true
}
