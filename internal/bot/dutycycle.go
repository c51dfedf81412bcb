package bot

import "github.com/EgorLis/meshbot/internal/meshclient"

const cooldownNotice = "❌ Bot has reached duty cycle, entering cool down... ❄"

// checkDutyCycle запускается после каждого текстового сообщения, даже
// отброшенного гейтом. Объявляет cooldown один раз за пересечение порога;
// само объявление в счётчик передач не идёт.
func (bot *MeshBot) checkDutyCycle() {
	entered, reached := bot.state.EnterCooldown(cooldownThreshold)
	if !reached {
		return
	}
	if entered {
		bot.say(cooldownNotice, false, meshclient.Broadcast)
		bot.log.Info("cooldown enabled")
		cooldownsTotal.Inc()
		bot.emit(Event{Kind: EventCooldown})
	}
	bot.log.Info("duty cycle limit reached, please wait before transmitting again")
}
