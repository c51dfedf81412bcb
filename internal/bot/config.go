package bot

import (
	"github.com/EgorLis/meshbot/internal/config"
)

// UseSettings применяет settings.yaml к состоянию бота: политики
// (DUTYCYCLE, DM_MODE, FIREWALL) и неизменяемые параметры узла.
// Вызывается до Start.
func (bot *MeshBot) UseSettings(s *config.Settings) {
	st := bot.state
	st.mu.Lock()
	st.dutyCycle = s.DutyCycle
	st.dmOnly = s.DMMode
	st.firewall = s.Firewall
	st.location = s.Location
	st.tideLocation = s.TideLocation
	st.myNode = s.MyNode
	st.myNodes = append([]string(nil), s.MyNodes...)
	st.dbFile = s.DBFile
	st.mu.Unlock()

	bot.log.Info("settings applied",
		"duty_cycle", s.DutyCycle,
		"dm_mode", s.DMMode,
		"firewall", s.Firewall,
		"my_node", s.MyNode,
		"allowed", len(s.MyNodes),
	)
	if s.DMMode && s.MyNode == "" {
		bot.log.Warn("DM_MODE is on but MYNODE is empty: every message will be dropped")
	}
}
