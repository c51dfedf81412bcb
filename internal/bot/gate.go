package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/EgorLis/meshbot/internal/meshclient"
)

const (
	// жёсткий потолок: при включённом duty cycle сообщения не обрабатываются
	maxTransmissions = 16
	// порог объявления cooldown
	cooldownThreshold = 11
)

// Eligible решает, обрабатывать ли сообщение вообще.
// Отказ молчаливый: ни ответа, ни ошибки.
func Eligible(p meshclient.Packet, st Snapshot) bool {
	if st.DutyCycle && st.Transmissions >= maxTransmissions {
		return false
	}
	if st.DMOnly && !addressedTo(p.To, st.MyNode) {
		return false
	}
	if st.Firewall && !allowed(p.From, st.MyNodes) {
		return false
	}
	return true
}

// id узла во всех ходовых записях: "!abc123", "!00abc123" (так его
// показывают приложения и прошивка) и десятичной
func nodeForms(num uint32) [3]string {
	return [3]string{
		meshclient.NodeID(num),
		fmt.Sprintf("!%08x", num),
		strconv.FormatUint(uint64(num), 10),
	}
}

func addressedTo(to uint32, myNode string) bool {
	if myNode == "" {
		return false
	}
	for _, f := range nodeForms(to) {
		if f == myNode {
			return true
		}
	}
	return false
}

// allowed — вхождение подстрокой, не равенство: короткая запись в MYNODES
// пропускает и более длинные id, которые её содержат.
func allowed(from uint32, list []string) bool {
	forms := nodeForms(from)
	for _, entry := range list {
		if entry == "" {
			continue
		}
		for _, f := range forms {
			if strings.Contains(f, entry) {
				return true
			}
		}
	}
	return false
}
