package meshclient

import (
	"path/filepath"
	"sort"
)

// шаблоны устройств, под которыми обычно появляются USB-радио
var portPatterns = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/cu.usb*",
}

// ListPorts возвращает найденные serial-устройства, похожие на радио.
func ListPorts() []string {
	return listPorts(portPatterns)
}

func listPorts(patterns []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out
}
