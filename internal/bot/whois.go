package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/EgorLis/meshbot/internal/directory"
)

const noMatch = "No matching record found."

// "#whois #<hex id | short name>"
// Сначала поиск по hex id; если по id ничего нет — ответ "no match" сразу.
// Не hex — логируем и ищем по короткому имени. Сессия справочника
// закрывается всегда.
func (bot *MeshBot) cmdWhois(req request) bool {
	query := whoisQuery(req.text)
	if query == "" || bot.openDirectory == nil {
		return false
	}

	db, err := bot.openDirectory()
	if err != nil {
		bot.log.Error("whois: directory unavailable", "err", err)
		return false
	}
	defer db.Close()

	bot.log.Info("whois query", "query", query)

	id := strings.TrimPrefix(query, "!")
	if _, perr := strconv.ParseUint(id, 16, 64); perr == nil {
		node, err := db.SearchByID(id)
		switch {
		case err == nil:
			bot.say(formatNode(node), false, req.pkt.From)
			return true
		case errors.Is(err, directory.ErrNotFound):
			bot.say(noMatch, false, req.pkt.From)
			return true
		default:
			bot.log.Error("whois: id lookup failed", "err", err)
		}
	} else {
		bot.log.Info("whois: not a hex id, trying short name", "query", query)
	}

	node, err := db.SearchByShortName(query)
	if err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			bot.log.Error("whois: short name lookup failed", "err", err)
		}
		bot.say(noMatch, false, req.pkt.From)
		return true
	}
	bot.say(formatNode(node), false, req.pkt.From)
	return true
}

// текст после "#whois #" до следующей "#"
func whoisQuery(text string) string {
	_, rest, ok := strings.Cut(text, "#whois #")
	if !ok {
		return ""
	}
	rest, _, _ = strings.Cut(rest, "#")
	return strings.TrimSpace(rest)
}

func formatNode(n directory.Node) string {
	return fmt.Sprintf("ID:%s\nLong Name: %s\nShort Name: %s", n.ID, n.LongName, n.ShortName)
}
