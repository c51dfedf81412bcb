package bot

import (
	"fmt"
	"strings"
)

// "#bbs any" | "#bbs get" | "#bbs post <user> <text>"
// Адрес ящика — id отправителя в виде "!hex".
func (bot *MeshBot) cmdBBS(req request) bool {
	if len(req.args) == 0 || bot.mailbox == nil {
		return false
	}
	switch req.args[0] {
	case "any":
		n, err := bot.mailbox.Count(req.sender)
		if err != nil {
			// ошибка хранилища для пользователя выглядит как пустой ящик
			bot.log.Error("bbs count failed", "err", err)
			n = 0
		}
		bot.log.Info("bbs messages found", "count", n, "for", req.sender)
		bot.say(fmt.Sprintf("You have %d messages.", n), true, req.pkt.From)
		return true

	case "get":
		msgs, err := bot.mailbox.Get(req.sender)
		if err != nil {
			bot.log.Error("bbs get failed", "err", err)
			return false
		}
		if len(msgs) == 0 {
			bot.say("No new messages.", false, req.pkt.From)
			return true
		}
		// несколько сообщений — всё равно одна передача в счётчике
		for _, m := range msgs {
			bot.say(m.Content, false, req.pkt.From)
		}
		if err := bot.mailbox.Delete(req.sender); err != nil {
			bot.log.Error("bbs delete failed", "err", err)
		}
		return true

	case "post":
		if len(req.args) < 3 {
			return false
		}
		to, from := bot.resolvePost(req.args[1], req.pkt.From)
		content := fmt.Sprintf("%s. From: %s(%s)", strings.Join(req.args[2:], " "), from, req.sender)
		if err := bot.mailbox.Post(to, content); err != nil {
			bot.log.Error("bbs post failed", "err", err)
			return false
		}
		bot.log.Info("bbs message posted", "to", to, "from", req.sender)
		return false
	}
	return false
}

// resolvePost возвращает адрес получателя и отображаемое имя отправителя.
// Получатель: "!id" как есть, известное короткое имя — id узла, иначе
// имя как написано. Отправитель: короткое имя из справочника или 0xhex.
func (bot *MeshBot) resolvePost(recipient string, sender uint32) (to, from string) {
	to = recipient
	from = fmt.Sprintf("0x%x", sender)
	if bot.openDirectory == nil {
		return to, from
	}
	db, err := bot.openDirectory()
	if err != nil {
		bot.log.Warn("bbs: directory unavailable", "err", err)
		return to, from
	}
	defer db.Close()

	if n, err := db.SearchByID(fmt.Sprintf("%x", sender)); err == nil && n.ShortName != "" {
		from = n.ShortName
	}
	if !strings.HasPrefix(recipient, "!") {
		if n, err := db.SearchByShortName(recipient); err == nil {
			to = normalizeNodeID(n.ID)
		}
	}
	return to, from
}

func normalizeNodeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if !strings.HasPrefix(id, "!") {
		id = "!" + id
	}
	return id
}

