// Package bot — прикладная часть mesh-бота: принимает текстовые пакеты от
// meshclient, решает, отвечать ли (гейт), выполняет одну команду и ведёт
// учёт передач для duty cycle.
//
// Поток сообщения:
//   - HandlePacket: текст приводится к нижнему регистру;
//   - Eligible: duty cycle (потолок 16), DM_MODE, FIREWALL;
//   - dispatch: первое ключевое слово из routes, входящее в текст;
//   - учёт: +1 за ответ учитываемой команды, #kill_all_robots на втором шаге +2;
//   - checkDutyCycle: на 11 передачах — одно объявление cooldown.
//
// Фоновые циклы (Start/Stop):
//   - maintenance: раз в 5s проверяет сроки — уменьшение счётчика (180s),
//     снятие cooldown (240s), сброс подтверждения kill (120s);
//   - refreshLoop: раз в 3h обновляет погоду и приливы в кэше.
//
// Внешние зависимости передаются сеттерами до Start:
//
//	b := bot.New(log)
//	b.UseSettings(settings)
//	b.SetMesh(client)
//	b.SetDirectory(openDirectory)
//	b.SetMailbox(mb)
//	b.SetCodec(twinhex.Codec{})
//	b.SetFetchers(weather.New(loc, hc), tides.New(tideLoc, hc))
//
//	client.OnPacket = b.HandlePacket
//	if err := b.Start(ctx); err != nil { ... }
//	defer b.Stop()
package bot
