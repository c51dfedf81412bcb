// Package meshclient реализует клиент потокового API Meshtastic.
// Радио подключается по TCP (host:4403) или через serial (USB), поток
// состоит из кадров 0x94 0xC3 <длина> <protobuf>. Клиент отправляет
// ToRadio и принимает FromRadio, кодируя protobuf вручную через protowire
// (используется только малая часть схемы: MeshPacket, Data, MyNodeInfo).
//
// Возможности:
//   - SendText — текст узлу или всем (Broadcast), с want_ack или без;
//   - приём текстовых пакетов (TEXT_MESSAGE_APP) через колбэк OnPacket;
//   - номер собственного узла (MyNode) из my_info;
//   - ListPorts — поиск USB serial-устройств.
//
// События (колбэки поля структуры):
//   - OnConnecting, OnConnected, OnPacket, OnDisconnected, OnError.
//
// Устойчивость:
//   - Запись в поток сериализована (мьютекс + write-deadline для TCP).
//   - Heartbeat при долгой тишине; при обрыве — реконнект с экспоненциальным
//     backoff (1s…30s).
//   - OnPacket вызывается синхронно из readLoop: пакеты обрабатываются строго
//     по одному.
//
// Пример:
//
//	mc := meshclient.New(meshclient.Config{Host: "192.168.1.50"}, log)
//	mc.OnPacket = func(p meshclient.Packet) { fmt.Println(p.Text) }
//	if err := mc.Connect(ctx); err != nil { log.Fatal(err) }
//	defer mc.Disconnect()
//
//	_ = mc.SendText("hello mesh", false, meshclient.Broadcast)
package meshclient
