package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/meshbot/internal/directory"
	"github.com/EgorLis/meshbot/internal/mailbox"
	"github.com/EgorLis/meshbot/internal/meshclient"
	"github.com/EgorLis/meshbot/internal/twinhex"
)

type sent struct {
	text    string
	wantAck bool
	dest    uint32
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) SendText(text string, wantAck bool, dest uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{text, wantAck, dest})
	return nil
}

func (f *fakeSender) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.msgs...)
}

func (f *fakeSender) texts() []string {
	var out []string
	for _, m := range f.all() {
		out = append(out, m.text)
	}
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	f.msgs = nil
	f.mu.Unlock()
}

type fakeDirectory struct {
	nodes  []directory.Node
	opens  int
	closes int
	err    error
}

func (d *fakeDirectory) open() (Directory, error) {
	d.opens++
	return d, nil
}

func (d *fakeDirectory) SearchByID(hexID string) (directory.Node, error) {
	if d.err != nil {
		return directory.Node{}, d.err
	}
	hexID = strings.ToLower(strings.TrimPrefix(hexID, "!"))
	for _, n := range d.nodes {
		if strings.TrimPrefix(n.ID, "!") == hexID {
			return n, nil
		}
	}
	return directory.Node{}, directory.ErrNotFound
}

func (d *fakeDirectory) SearchByShortName(name string) (directory.Node, error) {
	for _, n := range d.nodes {
		if strings.EqualFold(n.ShortName, name) {
			return n, nil
		}
	}
	return directory.Node{}, directory.ErrNotFound
}

func (d *fakeDirectory) Close() error {
	d.closes++
	return nil
}

type fakeMailbox struct {
	msgs     map[string][]mailbox.Message
	countErr error
}

func newFakeMailbox() *fakeMailbox { return &fakeMailbox{msgs: map[string][]mailbox.Message{}} }

func (m *fakeMailbox) Count(addr string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.msgs[addr]), nil
}

func (m *fakeMailbox) Get(addr string) ([]mailbox.Message, error) { return m.msgs[addr], nil }

func (m *fakeMailbox) Delete(addr string) error {
	delete(m.msgs, addr)
	return nil
}

func (m *fakeMailbox) Post(recipient, content string) error {
	m.msgs[recipient] = append(m.msgs[recipient], mailbox.Message{Recipient: recipient, Content: content})
	return nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeFetcher struct {
	name string
	text string
	err  error
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(context.Context) (string, error) { return f.text, f.err }

type panicCodec struct{}

func (panicCodec) Encode(string) string { panic("boom") }

func (panicCodec) Decode(string) (string, error) { panic("boom") }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const (
	alice uint32 = 0xaaa111
	bob   uint32 = 0xbbb222
)

func newTestBot(t *testing.T) (*MeshBot, *fakeSender) {
	t.Helper()
	b := New(discard())
	s := &fakeSender{}
	b.SetMesh(s)
	b.SetClock(&fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)})
	return b, s
}

func text(from, to uint32, msg string) meshclient.Packet {
	return meshclient.Packet{From: from, To: to, PortNum: 1, Text: msg}
}

func TestHandlePacketIgnoresNonText(t *testing.T) {
	b, s := newTestBot(t)
	b.HandlePacket(meshclient.Packet{From: alice, To: meshclient.Broadcast, PortNum: 67, Text: "#test"})
	assert.Empty(t, s.all())
}

func TestTestCommand(t *testing.T) {
	b, s := newTestBot(t)
	b.HandlePacket(text(alice, meshclient.Broadcast, "#TEST"))

	require.Equal(t, []sent{{"🟢 ACK", true, alice}}, s.all())
	assert.Equal(t, 1, b.State().Transmissions)
}

func TestKeywordMatching(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"#flipcoin extra text", "#flipcoin"},
		{"please #help me", "#help"},
		{"#help #test", "#test"},
		{"#fw #help", "#fw"},
		{"#tst-detail", "#tst-detail"},
		{"#whois #abc", "#whois #"},
		{"#whois abc", ""},
		{"hello there", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			c, _, ok := match(tc.in)
			if tc.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.want, c.keyword)
		})
	}
}

func TestUnknownTextIsSilent(t *testing.T) {
	b, s := newTestBot(t)
	b.HandlePacket(text(alice, meshclient.Broadcast, "good morning mesh"))
	assert.Empty(t, s.all())
	assert.Equal(t, 0, b.State().Transmissions)
}

func TestDutyCycleCeiling(t *testing.T) {
	b, s := newTestBot(t)
	b.state.SetDutyCycle(true)

	for range 17 {
		b.HandlePacket(text(alice, meshclient.Broadcast, "#test"))
	}

	var acks, notices int
	for _, m := range s.all() {
		switch m.text {
		case "🟢 ACK":
			acks++
		case cooldownNotice:
			notices++
			assert.Equal(t, meshclient.Broadcast, m.dest)
			assert.False(t, m.wantAck)
		}
	}
	assert.Equal(t, 16, acks, "17th message must be gated")
	assert.Equal(t, 1, notices)
	assert.Equal(t, 16, b.State().Transmissions)
	assert.True(t, b.State().Cooldown)
}

func TestCooldownNoticeOnceAtThreshold(t *testing.T) {
	b, s := newTestBot(t)
	b.state.SetDutyCycle(true)

	for range 10 {
		b.HandlePacket(text(alice, meshclient.Broadcast, "#test"))
	}
	assert.NotContains(t, s.texts(), cooldownNotice)

	b.HandlePacket(text(alice, meshclient.Broadcast, "#test"))
	assert.Equal(t, cooldownNotice, s.texts()[len(s.texts())-1])

	b.HandlePacket(text(alice, meshclient.Broadcast, "#test"))
	b.HandlePacket(text(alice, meshclient.Broadcast, "no command"))

	n := 0
	for _, tx := range s.texts() {
		if tx == cooldownNotice {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, 12, b.State().Transmissions)
}

func TestNoCooldownWithoutDutyCycle(t *testing.T) {
	b, s := newTestBot(t)
	for range 20 {
		b.HandlePacket(text(alice, meshclient.Broadcast, "#test"))
	}
	assert.Len(t, s.all(), 20)
	assert.False(t, b.State().Cooldown)
	assert.Equal(t, 20, b.State().Transmissions)
}

func TestPolicyToggles(t *testing.T) {
	b, s := newTestBot(t)

	var fw []bool
	b.HandlePacket(text(alice, meshclient.Broadcast, "#fw off"))
	fw = append(fw, b.State().Firewall)
	b.HandlePacket(text(alice, meshclient.Broadcast, "#fw"))
	fw = append(fw, b.State().Firewall)
	assert.Equal(t, []bool{false, true}, fw)

	// пустой список разрешённых: теперь отбрасывается всё, и "#dm" тоже
	b.HandlePacket(text(alice, meshclient.Broadcast, "#dm on"))
	assert.False(t, b.State().DMOnly)

	b.state.SetFirewall(false)

	var dm []bool
	b.HandlePacket(text(alice, meshclient.Broadcast, "#dm OFF"))
	dm = append(dm, b.State().DMOnly)
	b.HandlePacket(text(alice, meshclient.Broadcast, "#dm"))
	dm = append(dm, b.State().DMOnly)
	assert.Equal(t, []bool{false, true}, dm)

	assert.Empty(t, s.all())
	assert.Equal(t, 0, b.State().Transmissions)
}

func TestDMModeTurnedOffByDirectMessage(t *testing.T) {
	b, _ := newTestBot(t)
	b.state.mu.Lock()
	b.state.myNode = "!abc123"
	b.state.mu.Unlock()

	b.HandlePacket(text(alice, meshclient.Broadcast, "#dm"))
	require.True(t, b.State().DMOnly)

	b.HandlePacket(text(alice, meshclient.Broadcast, "#dm off"))
	assert.True(t, b.State().DMOnly, "broadcast is gated in dm mode")

	b.HandlePacket(text(alice, 0xabc123, "#dm off"))
	assert.False(t, b.State().DMOnly)
}

func TestFirewallLocksOutOthers(t *testing.T) {
	b, s := newTestBot(t)
	b.state.mu.Lock()
	b.state.myNodes = []string{"aaa1"}
	b.state.mu.Unlock()

	b.HandlePacket(text(alice, meshclient.Broadcast, "#fw"))
	b.HandlePacket(text(bob, meshclient.Broadcast, "#test"))
	assert.Empty(t, s.all())

	b.HandlePacket(text(alice, meshclient.Broadcast, "#test"))
	assert.Len(t, s.all(), 1)

	// "#fw off" от чужого узла тоже отброшен
	b.HandlePacket(text(bob, meshclient.Broadcast, "#fw off"))
	assert.True(t, b.State().Firewall)
}

func TestFlipCoin(t *testing.T) {
	b, s := newTestBot(t)
	for range 50 {
		b.HandlePacket(text(alice, meshclient.Broadcast, "#flipcoin"))
	}
	for _, m := range s.all() {
		assert.Contains(t, []string{"Heads", "Tails"}, m.text)
		assert.True(t, m.wantAck)
	}
	assert.Equal(t, 50, b.State().Transmissions)
}

func TestRandomDistribution(t *testing.T) {
	b, s := newTestBot(t)
	const trials = 10000
	for range trials {
		b.HandlePacket(text(alice, meshclient.Broadcast, "#random"))
	}

	counts := map[string]int{}
	for _, tx := range s.texts() {
		counts[tx]++
	}
	require.Len(t, counts, 10)
	for v := 1; v <= 10; v++ {
		n := counts[strconv.Itoa(v)]
		assert.InDelta(t, trials/10, n, 200, "value %d", v)
	}
}

func TestTwin(t *testing.T) {
	b, s := newTestBot(t)
	b.SetCodec(codecStub{})

	b.HandlePacket(text(alice, meshclient.Broadcast, "#twin hello mesh"))
	b.HandlePacket(text(alice, meshclient.Broadcast, "#twin d abc"))
	b.HandlePacket(text(alice, meshclient.Broadcast, "#twin d bad"))
	b.HandlePacket(text(alice, meshclient.Broadcast, "#twin"))

	assert.Equal(t, []string{"enc(hello mesh)", "dec(abc)", "Cannot decode."}, s.texts())
	assert.Equal(t, 3, b.State().Transmissions)
}

func TestTwinRejectsTooLongForOnePacket(t *testing.T) {
	b, s := newTestBot(t)
	b.SetCodec(twinhex.Codec{})

	fits := strings.Repeat("a", maxReplyLen/2)
	b.HandlePacket(text(alice, meshclient.Broadcast, "#twin "+fits))
	b.HandlePacket(text(alice, meshclient.Broadcast, "#twin "+fits+"a"))

	got := s.texts()
	require.Len(t, got, 2)
	assert.Len(t, got[0], maxReplyLen)
	plain, err := twinhex.Codec{}.Decode(got[0])
	require.NoError(t, err)
	assert.Equal(t, fits, plain)
	assert.Equal(t, "Too long to encode.", got[1])
}

type codecStub struct{}

func (codecStub) Encode(s string) string { return "enc(" + s + ")" }

func (codecStub) Decode(s string) (string, error) {
	if s == "bad" {
		return "", errors.New("malformed")
	}
	return "dec(" + s + ")", nil
}

func TestPanickingHandlerIsContained(t *testing.T) {
	b, s := newTestBot(t)
	b.SetCodec(panicCodec{})

	assert.NotPanics(t, func() {
		b.HandlePacket(text(alice, meshclient.Broadcast, "#twin boom"))
	})
	assert.Empty(t, s.all())
	assert.Equal(t, 0, b.State().Transmissions)

	b.HandlePacket(text(alice, meshclient.Broadcast, "#test"))
	assert.Len(t, s.all(), 1)
}

func TestSendErrorDoesNotStopBot(t *testing.T) {
	b, s := newTestBot(t)
	s.err = errors.New("radio gone")
	b.HandlePacket(text(alice, meshclient.Broadcast, "#test"))
	s.err = nil
	b.HandlePacket(text(alice, meshclient.Broadcast, "#test"))
	assert.Len(t, s.all(), 1)
}

func TestTestDetail(t *testing.T) {
	cases := []struct {
		name string
		p    meshclient.Packet
		want string
	}{
		{
			name: "relayed",
			p:    meshclient.Packet{HopStart: 3, HopLimit: 1, RxRSSI: -97, RxSNR: 6.25},
			want: "🟢 ACK.Received from 2 hop(s) away at -97dB, SNR: 6.25dB (56%)",
		},
		{
			name: "direct",
			p:    meshclient.Packet{HopStart: 3, HopLimit: 3, RxRSSI: -40, RxSNR: 10},
			want: "🟢 ACK.Received Directly at -40dB, SNR: 10dB (60%)",
		},
		{
			name: "no hop info",
			p:    meshclient.Packet{RxRSSI: -110, RxSNR: -7.5},
			want: "🟢 ACK.-110dB, SNR: -7.5dB (42%)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, testDetail(tc.p))
		})
	}
}

func TestHelpNotAcked(t *testing.T) {
	b, s := newTestBot(t)
	b.HandlePacket(text(alice, meshclient.Broadcast, "#help"))
	require.Len(t, s.all(), 1)
	assert.Equal(t, helpText, s.all()[0].text)
	assert.False(t, s.all()[0].wantAck)
	assert.Equal(t, 1, b.State().Transmissions)
}

func TestStartStop(t *testing.T) {
	b := New(discard())
	require.Error(t, b.Start(context.Background()))

	b, _ = newTestBot(t)
	b.refreshEvery = time.Hour
	b.SetFetchers(&fakeFetcher{name: "weather", text: "sunny"}, nil)
	require.NoError(t, b.Start(context.Background()))
	require.Error(t, b.Start(context.Background()))

	require.Eventually(t, func() bool { return b.Cached() != nil }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "sunny", b.Cached().Weather)

	b.Stop()
	b.Stop()
}
