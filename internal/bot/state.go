package bot

import (
	"slices"
	"sync"
)

// State — общее изменяемое состояние бота. Все поля под одним мьютексом:
// читают его гейт и монитор duty cycle, пишут команды и планировщик.
type State struct {
	mu sync.Mutex

	transmissions int
	cooldown      bool
	killConfirm   int

	dutyCycle bool
	dmOnly    bool
	firewall  bool

	// задаются один раз при старте (configure)
	location     string
	tideLocation string
	myNode       string
	myNodes      []string
	dbFile       string
}

type Snapshot struct {
	Transmissions int      `json:"transmissions"`
	Cooldown      bool     `json:"cooldown"`
	KillConfirm   int      `json:"kill_confirm"`
	DutyCycle     bool     `json:"duty_cycle"`
	DMOnly        bool     `json:"dm_only"`
	Firewall      bool     `json:"firewall"`
	Location      string   `json:"location"`
	TideLocation  string   `json:"tide_location"`
	MyNode        string   `json:"my_node"`
	MyNodes       []string `json:"my_nodes"`
	DBFile        string   `json:"db_file"`
}

func NewState() *State { return &State{} }

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Transmissions: s.transmissions,
		Cooldown:      s.cooldown,
		KillConfirm:   s.killConfirm,
		DutyCycle:     s.dutyCycle,
		DMOnly:        s.dmOnly,
		Firewall:      s.firewall,
		Location:      s.location,
		TideLocation:  s.tideLocation,
		MyNode:        s.myNode,
		MyNodes:       slices.Clone(s.myNodes),
		DBFile:        s.dbFile,
	}
}

func (s *State) AddTransmissions(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transmissions += n
	return s.transmissions
}

// DecayTransmissions уменьшает счётчик на 1, не ниже нуля.
func (s *State) DecayTransmissions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transmissions = max(0, s.transmissions-1)
	return s.transmissions
}

// EnterCooldown включает cooldown при пересечении порога.
// reached — порог пересечён (и duty cycle включён), entered — cooldown
// включён именно этим вызовом.
func (s *State) EnterCooldown(threshold int) (entered, reached bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dutyCycle || s.transmissions < threshold {
		return false, false
	}
	if s.cooldown {
		return false, true
	}
	s.cooldown = true
	return true, true
}

func (s *State) ClearCooldown() {
	s.mu.Lock()
	s.cooldown = false
	s.mu.Unlock()
}

// ArmKill продвигает подтверждение #kill_all_robots и возвращает
// достигнутую ступень: 1 — взведено, 2 — выполнено (счётчик уже сброшен).
func (s *State) ArmKill() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killConfirm++
	step := s.killConfirm
	if step > 1 {
		s.killConfirm = 0
	}
	return step
}

func (s *State) ResetKill() {
	s.mu.Lock()
	s.killConfirm = 0
	s.mu.Unlock()
}

func (s *State) SetFirewall(on bool) {
	s.mu.Lock()
	s.firewall = on
	s.mu.Unlock()
}

func (s *State) SetDMOnly(on bool) {
	s.mu.Lock()
	s.dmOnly = on
	s.mu.Unlock()
}

func (s *State) SetDutyCycle(on bool) {
	s.mu.Lock()
	s.dutyCycle = on
	s.mu.Unlock()
}
