package world

import "sync"

// Status is a house's repair state. Houses start Broken or Fixed at
// world build time and flip Broken -> Fixed exactly once.
type Status uint8

const (
	StatusBroken Status = iota
	StatusFixed
)

func (s Status) String() string {
	if s == StatusBroken {
		return "BROKEN"
	}
	return "FIXED"
}

// Message is the single shared slot of a house: the note the most
// recent visitor left behind. Repaired is the writer's belief of the
// global repair count at write time. Tallies breaks that belief down
// per repairman (each entry is the highest personal repair count the
// writer has seen for that repairman); readers merge it entry-wise,
// which is what lets two workers that each fixed half the town ever
// learn the full total.
type Message struct {
	Repaired int
	Writer   string
	Tallies  map[string]int
}

// Clone deep-copies the message so snapshot readers never alias the
// map a later visitor will replace.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := &Message{Repaired: m.Repaired, Writer: m.Writer}
	if m.Tallies != nil {
		c.Tallies = make(map[string]int, len(m.Tallies))
		for k, v := range m.Tallies {
			c.Tallies[k] = v
		}
	}
	return c
}

// House is one grid cell. Status and Message form one atomic unit:
// both are only touched inside World.Visit, which holds mu.
type House struct {
	Status  Status
	Message *Message

	mu sync.Mutex
}
