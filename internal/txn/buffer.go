package txn

// State of a transaction buffer.
type State uint8

const (
	Idle State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "idle"
}

// Buffer queues command strings between BEGIN and COMMIT/ROLLBACK.
// It belongs to one executor and is never shared or persisted.
type Buffer struct {
	state   State
	pending []string
}

func NewBuffer() *Buffer { return &Buffer{} }

func (b *Buffer) State() State { return b.state }

func (b *Buffer) IsOpen() bool { return b.state == Open }

// Len is the number of queued commands.
func (b *Buffer) Len() int { return len(b.pending) }

// Begin opens the buffer. Commands queued by an earlier BEGIN are dropped.
// It returns how many were dropped.
func (b *Buffer) Begin() int {
	dropped := len(b.pending)
	b.pending = nil
	b.state = Open
	return dropped
}

// Append queues cmd. It reports false when no transaction is open.
func (b *Buffer) Append(cmd string) bool {
	if b.state != Open {
		return false
	}
	b.pending = append(b.pending, cmd)
	return true
}

// Drain returns the queued commands in insertion order and resets to Idle.
func (b *Buffer) Drain() []string {
	out := b.pending
	b.pending = nil
	b.state = Idle
	return out
}

// Discard drops the queued commands and resets to Idle.
func (b *Buffer) Discard() int {
	n := len(b.pending)
	b.pending = nil
	b.state = Idle
	return n
}
