package adiv5

import (
	"sync"

	"github.com/armdbg/go-adiv5/internal/interfaces"
)

// MockTransport implements interfaces.Transport for unit and
// integration tests. Queued reads are recorded and satisfied from a
// caller-supplied script at Run time (never at enqueue time), matching
// the real journal's lazy-flush contract so tests exercise the same
// ordering guarantees the DAP engine relies on.
type MockTransport struct {
	mu sync.Mutex

	dpScript map[uint8][]uint32
	apScript map[apKey][]uint32
	dpStatic map[uint8]uint32
	apStatic map[apKey]uint32

	// FailDPWrite/FailAPWrite/FailRun let a test inject a transport
	// failure at a specific point without needing a second mock type.
	FailDPWrite func(reg uint8, value uint32) error
	FailAPWrite func(ap, reg uint8, value uint32) error
	FailRun     func() error

	Ops []RecordedOp

	pending []func()
}

type apKey struct {
	ap  uint8
	reg uint8
}

// RecordedOp captures one queued Transport call for assertion in tests.
type RecordedOp struct {
	Kind  interfaces.RegKind
	AP    uint8
	Reg   uint8
	Value uint32
}

// NewMockTransport creates an empty MockTransport. Use SetDPRead and
// SetAPRead to script register values before running a scenario.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		dpScript: make(map[uint8][]uint32),
		apScript: make(map[apKey][]uint32),
		dpStatic: make(map[uint8]uint32),
		apStatic: make(map[apKey]uint32),
	}
}

// SetDPRead scripts a sequence of values for successive reads of a DP
// register; the last value repeats once the sequence is exhausted.
func (m *MockTransport) SetDPRead(reg uint8, values ...uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dpScript[reg] = append([]uint32(nil), values...)
}

// SetAPRead scripts a sequence of values for successive reads of an
// AP register.
func (m *MockTransport) SetAPRead(ap, reg uint8, values ...uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apScript[apKey{ap, reg}] = append([]uint32(nil), values...)
}

func (m *MockTransport) nextDPValue(reg uint8) uint32 {
	seq := m.dpScript[reg]
	if len(seq) == 0 {
		return m.dpStatic[reg]
	}
	v := seq[0]
	if len(seq) > 1 {
		m.dpScript[reg] = seq[1:]
	}
	m.dpStatic[reg] = v
	return v
}

func (m *MockTransport) nextAPValue(ap, reg uint8) uint32 {
	k := apKey{ap, reg}
	seq := m.apScript[k]
	if len(seq) == 0 {
		return m.apStatic[k]
	}
	v := seq[0]
	if len(seq) > 1 {
		m.apScript[k] = seq[1:]
	}
	m.apStatic[k] = v
	return v
}

// QueueDPRead implements interfaces.Transport.
func (m *MockTransport) QueueDPRead(reg uint8, dst *uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, RecordedOp{Kind: interfaces.KindDPRead, Reg: reg})
	if dst != nil {
		m.pending = append(m.pending, func() { *dst = m.nextDPValue(reg) })
	}
	return nil
}

// QueueDPWrite implements interfaces.Transport.
func (m *MockTransport) QueueDPWrite(reg uint8, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, RecordedOp{Kind: interfaces.KindDPWrite, Reg: reg, Value: value})
	if m.FailDPWrite != nil {
		return m.FailDPWrite(reg, value)
	}
	return nil
}

// QueueAPRead implements interfaces.Transport.
func (m *MockTransport) QueueAPRead(ap, reg uint8, dst *uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, RecordedOp{Kind: interfaces.KindAPRead, AP: ap, Reg: reg})
	if dst != nil {
		m.pending = append(m.pending, func() { *dst = m.nextAPValue(ap, reg) })
	}
	return nil
}

// QueueAPWrite implements interfaces.Transport.
func (m *MockTransport) QueueAPWrite(ap, reg uint8, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, RecordedOp{Kind: interfaces.KindAPWrite, AP: ap, Reg: reg, Value: value})
	if m.FailAPWrite != nil {
		return m.FailAPWrite(ap, reg, value)
	}
	return nil
}

// Run implements interfaces.Transport: it populates every pending
// read destination in FIFO order, then reports FailRun if set.
func (m *MockTransport) Run() error {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	if m.FailRun != nil {
		return m.FailRun()
	}
	return nil
}

// Reset clears recorded ops and pending reads, leaving scripted values
// in place.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = nil
	m.pending = nil
}

var _ interfaces.Transport = (*MockTransport)(nil)
