// Package loopback provides a same-process reference Transport: a
// simulated DP/AP register file backed by plain Go memory, used by the
// cmd/adi-shell diagnostic CLI in place of a real JTAG/SWD link. It is grounded on the teacher's in-memory backend
// (backend.Memory): a sharded byte slice standing in for a real block
// device, here standing in for a real target's debug registers and
// the memory its MEM-APs bridge to.
package loopback

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/armdbg/go-adiv5/internal/interfaces"
	"github.com/armdbg/go-adiv5/internal/regs"
)

// apState is one simulated MEM-AP: its CSW/TAR shadow as the target
// would see them, fixed identification registers, and the backing
// memory its DRW/BDx accesses read and write.
type apState struct {
	csw, tar uint32
	idr      uint32
	base     uint32
	cfg      uint32
	mem      []byte
}

// Transport is a reference, in-memory implementation of
// interfaces.Transport. It decodes DRW/BDx accesses using the
// standard little-endian lane convention (§4.5); it does not model
// the TI BE-32 quirk, which is a target-specific addressing
// convention exercised instead against MockTransport in the core's
// own unit tests.
type Transport struct {
	mu sync.Mutex

	ctrlStat uint32
	selectReg uint32

	aps [256]*apState

	// FlushLatency simulates the wall-clock cost of a real flush. Zero
	// (the default) disables the sleep entirely.
	FlushLatency time.Duration

	pending []func() error
}

// New returns an empty Transport. Call Attach to back an AP index
// with identification registers and memory before using it.
func New() *Transport {
	return &Transport{}
}

// Attach backs AP index ap with the given IDR/BASE/CFG identification
// values and a memory region for its DRW/BDx accesses to bridge to.
func (t *Transport) Attach(ap uint8, idr, base, cfg uint32, mem []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aps[ap] = &apState{idr: idr, base: base, cfg: cfg, mem: mem}
}

func (t *Transport) apOrZero(ap uint8) *apState {
	if t.aps[ap] == nil {
		t.aps[ap] = &apState{}
	}
	return t.aps[ap]
}

// QueueDPRead implements interfaces.Transport.
func (t *Transport) QueueDPRead(reg uint8, dst *uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if dst == nil {
		return nil
	}
	t.pending = append(t.pending, func() error {
		switch reg {
		case regs.DPCtrlStat:
			*dst = t.ctrlStat
		case regs.DPSelect:
			*dst = t.selectReg
		default:
			*dst = 0
		}
		return nil
	})
	return nil
}

// QueueDPWrite implements interfaces.Transport. A CTRL/STAT write
// acks power-up/down requests instantly, the way a responsive target
// would; an ABORT write clears the sticky latches it names (§7).
func (t *Transport) QueueDPWrite(reg uint8, value uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, func() error {
		switch reg {
		case regs.DPCtrlStat:
			next := value &^ (regs.CtrlStatCDbgPwrUpAck | regs.CtrlStatCSysPwrUpAck)
			if value&regs.CtrlStatCDbgPwrUpReq != 0 {
				next |= regs.CtrlStatCDbgPwrUpAck
			}
			if value&regs.CtrlStatCSysPwrUpReq != 0 {
				next |= regs.CtrlStatCSysPwrUpAck
			}
			t.ctrlStat = next
		case regs.DPSelect:
			t.selectReg = value
		case regs.DPAbort:
			if value&regs.AbortStickyErr != 0 {
				t.ctrlStat &^= regs.CtrlStatStickyErr
			}
			if value&regs.AbortStickyOrun != 0 {
				t.ctrlStat &^= regs.CtrlStatStickyOrun
			}
			if value&regs.AbortOrunErrClr != 0 {
				t.ctrlStat &^= regs.CtrlStatStickyOrun
			}
		}
		return nil
	})
	return nil
}

// QueueAPRead implements interfaces.Transport.
func (t *Transport) QueueAPRead(ap, reg uint8, dst *uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if dst == nil {
		return nil
	}
	t.pending = append(t.pending, func() error {
		a := t.apOrZero(ap)
		switch reg {
		case regs.CSW:
			*dst = a.csw
		case regs.TAR:
			*dst = a.tar
		case regs.CFG:
			*dst = a.cfg
		case regs.BASE:
			*dst = a.base
		case regs.IDR:
			*dst = a.idr
		case regs.DRW:
			*dst = a.readLanes(a.tar, false)
		case regs.BD0, regs.BD1, regs.BD2, regs.BD3:
			addr := (a.tar &^ 0xF) | uint32(reg-regs.BD0)
			*dst = a.readLanes(addr, true)
		}
		return nil
	})
	return nil
}

// QueueAPWrite implements interfaces.Transport.
func (t *Transport) QueueAPWrite(ap, reg uint8, value uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, func() error {
		a := t.apOrZero(ap)
		switch reg {
		case regs.CSW:
			a.csw = value
		case regs.TAR:
			a.tar = value
		case regs.CFG:
			a.cfg = value
		case regs.DRW:
			a.writeLanes(a.tar, value, false)
		case regs.BD0, regs.BD1, regs.BD2, regs.BD3:
			addr := (a.tar &^ 0xF) | uint32(reg-regs.BD0)
			a.writeLanes(addr, value, true)
		}
		return nil
	})
	return nil
}

// Run implements interfaces.Transport: it sleeps for FlushLatency (if
// set) to simulate real link round-trip cost, then drains every
// pending operation in FIFO order.
func (t *Transport) Run() error {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	latency := t.FlushLatency
	t.mu.Unlock()

	if latency > 0 {
		ts := unix.NsecToTimespec(latency.Nanoseconds())
		_ = unix.Nanosleep(&ts, nil)
	}

	for _, fn := range pending {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

var _ interfaces.Transport = (*Transport)(nil)

// readLanes reads the span dictated by the AP's current CSW size
// field (and, for banked access, never auto-increments TAR; for DRW
// access, advances it per the CSW address-increment field).
func (a *apState) readLanes(addr uint32, banked bool) uint32 {
	size := sizeOf(regs.CSWSizeFieldOf(a.csw))
	span := size
	if regs.CSWAddrIncField(a.csw) == regs.CSWAddrIncPacked {
		span = 4
	}
	var v uint32
	for i := 0; i < span; i++ {
		lane := (addr + uint32(i)) & 3
		v |= uint32(a.byteAt(addr+uint32(i))) << (8 * lane)
	}
	if !banked {
		a.advanceTAR(span)
	}
	return v
}

func (a *apState) writeLanes(addr uint32, value uint32, banked bool) {
	size := sizeOf(regs.CSWSizeFieldOf(a.csw))
	span := size
	if regs.CSWAddrIncField(a.csw) == regs.CSWAddrIncPacked {
		span = 4
	}
	for i := 0; i < span; i++ {
		lane := (addr + uint32(i)) & 3
		a.setByteAt(addr+uint32(i), byte(value>>(8*lane)))
	}
	if !banked {
		a.advanceTAR(span)
	}
}

func (a *apState) advanceTAR(span int) {
	if regs.CSWAddrIncField(a.csw) != regs.CSWAddrIncOff {
		a.tar += uint32(span)
	}
}

func (a *apState) byteAt(addr uint32) byte {
	if int(addr) >= len(a.mem) {
		return 0
	}
	return a.mem[addr]
}

func (a *apState) setByteAt(addr uint32, b byte) {
	if int(addr) >= len(a.mem) {
		return
	}
	a.mem[addr] = b
}

func sizeOf(field uint32) int {
	switch field {
	case regs.CSWSize8:
		return 1
	case regs.CSWSize16:
		return 2
	default:
		return 4
	}
}
