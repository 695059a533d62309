// Package adiv5 implements the host-side core of an ARM Debug
// Interface v5 (ADIv5) driver: a queued register transaction engine
// against a Debug Port and its Access Ports, a MEM-AP block transfer
// engine, and a CoreSight ROM-table walker. The physical transport
// (JTAG or SWD bit-banging) is supplied by the caller through the
// Transport vtable; this package only ever enqueues operations and
// flushes them.
package adiv5

import (
	"time"

	"github.com/armdbg/go-adiv5/internal/constants"
	"github.com/armdbg/go-adiv5/internal/dpctrl"
	"github.com/armdbg/go-adiv5/internal/interfaces"
	"github.com/armdbg/go-adiv5/internal/logging"
	"github.com/armdbg/go-adiv5/internal/queue"
	"github.com/armdbg/go-adiv5/internal/regs"
)

const numAPs = 256

// DAP is a process-wide-per-link handle over one physical debug
// link. It owns the DP SELECT shadow, the CTRL/STAT shadow, the
// pending operation journal, and the 256-entry AP record array. A DAP
// must not be used concurrently from more than one goroutine: a DAP
// and its AP records form one single-threaded serialization domain.
type DAP struct {
	transport interfaces.Transport
	log       interfaces.Logger
	observer  interfaces.Observer

	journal queue.Journal

	selectShadow uint32 // DP SELECT shadow; regs.SelectInvalid forces a rewrite
	ctrlStat     uint32 // CTRL/STAT shadow, updated after dpInit

	tiBE32Quirks bool // fixed for the DAP's lifetime once set
	currentAP    uint8

	aps [numAPs]AP
}

// Option configures a DAP at construction time.
type Option func(*DAP)

// WithLogger attaches a Logger used for diagnostic messages (retry
// attempts, non-fatal component-walk failures).
func WithLogger(l interfaces.Logger) Option {
	return func(d *DAP) { d.log = l }
}

// WithObserver attaches an Observer that receives flush/overrun/
// block-transfer/queue-depth telemetry.
func WithObserver(o interfaces.Observer) Option {
	return func(d *DAP) { d.observer = o }
}

// WithTIBE32Quirks sets the vendor lane-inversion quirk before any
// initialization happens. It must not be changed after NewDAP returns.
func WithTIBE32Quirks(enabled bool) Option {
	return func(d *DAP) { d.tiBE32Quirks = enabled }
}

// NewDAP constructs a DAP bound to the given transport. AP records are
// initialized to their power-up defaults (§3); none are probed until
// MemAPInit is called on them.
func NewDAP(t interfaces.Transport, opts ...Option) *DAP {
	d := &DAP{
		transport:    t,
		log:          logging.Default(),
		observer:     NoOpObserver{},
		selectShadow: regs.SelectInvalid,
	}
	for i := range d.aps {
		d.aps[i] = AP{
			dap:              d,
			index:            uint8(i),
			csw:              regs.CSWInvalid,
			tar:              regs.TARInvalid,
			memAccessTCK:     constants.DefaultMemAccessTCK,
			tarAutoincrBlock: constants.DefaultTARAutoincrBlock,
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.tiBE32Quirks {
		for i := range d.aps {
			d.aps[i].packedTransfers = false
			d.aps[i].unalignedAccessBad = true
		}
	}
	return d
}

// AP returns the AP record at the given index (0-255). The caller is
// responsible for bounds-checking against a Transport-reported
// capability if needed; indices outside [0,256) are a programming
// error and panic, mirroring direct array access in the original.
func (d *DAP) AP(index uint8) *AP {
	return &d.aps[index]
}

// CurrentAP returns the AP index selected by the command surface
// (§6.3's apsel).
func (d *DAP) CurrentAP() uint8 { return d.currentAP }

// SetCurrentAP sets the AP index used by the command surface.
func (d *DAP) SetCurrentAP(index uint8) { d.currentAP = index }

// CtrlStat returns the current CTRL/STAT shadow, updated by a
// successful DPInit.
func (d *DAP) CtrlStat() uint32 { return d.ctrlStat }

// Run flushes the pending journal through the transport. Most public
// entry points call this internally; it is exposed for callers who
// want to batch several queued calls before one flush.
func (d *DAP) Run() error {
	depth := d.journal.Len()
	if d.observer != nil {
		d.observer.ObserveQueueDepth(depth)
	}
	start := time.Now()
	err := d.journal.Run(d.transport)
	latencyNs := uint64(time.Since(start).Nanoseconds())
	if d.observer != nil {
		d.observer.ObserveFlush(depth, latencyNs, err == nil)
	}
	if err != nil {
		d.invalidateShadows()
	}
	return err
}

// invalidateShadows marks every cached SELECT/CSW/TAR value as
// unknown after a flush failure, per §3's invariant: the shadow must
// not be trusted once the journal that would have established it
// failed partway through.
func (d *DAP) invalidateShadows() {
	d.selectShadow = regs.SelectInvalid
	for i := range d.aps {
		d.aps[i].csw = regs.CSWInvalid
		d.aps[i].tar = regs.TARInvalid
	}
}

// queueSelect lazily rewrites DP SELECT if the bank implied by (ap,
// reg) differs from the shadow. Must be called before any AP
// read/write is enqueued.
func (d *DAP) queueSelect(ap uint8, reg uint8) {
	want := regs.BuildSelect(ap, reg)
	if want == d.selectShadow {
		return
	}
	d.journal.EnqueueDPWrite(regs.DPSelect, want)
	d.selectShadow = want
}

// QueueAPAbort queues a DAPABORT write to clear a hung AP transaction,
// independent of sticky-error recovery (§9).
func (d *DAP) QueueAPAbort() {
	dpctrl.QueueAPAbort(&d.journal)
}

// ClearSticky clears the CTRL/STAT sticky-overrun/error latches and
// flushes immediately.
func (d *DAP) ClearSticky() error {
	if err := dpctrl.ClearSticky(d.transport); err != nil {
		return WrapError("ClearSticky", err)
	}
	if d.observer != nil {
		d.observer.ObserveOverrun()
	}
	return nil
}

// DPInit runs the power-up handshake (§4.6), retrying internally up
// to constants.DPInitMaxAttempts times.
func (d *DAP) DPInit() error {
	if err := dpctrl.DPInit(d.transport, d.log); err != nil {
		return WrapError("DPInit", mapDPInitErr(err))
	}
	d.ctrlStat = regs.CtrlStatCDbgPwrUpReq | regs.CtrlStatCSysPwrUpReq | regs.CtrlStatOrunDetect
	return nil
}

func mapDPInitErr(err error) error {
	if err == dpctrl.ErrTimeout {
		return NewError("DPInit", KindTimeout, "power-up handshake did not complete")
	}
	return NewError("DPInit", KindFault, err.Error())
}
