package adiv5

import (
	"github.com/armdbg/go-adiv5/internal/regs"
)

// AP is a MEM-AP record embedded in its owning DAP (§3). It never
// outlives the DAP; Index identifies it within the DAP's 256-entry
// array and is the value written into DP SELECT's APSEL field.
type AP struct {
	dap   *DAP
	index uint8

	csw uint32 // cached CSW value, regs.CSWInvalid when unknown
	tar uint32 // cached TAR value, regs.TARInvalid when unknown

	cswDefault uint32 // user-settable bits OR'd into every CSW write (e.g. SPROT)

	memAccessTCK     uint8 // extra wait cycles for JTAG; opaque to core, default 255
	tarAutoincrBlock uint32 // power-of-two byte window, default 1<<10

	packedTransfers    bool // probed by MemAPInit
	unalignedAccessBad bool // probed or inferred from tiBE32Quirks

	cfg uint32 // last CFG register value read by MemAPInit, diagnostics only
}

// Index returns this AP's index (0-255).
func (ap *AP) Index() uint8 { return ap.index }

// CSWDefault returns the user-settable bits OR'd into every CSW write.
func (ap *AP) CSWDefault() uint32 { return ap.cswDefault }

// SetCSWDefault sets the user-settable bits OR'd into every CSW
// write (e.g. toggling SPROT via the command surface's apcsw).
func (ap *AP) SetCSWDefault(bits uint32) { ap.cswDefault = bits }

// MemAccessTCK returns the configured extra wait-cycle count.
func (ap *AP) MemAccessTCK() uint8 { return ap.memAccessTCK }

// SetMemAccessTCK sets the extra wait-cycle count (0-255).
func (ap *AP) SetMemAccessTCK(cycles uint8) { ap.memAccessTCK = cycles }

// PackedTransfers reports whether MemAPInit found packed-transfer
// support.
func (ap *AP) PackedTransfers() bool { return ap.packedTransfers }

// UnalignedAccessBad reports whether unaligned accesses are assumed
// unsafe on this AP.
func (ap *AP) UnalignedAccessBad() bool { return ap.unalignedAccessBad }

// SetPackedTransfers overrides the packed-transfer capability normally
// probed by MemAPInit; exposed for callers that already know the
// target's capability out of band.
func (ap *AP) SetPackedTransfers(enabled bool) { ap.packedTransfers = enabled }

// TarAutoincrBlock returns the configured auto-increment window size.
func (ap *AP) TarAutoincrBlock() uint32 { return ap.tarAutoincrBlock }

// SetTarAutoincrBlock sets the auto-increment window size (§4.3); must
// be a power of two matching the target's actual TAR wrap behavior.
func (ap *AP) SetTarAutoincrBlock(block uint32) { ap.tarAutoincrBlock = block }

// SetUnalignedAccessBad overrides whether unaligned accesses are
// assumed unsafe on this AP, independent of the TI BE-32 quirk probe.
func (ap *AP) SetUnalignedAccessBad(bad bool) { ap.unalignedAccessBad = bad }

// setupCSW forms the effective CSW value (requested bits OR'd with
// the mandatory DBGSWENABLE/MASTER_DEBUG/HPROT1 bits and the AP's
// csw_default) and queues a write only if it differs from the cached
// value (§4.3).
func (ap *AP) setupCSW(csw uint32) {
	effective := csw | regs.CSWDbgSwEnable | regs.CSWMasterDebug | regs.CSWHProt1 | ap.cswDefault
	if effective == ap.csw {
		return
	}
	ap.dap.queueSelect(ap.index, regs.CSW)
	ap.dap.journal.EnqueueAPWrite(ap.index, regs.CSW, effective)
	ap.csw = effective
}

// setupTAR queues a write to TAR iff tar differs from the cached
// value, or the cached CSW has a non-OFF auto-increment mode (the
// target may have advanced TAR behind our back since the last known
// write) (§4.3).
func (ap *AP) setupTAR(tar uint32) {
	autoIncrementing := regs.CSWAddrIncField(ap.csw) != regs.CSWAddrIncOff
	if tar == ap.tar && !autoIncrementing {
		return
	}
	ap.dap.queueSelect(ap.index, regs.TAR)
	ap.dap.journal.EnqueueAPWrite(ap.index, regs.TAR, tar)
	ap.tar = tar
}

// setupTransfer queues a CSW write then a TAR write (§4.3).
func (ap *AP) setupTransfer(csw, tar uint32) {
	ap.setupCSW(csw)
	ap.setupTAR(tar)
}

// ReadU32 queues a 32-bit read through the banked data registers
// (BD0-BD3), without flushing. addr must be 4-byte aligned; low bits
// are otherwise ignored by the target. This delivers four independent
// word accesses within any naturally aligned 16-byte window without
// rewriting TAR (§4.4).
func (ap *AP) ReadU32(addr uint32, out *uint32) {
	ap.setupTransfer(regs.CSWAddrIncOff|regs.CSWSize32, addr&^0xF)
	bd := regs.BD0 + uint8(addr&0xC)
	ap.dap.queueSelect(ap.index, bd)
	ap.dap.journal.EnqueueAPRead(ap.index, bd, out)
}

// WriteU32 queues a 32-bit write through the banked data registers,
// without flushing.
func (ap *AP) WriteU32(addr uint32, value uint32) {
	ap.setupTransfer(regs.CSWAddrIncOff|regs.CSWSize32, addr&^0xF)
	bd := regs.BD0 + uint8(addr&0xC)
	ap.dap.queueSelect(ap.index, bd)
	ap.dap.journal.EnqueueAPWrite(ap.index, bd, value)
}

// ReadAtomicU32 queues a 32-bit read then immediately flushes,
// returning the fault of either stage.
func (ap *AP) ReadAtomicU32(addr uint32) (uint32, error) {
	var out uint32
	ap.ReadU32(addr, &out)
	if err := ap.dap.Run(); err != nil {
		return 0, WrapError("ReadAtomicU32", err)
	}
	return out, nil
}

// WriteAtomicU32 queues a 32-bit write then immediately flushes.
func (ap *AP) WriteAtomicU32(addr uint32, value uint32) error {
	ap.WriteU32(addr, value)
	if err := ap.dap.Run(); err != nil {
		return WrapError("WriteAtomicU32", err)
	}
	return nil
}
