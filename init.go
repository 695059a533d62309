package adiv5

import (
	"github.com/armdbg/go-adiv5/internal/regs"
)

// MemAPInit probes this AP's capabilities (§4.6): whether the target
// accepts packed transfers, and reads CFG for diagnostics. It must run
// after DAP.DPInit has completed the power-up handshake.
//
// csw_default is preserved across the probe and across repeated calls
// (§9): the probe write still folds in the user's configured
// csw_default bits via setupCSW, so re-running MemAPInit never clears
// a previously configured SPROT toggle.
func (ap *AP) MemAPInit() error {
	ap.setupCSW(regs.CSWSize8 | regs.CSWAddrIncPacked)
	ap.setupTAR(0)
	if err := ap.dap.Run(); err != nil {
		return WrapError("MemAPInit", err)
	}

	var readback uint32
	ap.dap.queueSelect(ap.index, regs.CSW)
	ap.dap.journal.EnqueueAPRead(ap.index, regs.CSW, &readback)
	if err := ap.dap.Run(); err != nil {
		return WrapError("MemAPInit", err)
	}

	ap.packedTransfers = regs.CSWAddrIncField(readback) == regs.CSWAddrIncPacked
	if ap.dap.tiBE32Quirks {
		ap.packedTransfers = false
	}

	var cfg uint32
	ap.dap.queueSelect(ap.index, regs.CFG)
	ap.dap.journal.EnqueueAPRead(ap.index, regs.CFG, &cfg)
	if err := ap.dap.Run(); err != nil {
		return WrapError("MemAPInit", err)
	}
	ap.cfg = cfg

	ap.unalignedAccessBad = ap.dap.tiBE32Quirks

	return nil
}

// CFG returns the last CFG register value read by MemAPInit (bits:
// large data / long address / big-endian), retained for diagnostics
// only; the core never branches on it.
func (ap *AP) CFG() uint32 { return ap.cfg }
