// +build integration

package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	adiv5 "github.com/armdbg/go-adiv5"
	"github.com/armdbg/go-adiv5/internal/interfaces"
	"github.com/armdbg/go-adiv5/internal/regs"
)

func opValues(ops []adiv5.RecordedOp, kind interfaces.RegKind, reg uint8) []uint32 {
	var out []uint32
	for _, op := range ops {
		if op.Kind == kind && op.Reg == reg {
			out = append(out, op.Value)
		}
	}
	return out
}

// TestE1WriteU32FreshAPQueuesCSWThenTARThenBD1 is scenario E1:
// write_u32 on a fresh AP (csw=CSWInvalid, tar=TARInvalid) queues
// CSW, then TAR, then the BD1 write carrying the value.
func TestE1WriteU32FreshAPQueuesCSWThenTARThenBD1(t *testing.T) {
	mt := adiv5.NewMockTransport()
	d := adiv5.NewDAP(mt)
	ap := d.AP(0)

	ap.WriteU32(0x2000_0004, 0xDEAD_BEEF)
	assert.NoError(t, d.Run())

	var kinds []string
	for _, op := range mt.Ops {
		if op.Kind == interfaces.KindAPWrite {
			kinds = append(kinds, regName(op.Reg))
		}
	}
	assert.Equal(t, []string{"CSW", "TAR", "BD1"}, kinds)
	assert.Equal(t, []uint32{0x20000000}, opValues(mt.Ops, interfaces.KindAPWrite, regs.TAR))
	assert.Equal(t, []uint32{0xDEAD_BEEF}, opValues(mt.Ops, interfaces.KindAPWrite, regs.BD0+4))
}

// TestE2SecondWriteSameWindowOnlyQueuesBD2 is scenario E2: immediately
// after E1, a write to 0x2000_0008 queues only the BD2 write since the
// CSW and TAR shadows already match.
func TestE2SecondWriteSameWindowOnlyQueuesBD2(t *testing.T) {
	mt := adiv5.NewMockTransport()
	d := adiv5.NewDAP(mt)
	ap := d.AP(0)

	ap.WriteU32(0x2000_0004, 0xDEAD_BEEF)
	assert.NoError(t, d.Run())
	mt.Reset()

	ap.WriteU32(0x2000_0008, 0xCAFEBABE)
	assert.NoError(t, d.Run())

	assert.Len(t, mt.Ops, 1)
	assert.Equal(t, interfaces.KindAPWrite, mt.Ops[0].Kind)
	assert.Equal(t, regs.BD0+8, mt.Ops[0].Reg)
	assert.Equal(t, uint32(0xCAFEBABE), mt.Ops[0].Value)
}

// TestE3WriteBufByteSizeNoPackingNoQuirks is scenario E3: three
// byte-sized writes, no packing, no TI quirk: one TAR write up front,
// one DRW write per byte, each lane-shifted by its low address bits.
func TestE3WriteBufByteSizeNoPackingNoQuirks(t *testing.T) {
	mt := adiv5.NewMockTransport()
	d := adiv5.NewDAP(mt)
	ap := d.AP(0)
	ap.SetPackedTransfers(false)

	_, err := ap.WriteBuf([]byte{0xAA, 0xBB, 0xCC}, 1, 3, 0x100)
	assert.NoError(t, err)

	assert.Equal(t, []uint32{0x100}, opValues(mt.Ops, interfaces.KindAPWrite, regs.TAR))
	assert.Equal(t, []uint32{0x0000_00AA, 0x0000_BB00, 0x00CC_0000}, opValues(mt.Ops, interfaces.KindAPWrite, regs.DRW))
}

// TestE4WriteBufByteSizeTIQuirk is scenario E4: the same transfer
// under ti_be_32_quirks forces a TAR rewrite before every byte.
func TestE4WriteBufByteSizeTIQuirk(t *testing.T) {
	mt := adiv5.NewMockTransport()
	d := adiv5.NewDAP(mt, adiv5.WithTIBE32Quirks(true))
	ap := d.AP(0)

	_, err := ap.WriteBuf([]byte{0xAA, 0xBB, 0xCC}, 1, 3, 0x100)
	assert.NoError(t, err)

	assert.Equal(t, []uint32{0x103, 0x102, 0x101}, opValues(mt.Ops, interfaces.KindAPWrite, regs.TAR))
	assert.Equal(t, []uint32{0xAA00_0000, 0x00BB_0000, 0x0000_CC00}, opValues(mt.Ops, interfaces.KindAPWrite, regs.DRW))
}

// TestE5ReadBufPackedFourByteWords is scenario E5: four word-sized
// reads with packed_transfers=true never trigger the packed path
// (size=4 disables packing) and all land in one auto-increment block,
// so TAR is written exactly once.
func TestE5ReadBufPackedFourByteWords(t *testing.T) {
	mt := adiv5.NewMockTransport()
	mt.SetAPRead(0, regs.DRW, 0x04030201, 0x08070605, 0x0C0B0A09, 0x100F0E0D)
	d := adiv5.NewDAP(mt)
	ap := d.AP(0)
	ap.SetPackedTransfers(true)
	ap.SetTarAutoincrBlock(0x400)

	buf := make([]byte, 16)
	_, err := ap.ReadBuf(buf, 4, 4, 0x1000)
	assert.NoError(t, err)

	assert.Equal(t, []uint32{0x1000}, opValues(mt.Ops, interfaces.KindAPWrite, regs.TAR))
	assert.Len(t, opValues(mt.Ops, interfaces.KindAPRead, regs.DRW), 4)
}

// TestE6DPInitRecoversFromStickyOverrunOnFirstWrite is scenario E6:
// the transport fails the very first DP write of the very first
// attempt (as a real link would report a sticky overrun), and dap_dp_init
// still completes within its retry budget.
func TestE6DPInitRecoversFromStickyOverrunOnFirstWrite(t *testing.T) {
	mt := adiv5.NewMockTransport()
	mt.SetDPRead(regs.DPCtrlStat, regs.CtrlStatCDbgPwrUpAck, regs.CtrlStatCDbgPwrUpAck|regs.CtrlStatCSysPwrUpAck)

	writeCount := 0
	mt.FailDPWrite = func(reg uint8, value uint32) error {
		writeCount++
		if writeCount == 1 {
			return assert.AnError
		}
		return nil
	}

	d := adiv5.NewDAP(mt)
	assert.NoError(t, d.DPInit())
	assert.Equal(t, regs.CtrlStatCDbgPwrUpReq|regs.CtrlStatCSysPwrUpReq|regs.CtrlStatOrunDetect, d.CtrlStat())
}

func regName(reg uint8) string {
	switch reg {
	case regs.CSW:
		return "CSW"
	case regs.TAR:
		return "TAR"
	case regs.BD0 + 4:
		return "BD1"
	default:
		return "?"
	}
}
