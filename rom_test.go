package adiv5

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/armdbg/go-adiv5/internal/regs"
)

// addrMemTransport is a tiny flat memory model keyed by full 32-bit
// address, used instead of MockTransport for the ROM walker tests:
// the walker reads many distinct absolute addresses through the same
// four banked data registers (BD0-BD3), which MockTransport's
// per-register script cannot distinguish.
type addrMemTransport struct {
	mem map[uint32]uint32
	tar map[uint8]uint32
}

func newAddrMemTransport() *addrMemTransport {
	return &addrMemTransport{mem: map[uint32]uint32{}, tar: map[uint8]uint32{}}
}

func (a *addrMemTransport) set(addr, value uint32) { a.mem[addr] = value }

func (a *addrMemTransport) QueueDPRead(reg uint8, dst *uint32) error   { return nil }
func (a *addrMemTransport) QueueDPWrite(reg uint8, value uint32) error { return nil }

func (a *addrMemTransport) QueueAPWrite(ap, reg uint8, value uint32) error {
	if reg == regs.TAR {
		a.tar[ap] = value &^ 0xF
	}
	return nil
}

func (a *addrMemTransport) QueueAPRead(ap, reg uint8, dst *uint32) error {
	if dst == nil {
		return nil
	}
	switch reg {
	case regs.BD0, regs.BD1, regs.BD2, regs.BD3:
		addr := a.tar[ap] | uint32(reg-regs.BD0)
		*dst = a.mem[addr]
	default:
		*dst = 0
	}
	return nil
}

func (a *addrMemTransport) Run() error { return nil }

func TestFindAPMatchesARMMemAP(t *testing.T) {
	mt := NewMockTransport()
	mt.SetAPRead(0, regs.IDR, 0)
	mt.SetAPRead(1, regs.IDR, (regs.ARMJEP106<<17)|(regs.IDRClassMemAP<<13)|regs.APTypeAHB)
	for i := uint8(2); i < 255; i++ {
		mt.SetAPRead(i, regs.IDR, 0)
	}

	d := NewDAP(mt)
	ap, err := d.FindAP(regs.APTypeAHB)
	assert.NoError(t, err)
	assert.Equal(t, uint8(1), ap.Index())
}

func TestFindAPReturnsNotFoundWhenNoneMatch(t *testing.T) {
	mt := NewMockTransport()
	d := NewDAP(mt)

	_, err := d.FindAP(regs.APTypeAXI)
	assert.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestGetDebugBaseReadsBaseAndIDR(t *testing.T) {
	mt := NewMockTransport()
	mt.SetAPRead(0, regs.BASE, 0xE0000000)
	mt.SetAPRead(0, regs.IDR, (regs.ARMJEP106<<17)|(regs.IDRClassMemAP<<13)|regs.APTypeAHB)

	d := NewDAP(mt)
	ap := d.AP(0)
	base, idr, err := ap.GetDebugBase()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xE0000000), base)
	assert.True(t, regs.IsARMMemAP(idr, regs.APTypeAHB))
}

func cidWords(class uint32) (uint32, uint32, uint32, uint32) {
	cid := regs.CIDValidValue | (class << 12)
	return cid & 0xff, (cid >> 8) & 0xff, (cid >> 16) & 0xff, (cid >> 24) & 0xff
}

func TestLookupCSComponentFindsNthMatchDepthFirst(t *testing.T) {
	mt := newAddrMemTransport()
	const dbgbase = uint32(0x80000000)
	const rom = dbgbase

	// Two direct entries at offsets 0 and 4, both of class 0xF
	// (generic component) and device type 0x15.
	comp0 := dbgbase + 0x1000
	comp1 := dbgbase + 0x2000
	mt.set(rom+0, (comp0-rom)|regs.ROMEntryPresent)
	mt.set(rom+4, (comp1-rom)|regs.ROMEntryPresent)
	mt.set(rom+8, 0)

	for _, c := range []uint32{comp0, comp1} {
		cid0, cid1, cid2, cid3 := cidWords(0xF)
		mt.set(c|regs.CID0Offset, cid0)
		mt.set(c|regs.CID1Offset, cid1)
		mt.set(c|regs.CID2Offset, cid2)
		mt.set(c|regs.CID3Offset, cid3)
		mt.set(c|regs.DevTypeOffset, 0x15)
	}

	d := NewDAP(mt)
	ap := d.AP(0)

	addr, found, err := ap.LookupCSComponent(dbgbase, 0x15, 1)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, comp1, addr, "idx=1 should select the second matching component in table order")
}

func TestLookupCSComponentRecursesIntoNestedROMTable(t *testing.T) {
	mt := newAddrMemTransport()
	const dbgbase = uint32(0x80000000)
	nested := dbgbase + 0x10000
	leaf := nested + 0x1000

	mt.set(dbgbase+0, (nested-dbgbase)|regs.ROMEntryPresent)
	mt.set(dbgbase+4, 0)

	nCid0, nCid1, nCid2, nCid3 := cidWords(regs.CIDClassROMTable)
	mt.set(nested|regs.CID0Offset, nCid0)
	mt.set(nested|regs.CID1Offset, nCid1)
	mt.set(nested|regs.CID2Offset, nCid2)
	mt.set(nested|regs.CID3Offset, nCid3)

	mt.set(nested+0, (leaf-nested)|regs.ROMEntryPresent)
	mt.set(nested+4, 0)

	lCid0, lCid1, lCid2, lCid3 := cidWords(0xF)
	mt.set(leaf|regs.CID0Offset, lCid0)
	mt.set(leaf|regs.CID1Offset, lCid1)
	mt.set(leaf|regs.CID2Offset, lCid2)
	mt.set(leaf|regs.CID3Offset, lCid3)
	mt.set(leaf|regs.DevTypeOffset, 0x21)

	d := NewDAP(mt)
	ap := d.AP(0)

	addr, found, err := ap.LookupCSComponent(dbgbase, 0x21, 0)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, leaf, addr)
}

func TestLookupCSComponentNotFoundReturnsFalse(t *testing.T) {
	mt := newAddrMemTransport()
	const dbgbase = uint32(0x80000000)
	mt.set(dbgbase+0, 0)

	d := NewDAP(mt)
	ap := d.AP(0)

	_, found, err := ap.LookupCSComponent(dbgbase, 0x99, 0)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestLookupCSComponentExceedsMaxDepthReturnsFault(t *testing.T) {
	mt := newAddrMemTransport()
	const base = uint32(0x10000000)

	// A ROM table that nests into itself forever.
	cid0, cid1, cid2, cid3 := cidWords(regs.CIDClassROMTable)
	mt.set(base|regs.CID0Offset, cid0)
	mt.set(base|regs.CID1Offset, cid1)
	mt.set(base|regs.CID2Offset, cid2)
	mt.set(base|regs.CID3Offset, cid3)
	mt.set(base+0, 0|regs.ROMEntryPresent) // points right back at base

	d := NewDAP(mt)
	ap := d.AP(0)

	_, found, err := ap.LookupCSComponent(base, 0x42, 0)
	assert.Error(t, err)
	assert.False(t, found)
	assert.True(t, IsKind(err, KindFault))
}
