package adiv5

import (
	"fmt"

	"github.com/armdbg/go-adiv5/internal/constants"
	"github.com/armdbg/go-adiv5/internal/regs"
)

// GetDebugBase reads this AP's BASE and IDR registers (§4.7).
func (ap *AP) GetDebugBase() (base uint32, idr uint32, err error) {
	ap.dap.queueSelect(ap.index, regs.BASE)
	ap.dap.journal.EnqueueAPRead(ap.index, regs.BASE, &base)
	ap.dap.queueSelect(ap.index, regs.IDR)
	ap.dap.journal.EnqueueAPRead(ap.index, regs.IDR, &idr)
	if err := ap.dap.Run(); err != nil {
		return 0, 0, WrapError("GetDebugBase", err)
	}
	return base, idr, nil
}

// FindAP scans AP indices 0..255 for the first AP whose IDR carries
// the ARM JEP106 code and the requested type (§4.7). Non-existent APs
// read back IDR==0 and are silently skipped, not treated as errors.
// Reading a register for a non-existent AP shouldn't fail the
// transport at all, but if one does anyway, the scan just continues
// to the next index rather than aborting the whole search.
func (d *DAP) FindAP(wantedType uint32) (*AP, error) {
	for i := 0; i < numAPs; i++ {
		var idr uint32
		ap := &d.aps[i]
		d.queueSelect(ap.index, regs.IDR)
		d.journal.EnqueueAPRead(ap.index, regs.IDR, &idr)
		if err := d.Run(); err != nil {
			if d.log != nil {
				d.log.Debugf("find_ap: read of AP %d IDR failed, continuing scan: %v", i, err)
			}
			continue
		}
		if idr == 0 {
			continue
		}
		if regs.IsARMMemAP(idr, wantedType) {
			return ap, nil
		}
	}
	return nil, NewError("FindAP", KindNotFound, "no matching AP")
}

// LookupCSComponent recursively walks the CoreSight ROM table rooted
// at dbgbase looking for the idx-th (0-based) component of the given
// device type, depth-first across nested ROM tables (§4.7).
func (ap *AP) LookupCSComponent(dbgbase uint32, deviceType uint32, idx int) (addr uint32, found bool, err error) {
	return ap.lookupCSComponent(dbgbase, deviceType, &idx, 0)
}

func (ap *AP) lookupCSComponent(dbgbase uint32, deviceType uint32, idx *int, depth int) (uint32, bool, error) {
	if depth > constants.MaxROMWalkDepth {
		return 0, false, NewError("LookupCSComponent", KindFault, "ROM walk exceeded max depth")
	}

	for offset := uint32(0); offset < constants.ROMTableEntryLimit; offset += 4 {
		var entry uint32
		if err := ap.ReadRaw(dbgbase+offset, &entry); err != nil {
			if ap.dap.log != nil {
				ap.dap.log.Warnf("lookup_cs_component: failed to read ROM entry at 0x%08x: %v", dbgbase+offset, err)
			}
			continue
		}
		if entry == 0 {
			break
		}
		if entry&regs.ROMEntryPresent == 0 {
			continue
		}

		componentBase := (dbgbase &^ 0xFFF) + (entry &^ 0xFFF)

		var cid1 uint32
		if err := ap.ReadRaw(componentBase|regs.CID1Offset, &cid1); err != nil {
			if ap.dap.log != nil {
				ap.dap.log.Warnf("lookup_cs_component: failed to read CID1 at 0x%08x: %v", componentBase, err)
			}
			continue
		}

		if regs.IsNestedROMTable(cid1) {
			if a, ok, err := ap.lookupCSComponent(componentBase, deviceType, idx, depth+1); err != nil {
				return 0, false, err
			} else if ok {
				return a, true, nil
			}
			continue
		}

		var devType uint32
		if err := ap.ReadRaw(componentBase|regs.DevTypeOffset, &devType); err != nil {
			if ap.dap.log != nil {
				ap.dap.log.Warnf("lookup_cs_component: failed to read DEVTYPE at 0x%08x: %v", componentBase, err)
			}
			continue
		}
		if devType&0xFF != deviceType {
			continue
		}
		if *idx == 0 {
			return componentBase, true, nil
		}
		*idx--
	}
	return 0, false, nil
}

// ReadRaw reads a single 32-bit value at addr through the banked data
// registers and flushes immediately; a small helper shared by the ROM
// walker which needs single-shot reads at arbitrary offsets.
func (ap *AP) ReadRaw(addr uint32, out *uint32) error {
	v, err := ap.ReadAtomicU32(addr)
	if err != nil {
		return err
	}
	*out = v
	return nil
}

// RomDisplay produces a human-readable walk of the CoreSight
// components reachable from base, used by the diagnostic CLI (§4.7).
// Recursion is capped at constants.MaxROMWalkDepth.
func (ap *AP) RomDisplay(base uint32, depth int) (string, error) {
	if depth > constants.MaxROMWalkDepth {
		return "", NewError("RomDisplay", KindFault, "ROM walk exceeded max depth")
	}

	var out string
	for offset := uint32(0); offset < constants.ROMTableEntryLimit; offset += 4 {
		var entry uint32
		if err := ap.ReadRaw(base+offset, &entry); err != nil {
			out += fmt.Sprintf("  [0x%08x] <read error: %v>\n", base+offset, err)
			continue
		}
		if entry == 0 {
			break
		}
		if entry&regs.ROMEntryPresent == 0 {
			continue
		}

		componentBase := (base &^ 0xFFF) + (entry &^ 0xFFF)
		line, err := ap.describeComponent(componentBase, depth)
		if err != nil {
			out += fmt.Sprintf("  [0x%08x] <error: %v>\n", componentBase, err)
			continue
		}
		out += line
	}
	return out, nil
}

func (ap *AP) describeComponent(componentBase uint32, depth int) (string, error) {
	cid0, err0 := ap.readAt(componentBase | regs.CID0Offset)
	cid1, err1 := ap.readAt(componentBase | regs.CID1Offset)
	cid2, err2 := ap.readAt(componentBase | regs.CID2Offset)
	cid3, err3 := ap.readAt(componentBase | regs.CID3Offset)
	if err0 != nil || err1 != nil || err2 != nil || err3 != nil {
		return "", NewAddrError("RomDisplay", int(ap.index), componentBase, KindFault, "failed to read CID")
	}
	cid := regs.CID(cid0, cid1, cid2, cid3)

	if !regs.IsValidCID(cid) {
		return fmt.Sprintf("  [0x%08x] invalid CID 0x%08x\n", componentBase, cid), nil
	}

	if regs.IsNestedROMTable(cid1) {
		nested, err := ap.RomDisplay(componentBase, depth+1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("  [0x%08x] ROM table\n%s", componentBase, nested), nil
	}

	pid0, _ := ap.readAt(componentBase | regs.PID0Offset)
	pid1, _ := ap.readAt(componentBase | regs.PID1Offset)
	pid2, _ := ap.readAt(componentBase | regs.PID2Offset)
	pid3, _ := ap.readAt(componentBase | regs.PID3Offset)
	pid4, _ := ap.readAt(componentBase | regs.PID4Offset)
	pid := regs.PID(pid0, pid1, pid2, pid3, pid4)

	designer := regs.DecodeDesigner(regs.PIDDesignerCode(pid))
	class := regs.CIDClass(cid)
	part := regs.PIDPartNumber(pid)

	manufacturer := "unknown"
	if designer.IsJEP106 {
		manufacturer = regs.JEP106Manufacturer(uint8(designer.Code>>8), uint8(designer.Code)&0x7F)
		if manufacturer == "" {
			manufacturer = "unknown"
		}
	}

	return fmt.Sprintf("  [0x%08x] class=0x%x part=0x%03x designer=%s\n", componentBase, class, part, manufacturer), nil
}

func (ap *AP) readAt(addr uint32) (uint32, error) {
	return ap.ReadAtomicU32(addr)
}
