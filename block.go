package adiv5

import (
	"time"

	"github.com/armdbg/go-adiv5/internal/queue"
	"github.com/armdbg/go-adiv5/internal/regs"
)

// Direction selects which way Transfer moves bytes relative to the
// host buffer.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

// ReadBuf moves size*count bytes from target memory starting at
// address into buf, with TAR auto-incrementing between accesses.
func (ap *AP) ReadBuf(buf []byte, size int, count int, address uint32) (int, error) {
	return ap.transfer(buf, size, count, address, true, DirRead)
}

// WriteBuf moves size*count bytes from buf to target memory starting
// at address, with TAR auto-incrementing between accesses.
func (ap *AP) WriteBuf(buf []byte, size int, count int, address uint32) (int, error) {
	return ap.transfer(buf, size, count, address, true, DirWrite)
}

// ReadBufNoIncr repeatedly reads size*count bytes from the same
// address (e.g. a FIFO register) into buf.
func (ap *AP) ReadBufNoIncr(buf []byte, size int, count int, address uint32) (int, error) {
	return ap.transfer(buf, size, count, address, false, DirRead)
}

// WriteBufNoIncr repeatedly writes size*count bytes from buf to the
// same address (e.g. a FIFO register).
func (ap *AP) WriteBufNoIncr(buf []byte, size int, count int, address uint32) (int, error) {
	return ap.transfer(buf, size, count, address, false, DirWrite)
}

// transfer implements mem_ap_transfer (§4.5). It returns the number of
// bytes actually transferred; on success that equals size*count.
func (ap *AP) transfer(buf []byte, size int, count int, address uint32, addrinc bool, dir Direction) (int, error) {
	if size != 1 && size != 2 && size != 4 {
		return 0, NewAddrError("MemAPTransfer", int(ap.index), address, KindUnalignedAccess, "size must be 1, 2 or 4")
	}
	if ap.unalignedAccessBad && address%uint32(size) != 0 {
		return 0, NewAddrError("MemAPTransfer", int(ap.index), address, KindUnalignedAccess, "address not aligned to size")
	}
	if count == 0 {
		return 0, nil
	}
	if len(buf) < size*count {
		return 0, NewError("MemAPTransfer", KindCommandSyntax, "buffer shorter than size*count")
	}

	totalBytes := size * count
	scratch := queue.GetScratch(count)
	defer queue.PutScratch(scratch)

	startAddr := address
	startTime := time.Now()
	addr := address
	processed := 0
	slot := 0
	needTARWrite := true

	for processed < totalBytes {
		remaining := totalBytes - processed
		headroom := ap.tarAutoincrBlock - (addr % ap.tarAutoincrBlock)

		packed := addrinc && ap.packedTransfers && !ap.dap.tiBE32Quirks &&
			size < 4 && remaining >= 4 && headroom >= 4

		span := size
		if packed {
			span = 4
		}

		incMode := regs.CSWAddrIncOff
		if addrinc {
			if packed {
				incMode = regs.CSWAddrIncPacked
			} else {
				incMode = regs.CSWAddrIncSingle
			}
		}
		ap.setupCSW(incMode | regs.CSWSizeField(size))

		var addrXor uint32
		if ap.dap.tiBE32Quirks && dir == DirWrite {
			addrXor = tiAddrXor(size)
		}

		forceRewrite := needTARWrite || addrXor != 0
		if forceRewrite {
			ap.queueTARWrite(addr ^ addrXor)
		}

		offset := processed
		ap.dap.queueSelect(ap.index, regs.DRW)
		if dir == DirWrite {
			var drw uint32
			if ap.dap.tiBE32Quirks {
				drw = packLanesTI(buf, offset, size, addr, addrXor)
			} else {
				drw = packLanesLE(buf, offset, span, addr)
			}
			ap.dap.journal.EnqueueAPWrite(ap.index, regs.DRW, drw)
		} else {
			ap.dap.journal.EnqueueAPRead(ap.index, regs.DRW, &scratch[slot])
		}

		// The next access needs its own forced TAR rewrite when the
		// address following *this* access lies within the first size
		// bytes of an auto-increment block, i.e. this access ended on
		// or crossed a block boundary: the target's auto-increment
		// wraps within the block rather than carrying over to the next
		// one, so software must reassert the real address before the
		// following access (§4.5).
		needTARWrite = addrinc && (addr+uint32(span))%ap.tarAutoincrBlock < uint32(size)

		processed += span
		addr += uint32(span)
		slot++
	}

	if err := ap.dap.Run(); err != nil {
		transferred := ap.recoverProgress(startAddr, totalBytes, dir)
		ap.observeTransfer(uint64(transferred), startTime, false)
		return transferred, WrapError("MemAPTransfer", err)
	}

	if dir == DirRead {
		unpackReadResults(buf[:totalBytes], scratch, slot, size, startAddr, ap.tarAutoincrBlock, ap.dap.tiBE32Quirks, addrinc, ap.packedTransfers)
	}

	ap.observeTransfer(uint64(totalBytes), startTime, true)
	return totalBytes, nil
}

// observeTransfer reports one mem_ap_transfer call's size and wall-clock
// cost to the DAP's observer, mirroring the teacher's pattern of timing
// each operation with time.Since around the call it instruments.
func (ap *AP) observeTransfer(bytes uint64, start time.Time, success bool) {
	if ap.dap.observer == nil {
		return
	}
	ap.dap.observer.ObserveBlockTransfer(bytes, uint64(time.Since(start).Nanoseconds()), success)
}

// queueTARWrite queues an unconditional TAR write and updates the
// shadow, bypassing setupTAR's auto-increment-forces-rewrite rule:
// the block engine's own boundary/addr_xor policy is the sole rewrite
// trigger inside this loop (§4.5).
func (ap *AP) queueTARWrite(tar uint32) {
	ap.dap.queueSelect(ap.index, regs.TAR)
	ap.dap.journal.EnqueueAPWrite(ap.index, regs.TAR, tar)
	ap.tar = tar
}

// tiAddrXor returns the TI BE-32 quirk's TAR XOR value for the given
// element size (§4.5).
func tiAddrXor(size int) uint32 {
	switch size {
	case 2:
		return 2
	case 1:
		return 3
	default:
		return 0
	}
}

// packLanesLE packs span bytes from buf[offset:offset+span] into a
// DRW word, little-endian: the byte at host offset i goes to lane
// (address+i)&3.
func packLanesLE(buf []byte, offset int, span int, address uint32) uint32 {
	var drw uint32
	for i := 0; i < span; i++ {
		lane := (address + uint32(i)) & 3
		drw |= uint32(buf[offset+i]) << (8 * lane)
	}
	return drw
}

// packLanesTI packs bytes under the TI BE-32 quirk's write-side lane
// formula: lane = (size-1) ^ ((address+i)&3) ^ addr_xor.
func packLanesTI(buf []byte, offset int, size int, address uint32, addrXor uint32) uint32 {
	var drw uint32
	for i := 0; i < size; i++ {
		lane := uint32(size-1) ^ ((address + uint32(i)) & 3) ^ addrXor
		drw |= uint32(buf[offset+i]) << (8 * lane)
	}
	return drw
}

// unpackLanesLE is the read-side inverse of packLanesLE.
func unpackLanesLE(drw uint32, buf []byte, offset int, span int, address uint32) {
	for i := 0; i < span; i++ {
		lane := (address + uint32(i)) & 3
		buf[offset+i] = byte(drw >> (8 * lane))
	}
}

// unpackLanesTI is the read-side extraction under the TI BE-32 quirk:
// byte_i = DRW >> 8*(3-((address+i)&3)); the physical address itself
// is untouched on reads.
func unpackLanesTI(drw uint32, buf []byte, offset int, size int, address uint32) {
	for i := 0; i < size; i++ {
		shift := 8 * (3 - ((address + uint32(i)) & 3))
		buf[offset+i] = byte(drw >> shift)
	}
}

// unpackReadResults replays the same slot-sizing decisions the
// transfer loop made to spread each DRW result back into the caller's
// buffer. It is a second pass because slot count (and whether packing
// applied to a given slot) isn't known until the loop above finished
// walking the address space.
func unpackReadResults(buf []byte, scratch []uint32, slots int, size int, start uint32, block uint32, tiQuirk, addrinc, packedCapable bool) {
	addr := start
	processed := 0
	total := len(buf)
	for s := 0; s < slots && processed < total; s++ {
		remaining := total - processed
		headroom := block - (addr % block)
		span := size
		if addrinc && packedCapable && !tiQuirk && size < 4 && remaining >= 4 && headroom >= 4 {
			span = 4
		}
		if processed+span > total {
			span = remaining
		}
		if tiQuirk {
			unpackLanesTI(scratch[s], buf, processed, size, addr)
		} else {
			unpackLanesLE(scratch[s], buf, processed, span, addr)
		}
		processed += span
		addr += uint32(span)
	}
}

// recoverProgress implements the partial-failure recovery of §4.5: it
// reads TAR back from the target after a failed flush to discover how
// far the pipeline actually advanced. If TAR cannot be read, it
// reports zero progress.
func (ap *AP) recoverProgress(start uint32, requested int, dir Direction) int {
	observed, err := ap.readTARDirect()
	if err != nil {
		return 0
	}
	if observed < start {
		return 0
	}
	progress := int(observed - start)
	if progress > requested {
		progress = requested
	}
	if dir == DirWrite && ap.dap.log != nil {
		ap.dap.log.Warnf("mem_ap_transfer write failed at TAR=0x%08x", observed)
	}
	return progress
}

// readTARDirect reads the AP's TAR register directly, bypassing the
// cached setupTAR path, since the cache is presumed stale after a
// journal failure.
func (ap *AP) readTARDirect() (uint32, error) {
	var out uint32
	ap.dap.queueSelect(ap.index, regs.TAR)
	ap.dap.journal.EnqueueAPRead(ap.index, regs.TAR, &out)
	if err := ap.dap.journal.Run(ap.dap.transport); err != nil {
		return 0, err
	}
	return out, nil
}
