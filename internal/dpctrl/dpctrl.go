// Package dpctrl implements the DP-level protocol sequences built on
// top of the journal and transport: polling a DP register to a
// condition, clearing the sticky-overrun/error latch, and the
// power-up handshake retry loop (§4.2, §4.6). Each function here is a
// short composition of enqueue-then-flush calls; none of them hold
// state across calls, so the DAP engine in the root package owns
// everything persistent (SELECT/CSW/TAR shadows) and just calls
// through to these helpers.
package dpctrl

import (
	"time"

	"github.com/armdbg/go-adiv5/internal/constants"
	"github.com/armdbg/go-adiv5/internal/interfaces"
	"github.com/armdbg/go-adiv5/internal/queue"
	"github.com/armdbg/go-adiv5/internal/regs"
)

// PollDPRegister repeatedly reads reg until (value & mask) == want, or
// timeout elapses. It surfaces Timeout via the returned error being
// ErrTimeout; any transport failure is returned verbatim (§4.2).
func PollDPRegister(t interfaces.Transport, reg uint8, mask, want uint32, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var j queue.Journal
		var value uint32
		j.EnqueueDPRead(reg, &value)
		if err := j.Run(t); err != nil {
			return err
		}
		if value&mask == want {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(constants.PowerUpPollInterval)
	}
}

// ClearSticky writes SSTICKYERR (and the sibling sticky bits) to
// ABORT to clear the overrun/error latch, per §4.2.
func ClearSticky(t interfaces.Transport) error {
	var j queue.Journal
	j.EnqueueDPWrite(regs.DPAbort, regs.AbortStickyErr|regs.AbortStickyOrun|regs.AbortStickyCmp|regs.AbortOrunErrClr)
	return j.Run(t)
}

// QueueAPAbort queues a DAPABORT write, clearing a hung AP
// transaction independent of sticky-error recovery (§9, original
// source's dap_queue_ap_abort). Callers still need to Run the
// journal.
func QueueAPAbort(j *queue.Journal) {
	j.EnqueueDPWrite(regs.DPAbort, regs.AbortDapAbort)
}

// Logger is the subset of logging used by DPInit; it is the
// interfaces.Logger contract restated here to avoid an import cycle
// with the root package's own Logger alias.
type Logger = interfaces.Logger

// DPInit runs the power-up handshake (§4.6) up to
// constants.DPInitMaxAttempts times, stopping at the first end-to-end
// success. log may be nil.
func DPInit(t interfaces.Transport, log Logger) error {
	var lastErr error
	for attempt := 0; attempt < constants.DPInitMaxAttempts; attempt++ {
		if err := dpInitOnce(t); err != nil {
			lastErr = err
			if log != nil {
				log.Debugf("dp_init attempt %d/%d failed: %v", attempt+1, constants.DPInitMaxAttempts, err)
			}
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = ErrTimeout
	}
	return lastErr
}

func dpInitOnce(t interfaces.Transport) error {
	var j queue.Journal

	// 1. Read CTRL/STAT (discard).
	j.EnqueueDPRead(regs.DPCtrlStat, nil)
	// 2. Write SSTICKYERR to clear any latched error.
	j.EnqueueDPWrite(regs.DPCtrlStat, regs.CtrlStatStickyErr)
	// 3. Read CTRL/STAT again (pipeline drain).
	j.EnqueueDPRead(regs.DPCtrlStat, nil)
	// 4. Request power-up.
	j.EnqueueDPWrite(regs.DPCtrlStat, regs.CtrlStatCDbgPwrUpReq|regs.CtrlStatCSysPwrUpReq)
	if err := j.Run(t); err != nil {
		return err
	}

	// 5. Poll for CDBGPWRUPACK.
	if err := PollDPRegister(t, regs.DPCtrlStat, regs.CtrlStatCDbgPwrUpAck, regs.CtrlStatCDbgPwrUpAck, constants.PowerUpPollTimeout); err != nil {
		return err
	}
	// 6. Poll for CSYSPWRUPACK.
	if err := PollDPRegister(t, regs.DPCtrlStat, regs.CtrlStatCSysPwrUpAck, regs.CtrlStatCSysPwrUpAck, constants.PowerUpPollTimeout); err != nil {
		return err
	}

	// 7. Arm overrun detection.
	var j2 queue.Journal
	j2.EnqueueDPWrite(regs.DPCtrlStat, regs.CtrlStatCDbgPwrUpReq|regs.CtrlStatCSysPwrUpReq|regs.CtrlStatOrunDetect)
	// 8. Read CTRL/STAT; flush.
	j2.EnqueueDPRead(regs.DPCtrlStat, nil)
	return j2.Run(t)
}
