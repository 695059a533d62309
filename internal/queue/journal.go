// Package queue implements the DAP's pending-operation journal: the
// ordered sequence of not-yet-flushed DP/AP register accesses (§3
// "Queued operation", §4.2). It is deliberately transport-agnostic —
// draining the journal means calling the supplied
// interfaces.Transport once per entry, in order, and is the one place
// FIFO ordering is enforced.
package queue

import "github.com/armdbg/go-adiv5/internal/interfaces"

// Kind tags a queued operation so Run knows which Transport method to
// invoke for it.
type Kind = interfaces.RegKind

const (
	KindDPRead  = interfaces.KindDPRead
	KindDPWrite = interfaces.KindDPWrite
	KindAPRead  = interfaces.KindAPRead
	KindAPWrite = interfaces.KindAPWrite
)

// Operation is one journaled register access. Reads carry a
// caller-owned Dst slot; it is written only when Run executes the
// operation, never when it is enqueued (§3 invariant: "reads pipeline
// by one").
type Operation struct {
	Kind  Kind
	AP    uint8
	Reg   uint8
	Value uint32
	Dst   *uint32
}

// Journal is the ordered sequence of pending operations for one DAP.
// It carries no transport reference of its own: Run takes the
// transport explicitly so the same Journal type can back tests
// against a mock and production code against a real link.
type Journal struct {
	ops []Operation
}

// Len returns the number of operations currently queued.
func (j *Journal) Len() int { return len(j.ops) }

// Reset discards all queued operations without running them. Used
// when the caller has already decided the journal is unrecoverable
// (e.g. after deciding not to retry following a flush failure).
func (j *Journal) Reset() { j.ops = j.ops[:0] }

// EnqueueDPRead appends a DP read. dst may be nil to drain a pipeline
// stage without keeping the result.
func (j *Journal) EnqueueDPRead(reg uint8, dst *uint32) {
	j.ops = append(j.ops, Operation{Kind: KindDPRead, Reg: reg, Dst: dst})
}

// EnqueueDPWrite appends a DP write.
func (j *Journal) EnqueueDPWrite(reg uint8, value uint32) {
	j.ops = append(j.ops, Operation{Kind: KindDPWrite, Reg: reg, Value: value})
}

// EnqueueAPRead appends an AP read.
func (j *Journal) EnqueueAPRead(ap uint8, reg uint8, dst *uint32) {
	j.ops = append(j.ops, Operation{Kind: KindAPRead, AP: ap, Reg: reg, Dst: dst})
}

// EnqueueAPWrite appends an AP write.
func (j *Journal) EnqueueAPWrite(ap uint8, reg uint8, value uint32) {
	j.ops = append(j.ops, Operation{Kind: KindAPWrite, AP: ap, Reg: reg, Value: value})
}

// Run submits every queued operation to t, in FIFO order, then calls
// t.Run() to flush. On the first operation that fails to queue, or if
// the flush itself fails, Run stops, discards the remainder of the
// journal, and returns the error — the caller must reestablish DP
// state before queuing more work (§4.1 failure mode).
//
// Run always clears the journal before returning, success or failure,
// so a caller can never accidentally replay a partially-submitted
// journal.
func (j *Journal) Run(t interfaces.Transport) error {
	defer j.Reset()

	for _, op := range j.ops {
		var err error
		switch op.Kind {
		case KindDPRead:
			err = t.QueueDPRead(op.Reg, op.Dst)
		case KindDPWrite:
			err = t.QueueDPWrite(op.Reg, op.Value)
		case KindAPRead:
			err = t.QueueAPRead(op.AP, op.Reg, op.Dst)
		case KindAPWrite:
			err = t.QueueAPWrite(op.AP, op.Reg, op.Value)
		}
		if err != nil {
			return err
		}
	}
	return t.Run()
}
